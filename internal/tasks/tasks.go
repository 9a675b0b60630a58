package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/email"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/services"
)

// TypeEmailDelivery is the asynq task type for outgoing mail, equal to its outbox topic.
const TypeEmailDelivery = models.TopicEmailDelivery

const (
	queueCritical = "critical"
	queueDefault  = "default"
)

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// Enqueuer is the part of *asynq.Client the publisher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqPublisher publishes outbox messages as asynq tasks, using the topic as task type.
type AsynqPublisher struct {
	client   Enqueuer
	maxRetry int
}

func NewAsynqPublisher(client Enqueuer, maxRetry int) *AsynqPublisher {
	return &AsynqPublisher{client: client, maxRetry: maxRetry}
}

func (p *AsynqPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	queue := queueDefault
	if topic == TypeEmailDelivery {
		queue = queueCritical
	}
	_, err := p.client.EnqueueContext(ctx, asynq.NewTask(topic, payload),
		asynq.Queue(queue),
		asynq.MaxRetry(p.maxRetry),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s task: %w", topic, err)
	}
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	emailSender          email.Sender
	emailTemplateService services.IEmailTemplateService
	logger               *zap.Logger
}

func NewTaskProcessor(emailSender email.Sender, emailTemplateService services.IEmailTemplateService, logger *zap.Logger) *TaskProcessor {
	return &TaskProcessor{
		emailSender:          emailSender,
		emailTemplateService: emailTemplateService,
		logger:               logger.Named("tasks"),
	}
}

// Mux registers every task handler.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, p.HandleEmailDeliveryTask)
	return mux
}

// SetupServer configures an Asynq server. The caller starts it with the processor's Mux.
func SetupServer(rdb *redis.Client, concurrency int, logger *zap.Logger) *asynq.Server {
	logger = logger.Named("asynq")
	return asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queueCritical: 6,
				queueDefault:  3,
			},
			Logger: logger.Sugar(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err),
				)
			}),
		},
	)
}

// --- Task Handlers ---

// HandleEmailDeliveryTask renders the template named by the payload and sends it.
// Malformed payloads and unknown templates are not retried.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload models.EmailDelivery
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(payload.To) == "" || payload.TemplateID == "" {
		return fmt.Errorf("email task payload missing recipient or template: %w", asynq.SkipRetry)
	}

	log := p.logger.With(zap.String("to", payload.To), zap.String("template", payload.TemplateID))

	tmpl, err := p.emailTemplateService.GetTemplate(ctx, payload.TemplateID, payload.Locale)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			log.Error("Email template not found", zap.Error(err))
			return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to load email template: %w", err)
	}

	subject, body, err := services.RenderTemplate(tmpl, payload.Data)
	if err != nil {
		log.Error("Email template failed to render", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	msg := &email.Message{
		To:         []string{payload.To},
		Subject:    subject,
		Body:       body,
		TemplateID: payload.TemplateID,
	}
	if err := p.emailSender.Send(ctx, msg); err != nil {
		log.Warn("Email sending failed, will retry", zap.Error(err))
		return err
	}

	log.Info("Email task processed")
	return nil
}
