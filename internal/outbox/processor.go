package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Publisher hands a message payload to the delivery queue.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// ProcessorConfig tunes the polling loop.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// StaleAfter is how long a claimed message may stay in processing before
	// it is handed out again.
	StaleAfter time.Duration
}

// Processor polls the outbox and publishes claimed messages.
type Processor struct {
	store     Store
	publisher Publisher
	cfg       ProcessorConfig
	logger    *zap.Logger
}

func NewProcessor(store Store, publisher Publisher, cfg ProcessorConfig, logger *zap.Logger) *Processor {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * cfg.Interval
	}
	return &Processor{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.Named("OutboxProcessor"),
	}
}

// Start runs the polling loop until ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Outbox processor started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Int("batchSize", p.cfg.BatchSize),
	)
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.ProcessBatch(ctx)
		case <-ctx.Done():
			p.logger.Info("Outbox processor shutting down")
			return
		}
	}
}

// ProcessBatch runs one poll: release stale claims, claim a batch, publish it.
// It returns the number of messages published.
func (p *Processor) ProcessBatch(ctx context.Context) int {
	if released, err := p.store.ReleaseStale(ctx, p.cfg.StaleAfter); err != nil {
		p.logger.Error("Failed to release stale outbox messages", zap.Error(err))
	} else if released > 0 {
		p.logger.Warn("Released stale outbox messages", zap.Int64("count", released))
	}

	messages, err := p.store.ClaimAndFetch(ctx, p.cfg.BatchSize)
	if err != nil {
		p.logger.Error("Failed to claim outbox messages", zap.Error(err))
		return 0
	}
	if len(messages) > 0 {
		p.logger.Debug("Claimed outbox messages", zap.Int("count", len(messages)))
	}

	published := 0
	for _, msg := range messages {
		log := p.logger.With(zap.String("message_id", msg.ID.Hex()), zap.String("topic", msg.Topic))

		if err := p.publisher.Publish(ctx, msg.Topic, []byte(msg.Payload)); err != nil {
			log.Error("Failed to publish outbox message", zap.Int("retries", msg.Retries), zap.Error(err))
			if err := p.store.IncrementRetry(ctx, msg.ID, err.Error(), p.cfg.MaxRetries); err != nil {
				log.Error("Failed to record outbox retry", zap.Error(err))
			}
			continue
		}

		if err := p.store.MarkAsProcessed(ctx, msg.ID); err != nil {
			log.Error("Failed to mark outbox message processed", zap.Error(err))
			continue
		}
		published++
	}
	return published
}
