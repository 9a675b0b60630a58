package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const mockEmailTTL = 5 * time.Minute

// MockEmail is the JSON document RedisSender stores.
type MockEmail struct {
	To         string `json:"to"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	TemplateID string `json:"templateId"`
	SentAt     string `json:"sentAt"`
}

// MockEmailKey is the Redis key a message to `to` rendered from templateID is stored under.
func MockEmailKey(to, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), templateID)
}

// RedisSender stores emails in Redis instead of sending them, so tests can
// fetch them through the service API.
type RedisSender struct {
	client redis.Cmdable
	from   string
	logger *zap.Logger
}

func NewRedisSender(client redis.Cmdable, from string, logger *zap.Logger) *RedisSender {
	return &RedisSender{client: client, from: from, logger: logger}
}

func (s *RedisSender) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	data, err := json.Marshal(MockEmail{
		To:         strings.Join(msg.To, ", "),
		From:       s.from,
		Subject:    msg.Subject,
		Body:       msg.Body,
		TemplateID: msg.TemplateID,
		SentAt:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockEmailKey(msg.To[0], msg.TemplateID)
	if err := s.client.Set(ctx, key, data, mockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	s.logger.Debug("Mock email stored", zap.String("key", key), zap.Duration("ttl", mockEmailTTL))
	return nil
}

// ErrMockEmailNotFound is returned by GetMockEmail when nothing is stored.
var ErrMockEmailNotFound = errors.New("mock email not found")

// GetMockEmail reads back what RedisSender stored.
func GetMockEmail(ctx context.Context, client redis.Cmdable, to, templateID string) (*MockEmail, error) {
	raw, err := client.Get(ctx, MockEmailKey(to, templateID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMockEmailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mock email: %w", err)
	}
	var m MockEmail
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode mock email: %w", err)
	}
	return &m, nil
}
