package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OutboxStatusPending    = "PENDING"
	OutboxStatusProcessing = "PROCESSING"
	OutboxStatusProcessed  = "PROCESSED"
	OutboxStatusFailed     = "FAILED"
)

// OutboxMessage is a side effect recorded in the same transaction as the write
// that caused it, and delivered later by the outbox processor.
type OutboxMessage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Topic       string             `bson:"topic"`
	Payload     string             `bson:"payload"` // JSON
	Status      string             `bson:"status"`
	Retries     int                `bson:"retries"`
	ClaimID     primitive.ObjectID `bson:"claim_id,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   *time.Time         `bson:"updated_at,omitempty"`
	ProcessedAt *time.Time         `bson:"processed_at,omitempty"`
	Error       string             `bson:"error,omitempty"`
}

// TopicEmailDelivery is the outbox topic of outgoing mail. It doubles as the asynq task type.
const TopicEmailDelivery = "email:deliver"

// EmailDelivery is the payload of a TopicEmailDelivery message.
type EmailDelivery struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}
