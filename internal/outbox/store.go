// Package outbox records side effects inside the transaction of the write that
// causes them and delivers them afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/saif-ali01/projectXAPI/internal/models"
)

// Store persists outbox messages.
type Store interface {
	// Create inserts a pending message. Pass the caller's transaction context.
	Create(ctx context.Context, topic string, payload interface{}) error
	// ClaimAndFetch claims up to limit pending messages for this worker.
	ClaimAndFetch(ctx context.Context, limit int) ([]*models.OutboxMessage, error)
	MarkAsProcessed(ctx context.Context, id primitive.ObjectID) error
	// IncrementRetry puts the message back to pending, or marks it failed once
	// it has been retried maxRetries times.
	IncrementRetry(ctx context.Context, id primitive.ObjectID, errorMessage string, maxRetries int) error
	// ReleaseStale returns messages stuck in processing for longer than olderThan to pending.
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type mongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{collection: db.Collection(models.CollectionOutbox)}
}

func (s *mongoStore) Create(ctx context.Context, topic string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode outbox payload: %w", err)
	}
	msg := &models.OutboxMessage{
		ID:        primitive.NewObjectID(),
		Topic:     topic,
		Payload:   string(raw),
		Status:    models.OutboxStatusPending,
		CreatedAt: time.Now(),
	}
	if _, err := s.collection.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert outbox message: %w", err)
	}
	return nil
}

// ClaimAndFetch finds candidate ids, flips them to processing under a fresh
// claim id with status=pending as the guard, then loads what this claim won.
func (s *mongoStore) ClaimAndFetch(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 1})

	cursor, err := s.collection.Find(ctx, bson.M{"status": models.OutboxStatusPending}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending outbox messages: %w", err)
	}
	var candidates []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode outbox candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	claimID := primitive.NewObjectID()
	res, err := s.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": models.OutboxStatusPending},
		bson.M{"$set": bson.M{
			"status":     models.OutboxStatusProcessing,
			"claim_id":   claimID,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox messages: %w", err)
	}
	if res.ModifiedCount == 0 {
		return nil, nil
	}

	claimed, err := s.collection.Find(ctx, bson.M{"claim_id": claimID, "status": models.OutboxStatusProcessing})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch claimed outbox messages: %w", err)
	}
	var messages []*models.OutboxMessage
	if err := claimed.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode claimed outbox messages: %w", err)
	}
	return messages, nil
}

func (s *mongoStore) MarkAsProcessed(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":       models.OutboxStatusProcessed,
		"processed_at": now,
		"updated_at":   now,
	}})
	if err != nil {
		return fmt.Errorf("failed to mark outbox message %s processed: %w", id.Hex(), err)
	}
	return nil
}

func (s *mongoStore) IncrementRetry(ctx context.Context, id primitive.ObjectID, errorMessage string, maxRetries int) error {
	var updated models.OutboxMessage
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set": bson.M{
				"status":     models.OutboxStatusPending,
				"error":      errorMessage,
				"updated_at": time.Now(),
			},
			"$inc": bson.M{"retries": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return fmt.Errorf("failed to increment retry for outbox message %s: %w", id.Hex(), err)
	}

	if updated.Retries < maxRetries {
		return nil
	}
	_, err = s.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.OutboxStatusPending},
		bson.M{"$set": bson.M{"status": models.OutboxStatusFailed}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message %s failed: %w", id.Hex(), err)
	}
	return nil
}

func (s *mongoStore) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.collection.UpdateMany(ctx,
		bson.M{
			"status":     models.OutboxStatusProcessing,
			"updated_at": bson.M{"$lt": time.Now().Add(-olderThan)},
		},
		bson.M{
			"$set":   bson.M{"status": models.OutboxStatusPending, "updated_at": time.Now()},
			"$unset": bson.M{"claim_id": ""},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to release stale outbox messages: %w", err)
	}
	return res.ModifiedCount, nil
}
