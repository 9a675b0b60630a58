package db

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionManager runs fn so that all of its writes land together or not at all.
// fn must use sessCtx for every store call it makes.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(sessCtx context.Context) (interface{}, error)) (interface{}, error)
}

// MongoTransactionManager implements TransactionManager with MongoDB sessions.
// Requires a replica set or sharded cluster.
type MongoTransactionManager struct {
	client *mongo.Client
}

// NewMongoTransactionManager creates a new MongoTransactionManager.
func NewMongoTransactionManager(client *mongo.Client) TransactionManager {
	return &MongoTransactionManager{client: client}
}

// WithTransaction executes fn inside a MongoDB transaction, retrying on transient errors.
func (m *MongoTransactionManager) WithTransaction(ctx context.Context, fn func(sessCtx context.Context) (interface{}, error)) (interface{}, error) {
	session, err := m.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	return session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return fn(sessCtx)
	})
}

// NoOpTransactionManager runs fn directly. Used against standalone servers and in tests.
type NoOpTransactionManager struct{}

// NewNoOpTransactionManager creates a new NoOpTransactionManager.
func NewNoOpTransactionManager() TransactionManager {
	return &NoOpTransactionManager{}
}

// WithTransaction simply executes the function without a real transaction.
func (n *NoOpTransactionManager) WithTransaction(ctx context.Context, fn func(sessCtx context.Context) (interface{}, error)) (interface{}, error) {
	return fn(ctx)
}
