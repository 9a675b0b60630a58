package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CountersCollection = "counters"

	// BillSerialCounter names the counter document behind Bill.SerialNumber.
	BillSerialCounter = "bill_serial"
)

type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// NextSequence atomically increments and returns the named counter, creating it at 1.
func NextSequence(ctx context.Context, database *mongo.Database, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := database.Collection(CountersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": 1}}, opts).
		Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to advance counter %s: %w", name, err)
	}
	return doc.Seq, nil
}

// SyncSequenceFloor raises the named counter to at least floor. It never lowers it.
func SyncSequenceFloor(ctx context.Context, database *mongo.Database, name string, floor int64) error {
	_, err := database.Collection(CountersCollection).UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$max": bson.M{"seq": floor}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to sync counter %s: %w", name, err)
	}
	return nil
}
