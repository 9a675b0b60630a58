package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/saif-ali01/projectXAPI/internal/models"
)

// SerialNumberIndex is the unique index name on bills.serial_number.
const SerialNumberIndex = "serial_number_1"

var collectionIndexes = map[string][]mongo.IndexModel{
	models.CollectionBills: {
		{Keys: bson.D{{Key: "serial_number", Value: 1}}, Options: options.Index().SetUnique(true).SetName(SerialNumberIndex)},
		{Keys: bson.D{{Key: "party_name", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "status", Value: 1}}},
	},
	models.CollectionWorks: {
		{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "created_at", Value: -1}}},
	},
	models.CollectionEarnings: {
		{
			Keys: bson.D{{Key: "source", Value: 1}, {Key: "reference", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"reference": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "date", Value: -1}}},
	},
	models.CollectionExpenses: {
		{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "date", Value: -1}}},
	},
	models.CollectionClients: {
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "created_by", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	models.CollectionUsers: {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	models.CollectionPasswordResetTokens: {
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	},
	models.CollectionOutbox: {
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "claim_id", Value: 1}}},
	},
	models.CollectionEmailTemplates: {
		{Keys: bson.D{{Key: "template_id", Value: 1}, {Key: "locale", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
}

// EnsureIndexes creates every index the services rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	for collection, indexes := range collectionIndexes {
		if _, err := database.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

// SyncBillSerialCounter lifts the bill serial counter above the highest serial
// already stored, so bills imported before the counter existed never collide.
func SyncBillSerialCounter(ctx context.Context, database *mongo.Database) error {
	var last struct {
		SerialNumber int64 `bson:"serial_number"`
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "serial_number", Value: -1}}).
		SetProjection(bson.M{"serial_number": 1})
	err := database.Collection(models.CollectionBills).FindOne(ctx, bson.M{}, opts).Decode(&last)
	if err != nil && err != mongo.ErrNoDocuments {
		return fmt.Errorf("failed to read highest bill serial: %w", err)
	}
	return SyncSequenceFloor(ctx, database, BillSerialCounter, last.SerialNumber)
}
