package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/db"
	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

var ledgerCollections = []string{
	models.CollectionBills,
	models.CollectionWorks,
	models.CollectionEarnings,
	models.CollectionExpenses,
	models.CollectionClients,
	models.CollectionParties,
	models.CollectionUsers,
	models.CollectionPasswordResetTokens,
	models.CollectionEmailTemplates,
	models.CollectionOutbox,
	db.CountersCollection,
}

// setupLedgerDB returns a clean database with every index in place.
func setupLedgerDB(t *testing.T, name string) *mongo.Database {
	t.Helper()
	database := utils.SetupTestDB(t, name, ledgerCollections...)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

func newBillFixture(t *testing.T, name string) (*mongo.Database, IBillService) {
	database := setupLedgerDB(t, name)
	reconciler := NewEarningReconciler(database, zap.NewNop())
	return database, NewBillService(database, db.NewNoOpTransactionManager(), reconciler, zap.NewNop())
}

func earningsFor(t *testing.T, database *mongo.Database, filter bson.M) []models.Earning {
	t.Helper()
	cursor, err := database.Collection(models.CollectionEarnings).Find(context.Background(), filter)
	require.NoError(t, err)
	var earnings []models.Earning
	require.NoError(t, cursor.All(context.Background(), &earnings))
	return earnings
}

func refFilter(id primitive.ObjectID) bson.M {
	return bson.M{"reference": id}
}
