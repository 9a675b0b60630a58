package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/saif-ali01/projectXAPI/internal/models"
	"github.com/saif-ali01/projectXAPI/internal/utils"
)

func TestMongoStore_Lifecycle(t *testing.T) {
	db := utils.SetupTestDB(t, "ledger_outbox_test", models.CollectionOutbox)
	ctx := context.Background()
	coll := db.Collection(models.CollectionOutbox)
	_, _ = coll.DeleteMany(ctx, bson.M{})
	t.Cleanup(func() { _, _ = coll.DeleteMany(ctx, bson.M{}) })

	store := NewMongoStore(db)
	require.NoError(t, store.Create(ctx, "email:deliver", map[string]string{"to": "a@example.com"}))
	require.NoError(t, store.Create(ctx, "email:deliver", map[string]string{"to": "b@example.com"}))

	claimed, err := store.ClaimAndFetch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, models.OutboxStatusProcessing, claimed[0].Status)
	assert.JSONEq(t, `{"to":"a@example.com"}`, claimed[0].Payload)

	again, err := store.ClaimAndFetch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, store.MarkAsProcessed(ctx, claimed[0].ID))

	require.NoError(t, store.IncrementRetry(ctx, claimed[1].ID, "boom", 2))
	var msg models.OutboxMessage
	require.NoError(t, coll.FindOne(ctx, bson.M{"_id": claimed[1].ID}).Decode(&msg))
	assert.Equal(t, models.OutboxStatusPending, msg.Status)
	assert.Equal(t, 1, msg.Retries)

	require.NoError(t, store.IncrementRetry(ctx, claimed[1].ID, "boom", 2))
	require.NoError(t, coll.FindOne(ctx, bson.M{"_id": claimed[1].ID}).Decode(&msg))
	assert.Equal(t, models.OutboxStatusFailed, msg.Status)
}

func TestMongoStore_ReleaseStale(t *testing.T) {
	db := utils.SetupTestDB(t, "ledger_outbox_test", models.CollectionOutbox)
	ctx := context.Background()
	coll := db.Collection(models.CollectionOutbox)
	_, _ = coll.DeleteMany(ctx, bson.M{})
	t.Cleanup(func() { _, _ = coll.DeleteMany(ctx, bson.M{}) })

	store := NewMongoStore(db)
	require.NoError(t, store.Create(ctx, "email:deliver", map[string]string{"to": "a@example.com"}))
	claimed, err := store.ClaimAndFetch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	released, err := store.ReleaseStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, released)

	released, err = store.ReleaseStale(ctx, -time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)
}
