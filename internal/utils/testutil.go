package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var loadEnvOnce sync.Once

// loadTestEnv loads the project root .env, falling back to the working directory.
func loadTestEnv() {
	loadEnvOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
		if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
			godotenv.Load()
		}
	})
}

// GetTestMongoURI returns MONGO_URI_TEST, or MONGO_URI when that is unset.
func GetTestMongoURI() string {
	loadTestEnv()
	if uri := os.Getenv("MONGO_URI_TEST"); uri != "" {
		return uri
	}
	return os.Getenv("MONGO_URI")
}

// SetupTestDB connects to the test MongoDB and drops the given collections.
// Tests are skipped when no MongoDB URI is configured.
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()
	uri := GetTestMongoURI()
	if uri == "" {
		t.Skip("MONGO_URI not set; skipping MongoDB-backed test")
	}
	_, db := connectTestDB(t, uri, dbName, collections)
	return db
}

// SetupReplSetTestDB is SetupTestDB against MONGO_REPLSET_URI, a replica set
// that supports multi-document transactions. The client is returned for
// starting sessions.
func SetupReplSetTestDB(t *testing.T, dbName string, collections ...string) (*mongo.Client, *mongo.Database) {
	t.Helper()
	loadTestEnv()
	uri := os.Getenv("MONGO_REPLSET_URI")
	if uri == "" {
		t.Skip("MONGO_REPLSET_URI not set; skipping transaction test")
	}
	return connectTestDB(t, uri, dbName, collections)
}

func connectTestDB(t *testing.T, uri, dbName string, collections []string) (*mongo.Client, *mongo.Database) {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database(dbName)
	for _, collection := range collections {
		_ = db.Collection(collection).Drop(context.Background())
	}
	return client, db
}
