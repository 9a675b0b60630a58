package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/config"
)

func TestReportKey(t *testing.T) {
	key := ReportKey("65f000000000000000000001", "csv")
	assert.True(t, strings.HasPrefix(key, "reports/65f000000000000000000001/"))
	assert.True(t, strings.HasSuffix(key, ".csv"))
	assert.NotEqual(t, key, ReportKey("65f000000000000000000001", "csv"))
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(context.Background(), &config.Config{AwsRegion: "ap-south-1"}, zap.NewNop())
	assert.Error(t, err)
}

func TestPresignGetURL(t *testing.T) {
	store, err := NewS3Storage(context.Background(), &config.Config{
		AwsRegion:          "ap-south-1",
		AwsS3Bucket:        "ledger-exports",
		AwsAccessKeyID:     "AKIAEXAMPLE",
		AwsSecretAccessKey: "secret",
	}, zap.NewNop())
	require.NoError(t, err)

	url, err := store.PresignGetURL(context.Background(), "reports/o/x.csv", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "ledger-exports")
	assert.Contains(t, url, "reports/o/x.csv")
	assert.Contains(t, url, "X-Amz-Signature=")
}
