package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/config"
)

// IObjectStorage stores generated files and hands out time-limited download links.
type IObjectStorage interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// s3Storage implements IObjectStorage.
type s3Storage struct {
	bucket        string
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	logger        *zap.Logger
}

// NewS3Storage creates an S3-backed object store. Static credentials are used
// when configured, otherwise the default AWS credential chain applies.
func NewS3Storage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (IObjectStorage, error) {
	if cfg.AwsS3Bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is not configured")
	}

	opts := []func(*aws_config.LoadOptions) error{
		aws_config.WithRegion(cfg.AwsRegion),
	}
	if cfg.AwsAccessKeyID != "" && cfg.AwsSecretAccessKey != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)))
	}

	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	return &s3Storage{
		bucket:        cfg.AwsS3Bucket,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		logger:        logger.Named("s3"),
	}, nil
}

func (s *s3Storage) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	s.logger.Info("Object uploaded", zap.String("key", key), zap.Int("size", len(body)))
	return nil
}

func (s *s3Storage) PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned GET URL for key %s: %w", key, err)
	}
	return req.URL, nil
}

// ReportKey is the object key of a report export for owner.
func ReportKey(owner, ext string) string {
	return path.Join("reports", owner, uuid.NewString()+"."+ext)
}
