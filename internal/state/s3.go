package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// S3API is the subset of the S3 client used by S3Store
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps the baseline in a single S3 object
type S3Store struct {
	logger *zap.Logger
	client S3API
	bucket string
	key    string
}

// NewS3Store creates an S3-backed store for bucket/key
func NewS3Store(logger *zap.Logger, client S3API, bucket, key string) *S3Store {
	return &S3Store{
		logger: logger,
		client: client,
		bucket: bucket,
		key:    key,
	}
}

// Load fetches the baseline object
func (s *S3Store) Load(ctx context.Context) (string, bool) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if !errors.As(err, &noSuchKey) {
			s.logger.Warn("Failed to fetch state object, treating as no baseline",
				zap.String("bucket", s.bucket),
				zap.String("key", s.key),
				zap.Error(err))
		}
		return "", false
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		s.logger.Warn("Failed to read state object, treating as no baseline",
			zap.String("bucket", s.bucket),
			zap.String("key", s.key),
			zap.Error(err))
		return "", false
	}

	return string(data), true
}

// Save overwrites the baseline object
func (s *S3Store) Save(ctx context.Context, rendering string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        strings.NewReader(rendering),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to put state object s3://%s/%s: %w", s.bucket, s.key, err)
	}

	s.logger.Debug("Saved fleet baseline",
		zap.String("bucket", s.bucket),
		zap.String("key", s.key),
		zap.Int("bytes", len(rendering)))
	return nil
}
