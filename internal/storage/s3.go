package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/davidbmar/youtube-commercial-detector/internal/types"
)

// s3API is the slice of the S3 client the store uses; tests substitute a
// fake.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store persists transcripts and results to an S3 bucket.
type S3Store struct {
	api               s3API
	bucket            string
	region            string
	transcriptsPrefix string
	resultsPrefix     string
	logger            *slog.Logger
}

func NewS3Store(api *s3.Client, bucket, region, transcriptsPrefix, resultsPrefix string, logger *slog.Logger) *S3Store {
	return newS3Store(api, bucket, region, transcriptsPrefix, resultsPrefix, logger)
}

func newS3Store(api s3API, bucket, region, transcriptsPrefix, resultsPrefix string, logger *slog.Logger) *S3Store {
	return &S3Store{
		api:               api,
		bucket:            bucket,
		region:            region,
		transcriptsPrefix: transcriptsPrefix,
		resultsPrefix:     resultsPrefix,
		logger:            logger,
	}
}

// EnsureBucket creates the bucket if it does not exist. Idempotent;
// called once at startup, never per item.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		s.logger.Info("S3 bucket exists", "bucket", s.bucket)
		return nil
	}

	var notFound *s3types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	// us-east-1 rejects an explicit LocationConstraint.
	if s.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.api.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("created S3 bucket", "bucket", s.bucket)
	return nil
}

// Exists reports whether any result snapshot has been written for the
// video. A listing failure reads as "not processed" so a flaky store never
// silently skips legitimate work; the caller logs the error.
func (s *S3Store) Exists(ctx context.Context, videoID string) (bool, error) {
	resp, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(resultsPrefix(s.resultsPrefix, videoID)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("list results for %s: %w", videoID, err)
	}
	return len(resp.Contents) > 0, nil
}

func (s *S3Store) PutSegmentTranscript(ctx context.Context, videoID string, segmentIndex int, text string) error {
	key := transcriptKey(s.transcriptsPrefix, videoID, segmentIndex)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(text),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("upload transcript %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) PutVideoResult(ctx context.Context, videoID string, result types.VideoResult) error {
	at := result.ProcessedAt
	if at.IsZero() {
		at = time.Now()
	}
	key := resultKey(s.resultsPrefix, videoID, at)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result for %s: %w", videoID, err)
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload result %s: %w", key, err)
	}

	s.logger.Info("results saved", "location", fmt.Sprintf("s3://%s/%s", s.bucket, key))
	return nil
}
