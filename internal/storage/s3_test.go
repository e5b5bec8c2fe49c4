package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/davidbmar/youtube-commercial-detector/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeS3 records puts and scripts listing/head responses.
type fakeS3 struct {
	objects map[string]string // key -> body
	headErr error
	listErr error
	putErr  error

	created     bool
	createInput *s3.CreateBucketInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]string{}}
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = true
	f.createInput = params
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	prefix := aws.ToString(params.Prefix)
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out.Contents = append(out.Contents, s3types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = string(body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_ExistsAfterResultWrite(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	store := newS3Store(api, "bucket", "us-east-1", "transcripts", "results", discardLogger())

	exists, err := store.Exists(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Exists should be false for an unseen video")
	}

	result := types.VideoResult{
		VideoID:     "dQw4w9WgXcQ",
		ProcessedAt: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	if err := store.PutVideoResult(ctx, "dQw4w9WgXcQ", result); err != nil {
		t.Fatalf("PutVideoResult failed: %v", err)
	}

	if _, ok := api.objects["results/dQw4w9WgXcQ/20250315-120000-results.json"]; !ok {
		t.Errorf("result written under unexpected key, have %v", keys(api.objects))
	}

	exists, err = store.Exists(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Exists should be true once a result snapshot is stored")
	}
}

func TestS3Store_TranscriptKeyLayout(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	store := newS3Store(api, "bucket", "us-east-1", "transcripts", "results", discardLogger())

	if err := store.PutSegmentTranscript(ctx, "abc", 4, "some text"); err != nil {
		t.Fatalf("PutSegmentTranscript failed: %v", err)
	}

	got, ok := api.objects["transcripts/abc/segment_004.txt"]
	if !ok {
		t.Fatalf("transcript written under unexpected key, have %v", keys(api.objects))
	}
	if got != "some text" {
		t.Errorf("stored body = %q", got)
	}
}

func TestS3Store_EnsureBucketCreatesMissing(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	api.headErr = &s3types.NotFound{}
	store := newS3Store(api, "bucket", "eu-west-1", "transcripts", "results", discardLogger())

	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket failed: %v", err)
	}
	if !api.created {
		t.Fatal("expected CreateBucket call")
	}
	cfg := api.createInput.CreateBucketConfiguration
	if cfg == nil || cfg.LocationConstraint != s3types.BucketLocationConstraint("eu-west-1") {
		t.Errorf("expected eu-west-1 location constraint, got %+v", cfg)
	}
}

func TestS3Store_EnsureBucketUsEast1OmitsConstraint(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	api.headErr = &s3types.NotFound{}
	store := newS3Store(api, "bucket", "us-east-1", "transcripts", "results", discardLogger())

	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket failed: %v", err)
	}
	if api.createInput.CreateBucketConfiguration != nil {
		t.Error("us-east-1 create must not carry a LocationConstraint")
	}
}

func TestS3Store_EnsureBucketExisting(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	store := newS3Store(api, "bucket", "us-east-1", "transcripts", "results", discardLogger())

	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket failed: %v", err)
	}
	if api.created {
		t.Error("existing bucket must not be recreated")
	}
}

func TestS3Store_EnsureBucketOtherHeadError(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	api.headErr = errors.New("access denied")
	store := newS3Store(api, "bucket", "us-east-1", "transcripts", "results", discardLogger())

	if err := store.EnsureBucket(ctx); err == nil {
		t.Error("non-404 head errors must propagate, not trigger a create")
	}
	if api.created {
		t.Error("bucket must not be created on a non-404 head error")
	}
}

func TestS3Store_ExistsListError(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	api.listErr = errors.New("throttled")
	store := newS3Store(api, "bucket", "us-east-1", "transcripts", "results", discardLogger())

	exists, err := store.Exists(ctx, "abc")
	if err == nil {
		t.Error("expected error from failed listing")
	}
	if exists {
		t.Error("a failed listing must read as not-processed")
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
