package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/davidbmar/youtube-commercial-detector/internal/types"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir(), "transcripts", "results")

	exists, err := store.Exists(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Exists should be false before any write")
	}

	if err := store.PutSegmentTranscript(ctx, "dQw4w9WgXcQ", 0, "a hustle today"); err != nil {
		t.Fatalf("PutSegmentTranscript failed: %v", err)
	}

	// Transcripts alone do not mark a video as processed.
	exists, err = store.Exists(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("transcript write must not satisfy the dedup probe")
	}

	result := types.VideoResult{
		VideoID:          "dQw4w9WgXcQ",
		YouTubeURL:       "https://youtu.be/dQw4w9WgXcQ",
		Phrase:           "hustle",
		TotalOccurrences: 1,
		ProcessedAt:      time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	if err := store.PutVideoResult(ctx, "dQw4w9WgXcQ", result); err != nil {
		t.Fatalf("PutVideoResult failed: %v", err)
	}

	exists, err = store.Exists(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Exists should be true after a result write")
	}
}

func TestLocalStore_ResultSnapshotsAccumulate(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root, "transcripts", "results")

	first := types.VideoResult{VideoID: "abc", ProcessedAt: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)}
	second := types.VideoResult{VideoID: "abc", ProcessedAt: time.Date(2025, 3, 15, 12, 5, 0, 0, time.UTC)}

	if err := store.PutVideoResult(ctx, "abc", first); err != nil {
		t.Fatalf("first PutVideoResult failed: %v", err)
	}
	if err := store.PutVideoResult(ctx, "abc", second); err != nil {
		t.Fatalf("second PutVideoResult failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "results", "abc"))
	if err != nil {
		t.Fatalf("read results dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 result snapshots, got %d", len(entries))
	}
}

func TestLocalStore_ResultContent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root, "transcripts", "results")

	result := types.VideoResult{
		VideoID:          "abc",
		Phrase:           "hustle",
		TotalOccurrences: 3,
		Occurrences: []types.OccurrenceRecord{
			{Filename: "segment_001.txt", Minute: 2, Occurrences: 2},
			{Filename: "segment_002.txt", Minute: 3, Occurrences: 1},
		},
		ProcessedAt: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	if err := store.PutVideoResult(ctx, "abc", result); err != nil {
		t.Fatalf("PutVideoResult failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "results", "abc", "20250315-120000-results.json"))
	if err != nil {
		t.Fatalf("read result file: %v", err)
	}

	var got types.VideoResult
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if got.TotalOccurrences != 3 || len(got.Occurrences) != 2 {
		t.Errorf("round-tripped result = %+v", got)
	}
}
