package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/davidbmar/youtube-commercial-detector/internal/types"
)

// ResultStore persists per-segment transcripts and aggregated results, and
// answers the dedup probe. Backed by S3 in production and by a local
// directory for development.
type ResultStore interface {
	// Exists reports whether any result has been persisted for the video;
	// used as the dedup gate before any download or transcription work.
	Exists(ctx context.Context, videoID string) (bool, error)
	PutSegmentTranscript(ctx context.Context, videoID string, segmentIndex int, text string) error
	PutVideoResult(ctx context.Context, videoID string, result types.VideoResult) error
}

const resultTimestampLayout = "20060102-150405"

// transcriptKey returns transcripts/{videoId}/segment_{index:03d}.txt
// relative to the configured prefix.
func transcriptKey(prefix, videoID string, segmentIndex int) string {
	return fmt.Sprintf("%s/%s/segment_%03d.txt", prefix, videoID, segmentIndex)
}

// resultKey returns results/{videoId}/{YYYYMMDD-HHMMSS}-results.json. The
// timestamp keeps repeated runs for the same video from clobbering prior
// snapshots when the dedup gate is bypassed.
func resultKey(prefix, videoID string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s-results.json", prefix, videoID, at.Format(resultTimestampLayout))
}

// resultsPrefix returns the listing prefix the dedup probe scans.
func resultsPrefix(prefix, videoID string) string {
	return fmt.Sprintf("%s/%s/", prefix, videoID)
}
