package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/davidbmar/youtube-commercial-detector/internal/types"
)

// LocalStore is a ResultStore over a local directory, mirroring the S3 key
// layout. Useful for development and offline runs without AWS access.
type LocalStore struct {
	root              string
	transcriptsPrefix string
	resultsPrefix     string
}

func NewLocalStore(root, transcriptsPrefix, resultsPrefix string) *LocalStore {
	return &LocalStore{
		root:              root,
		transcriptsPrefix: transcriptsPrefix,
		resultsPrefix:     resultsPrefix,
	}
}

func (l *LocalStore) Exists(ctx context.Context, videoID string) (bool, error) {
	dir := filepath.Join(l.root, l.resultsPrefix, videoID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("list results for %s: %w", videoID, err)
	}
	return len(entries) > 0, nil
}

func (l *LocalStore) PutSegmentTranscript(ctx context.Context, videoID string, segmentIndex int, text string) error {
	path := filepath.Join(l.root, transcriptKey(l.transcriptsPrefix, videoID, segmentIndex))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create transcript directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("save transcript %s: %w", path, err)
	}
	return nil
}

func (l *LocalStore) PutVideoResult(ctx context.Context, videoID string, result types.VideoResult) error {
	at := result.ProcessedAt
	if at.IsZero() {
		at = time.Now()
	}
	path := filepath.Join(l.root, resultKey(l.resultsPrefix, videoID, at))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result for %s: %w", videoID, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("save result %s: %w", path, err)
	}
	return nil
}
