package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/davidbmar/youtube-commercial-detector/internal/media"
	"github.com/davidbmar/youtube-commercial-detector/internal/scan"
	"github.com/davidbmar/youtube-commercial-detector/internal/segment"
	"github.com/davidbmar/youtube-commercial-detector/internal/storage"
	"github.com/davidbmar/youtube-commercial-detector/internal/types"
)

// Queue supplies work items and deletes them once handled.
type Queue interface {
	// Receive returns the next work item, or nil when the queue has none.
	Receive(ctx context.Context) (*types.WorkItem, error)
	Acknowledge(ctx context.Context, ackToken string) error
}

// MediaTools covers the external download/convert/probe/extract commands.
type MediaTools interface {
	Download(ctx context.Context, youtubeURL, dir string) (string, error)
	ConvertToWAV(ctx context.Context, inputPath string) (string, error)
	Probe(ctx context.Context, path string) (float64, error)
	ExtractClip(ctx context.Context, wavPath string, index int, startSeconds, durationSeconds float64) (string, error)
}

// Transcriber converts one audio clip to text. A clip that cannot be
// transcribed comes back as "" — the retry policy lives behind this
// interface.
type Transcriber interface {
	Transcribe(ctx context.Context, clipPath, languageHint string) string
}

// Options are the per-batch knobs the orchestrator needs.
type Options struct {
	BatchSize      int
	DefaultPhrase  string
	SegmentSeconds float64
	OverlapSeconds float64
	LanguageHint   string
	TempDir        string
}

// Summary reports the outcome of one batch.
type Summary struct {
	Results []types.VideoResult
	Skipped int
	Failed  int
}

// Orchestrator runs the per-item pipeline and the bounded batch loop. One
// orchestrator is one logical worker: items are processed strictly
// sequentially, and scaling out means running more worker processes
// against the same queue.
type Orchestrator struct {
	queue       Queue
	store       storage.ResultStore
	media       MediaTools
	transcriber Transcriber
	ledger      *storage.Ledger // optional
	opts        Options
	logger      *slog.Logger

	now func() time.Time
}

func New(queue Queue, store storage.ResultStore, mediaTools MediaTools, transcriber Transcriber, ledger *storage.Ledger, opts Options, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		queue:       queue,
		store:       store,
		media:       mediaTools,
		transcriber: transcriber,
		ledger:      ledger,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}

// ProcessBatch pulls items until the queue runs dry or BatchSize videos
// have been processed. Skips from the dedup gate don't consume a batch
// slot. A failure in any one item is logged against its video id and the
// loop moves on; one bad video never takes the batch down. Queue errors
// end the batch early instead of retrying forever.
func (o *Orchestrator) ProcessBatch(ctx context.Context) Summary {
	var summary Summary

	for len(summary.Results) < o.opts.BatchSize {
		item, err := o.queue.Receive(ctx)
		if err != nil {
			o.logger.Error("queue receive failed, ending batch early", "error", err)
			break
		}
		if item == nil {
			o.logger.Info("no more videos in queue")
			break
		}

		phrase := item.Phrase
		if phrase == "" {
			phrase = o.opts.DefaultPhrase
		}
		videoID := media.ExtractVideoID(item.YouTubeURL)

		exists, err := o.store.Exists(ctx, videoID)
		if err != nil {
			// A broken dedup probe must not skip legitimate work.
			o.logger.Error("dedup check failed, reprocessing to be safe", "video_id", videoID, "error", err)
			exists = false
		}
		if exists {
			o.logger.Info("results already exist, skipping", "video_id", videoID)
			summary.Skipped++
			o.record(storage.Outcome{
				VideoID: videoID, YouTubeURL: item.YouTubeURL, Phrase: phrase,
				Status: types.OutcomeSkipped,
			})
			o.acknowledge(ctx, item, videoID)
			continue
		}

		o.logger.Info("processing video", "video_id", videoID, "phrase", phrase)
		result, err := o.processVideo(ctx, videoID, item.YouTubeURL, phrase)
		if err != nil {
			o.logger.Error("error processing video", "video_id", videoID, "error", err)
			summary.Failed++
			o.record(storage.Outcome{
				VideoID: videoID, YouTubeURL: item.YouTubeURL, Phrase: phrase,
				Status: types.OutcomeFailed, Error: err.Error(),
			})
			// Under late ack the message is left un-deleted so it returns
			// after the visibility timeout. Under early ack the item is
			// already gone and recovery needs re-submission.
			continue
		}

		summary.Results = append(summary.Results, result)
		o.record(storage.Outcome{
			VideoID: videoID, YouTubeURL: item.YouTubeURL, Phrase: phrase,
			Status:           types.OutcomeProcessed,
			TotalOccurrences: result.TotalOccurrences,
			DurationSeconds:  result.DurationSeconds,
			WordCount:        result.TotalWords,
		})
		o.acknowledge(ctx, item, videoID)
	}

	return summary
}

// processVideo runs one item through download, conversion, segmentation,
// transcription, scanning and persistence. Any error (or panic from an
// external tool wrapper) surfaces as the item's failure.
func (o *Orchestrator) processVideo(ctx context.Context, videoID, youtubeURL, phrase string) (result types.VideoResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing: %v\n%s", r, debug.Stack())
		}
	}()

	// Scratch space is scoped to this video and reclaimed when it's done.
	scratchDir := filepath.Join(o.opts.TempDir, videoID)
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return types.VideoResult{}, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	audioPath, err := o.media.Download(ctx, youtubeURL, scratchDir)
	if err != nil {
		return types.VideoResult{}, fmt.Errorf("download: %w", err)
	}

	wavPath, err := o.media.ConvertToWAV(ctx, audioPath)
	if err != nil {
		return types.VideoResult{}, fmt.Errorf("convert: %w", err)
	}

	totalSeconds, err := o.media.Probe(ctx, wavPath)
	if err != nil {
		return types.VideoResult{}, fmt.Errorf("probe duration: %w", err)
	}

	segments, err := segment.Plan(totalSeconds, o.opts.SegmentSeconds, o.opts.OverlapSeconds)
	if err != nil {
		return types.VideoResult{}, fmt.Errorf("plan segments: %w", err)
	}
	o.logger.Info("planned segments", "video_id", videoID, "count", len(segments), "duration_sec", totalSeconds)

	transcripts := make([]types.SegmentTranscript, 0, len(segments))
	for _, seg := range segments {
		clipPath, err := o.media.ExtractClip(ctx, wavPath, seg.Index, seg.StartSeconds, seg.DurationSeconds)
		if err != nil {
			return types.VideoResult{}, fmt.Errorf("extract segment %d: %w", seg.Index, err)
		}

		text := o.transcriber.Transcribe(ctx, clipPath, o.opts.LanguageHint)
		transcripts = append(transcripts, types.SegmentTranscript{SegmentIndex: seg.Index, Text: text})

		// Persist each transcript as soon as it exists so partial progress
		// survives a crash mid-video. Upload failures don't fail the item.
		if err := o.store.PutSegmentTranscript(ctx, videoID, seg.Index, text); err != nil {
			o.logger.Error("failed to upload segment transcript", "video_id", videoID, "segment", seg.Index, "error", err)
		}
	}

	stats := scan.Scan(transcripts, phrase, o.opts.SegmentSeconds)

	result = types.VideoResult{
		VideoID:          videoID,
		YouTubeURL:       youtubeURL,
		Phrase:           phrase,
		DurationSeconds:  stats.DurationSeconds,
		DurationMinutes:  stats.DurationMinutes,
		TotalWords:       stats.TotalWords,
		TotalChars:       stats.TotalChars,
		TotalOccurrences: stats.TotalOccurrences,
		Occurrences:      stats.Occurrences,
		ProcessedAt:      o.now(),
	}

	if err := o.store.PutVideoResult(ctx, videoID, result); err != nil {
		o.logger.Error("failed to save results", "video_id", videoID, "error", err)
	}

	return result, nil
}

// acknowledge deletes a late-ack message after its item is settled; early
// ack items carry no token and need nothing here.
func (o *Orchestrator) acknowledge(ctx context.Context, item *types.WorkItem, videoID string) {
	if item.AckToken == "" {
		return
	}
	if err := o.queue.Acknowledge(ctx, item.AckToken); err != nil {
		o.logger.Error("failed to acknowledge message", "video_id", videoID, "error", err)
	}
}

func (o *Orchestrator) record(outcome storage.Outcome) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.Record(outcome); err != nil {
		o.logger.Error("failed to record outcome in ledger", "video_id", outcome.VideoID, "error", err)
	}
}
