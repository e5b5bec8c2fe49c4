package types

import "time"

// Item outcome constants recorded in the ledger and the batch summary
const (
	OutcomeProcessed = "PROCESSED"
	OutcomeSkipped   = "SKIPPED"
	OutcomeFailed    = "FAILED"
)

// Segmentation mode constants
const (
	ModeFixed   = "fixed"   // 60s windows, no overlap
	ModeSliding = "sliding" // 600s windows, 30s overlap
)

// WorkItem is one unit of work pulled from the queue.
type WorkItem struct {
	YouTubeURL string
	Phrase     string // empty means "use the configured default"
	AckToken   string // receipt handle needed to delete the message
}

// Segment is one planned time window of the source audio.
type Segment struct {
	Index           int
	StartSeconds    float64
	DurationSeconds float64
	FilePath        string // set once the clip has been materialized
}

// SegmentTranscript pairs a segment index with its transcribed text.
type SegmentTranscript struct {
	SegmentIndex int
	Text         string
}

// OccurrenceRecord reports phrase hits within a single segment.
type OccurrenceRecord struct {
	Filename    string `json:"filename"`
	Minute      int    `json:"minute"`
	Occurrences int    `json:"occurrences"`
}

// VideoResult is the aggregated, persisted output for one video.
type VideoResult struct {
	VideoID          string             `json:"video_id"`
	YouTubeURL       string             `json:"youtube_url"`
	Phrase           string             `json:"phrase"`
	DurationSeconds  float64            `json:"video_duration_sec"`
	DurationMinutes  float64            `json:"video_duration_min"`
	TotalWords       int                `json:"total_words"`
	TotalChars       int                `json:"total_chars"`
	TotalOccurrences int                `json:"total_occurrences"`
	Occurrences      []OccurrenceRecord `json:"files_with_phrase"`
	ProcessedAt      time.Time          `json:"processed_at"`
}
