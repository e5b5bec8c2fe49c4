package scan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/davidbmar/youtube-commercial-detector/internal/types"
)

// Stats aggregates phrase occurrences and basic text statistics across an
// ordered set of segment transcripts.
type Stats struct {
	DurationSeconds  float64
	DurationMinutes  float64
	TotalWords       int
	TotalChars       int
	TotalOccurrences int
	Occurrences      []types.OccurrenceRecord
}

// Scan counts case-insensitive literal occurrences of phrase in each
// transcript and rolls up totals. The minute label is index+1, which only
// lines up with wall-clock minutes for 60s/no-overlap segmentation; callers
// running other window sizes should place hits via the segment start time.
// The duration estimate counts a trailing partial segment as full.
func Scan(transcripts []types.SegmentTranscript, phrase string, segmentSeconds float64) Stats {
	pattern := regexp.MustCompile("(?i)" + regexp.QuoteMeta(phrase))

	stats := Stats{}
	for _, tr := range transcripts {
		count := len(pattern.FindAllStringIndex(tr.Text, -1))
		stats.TotalOccurrences += count
		stats.TotalWords += len(strings.Fields(tr.Text))
		stats.TotalChars += len(tr.Text)

		if count > 0 {
			stats.Occurrences = append(stats.Occurrences, types.OccurrenceRecord{
				Filename:    fmt.Sprintf("segment_%03d.txt", tr.SegmentIndex),
				Minute:      tr.SegmentIndex + 1,
				Occurrences: count,
			})
		}
	}

	stats.DurationSeconds = float64(len(transcripts)) * segmentSeconds
	stats.DurationMinutes = stats.DurationSeconds / 60
	return stats
}
