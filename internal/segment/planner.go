package segment

import (
	"fmt"

	"github.com/davidbmar/youtube-commercial-detector/internal/types"
)

// Plan computes sliding-window segment boundaries covering the whole
// duration. With overlap=0 the windows tile back to back; with overlap>0
// consecutive windows share `overlap` seconds so a phrase straddling a
// boundary still lands fully inside one window.
//
// The final window's nominal end may run past totalSeconds; ffmpeg
// truncates it when the clip is cut, so no clamping happens here.
func Plan(totalSeconds, segmentSeconds, overlapSeconds float64) ([]types.Segment, error) {
	if totalSeconds <= 0 {
		return nil, fmt.Errorf("total duration must be positive, got %v", totalSeconds)
	}
	if segmentSeconds <= 0 {
		return nil, fmt.Errorf("segment duration must be positive, got %v", segmentSeconds)
	}
	if overlapSeconds < 0 || overlapSeconds >= segmentSeconds {
		return nil, fmt.Errorf("overlap must satisfy 0 <= overlap < segment duration, got overlap=%v segment=%v",
			overlapSeconds, segmentSeconds)
	}

	step := segmentSeconds - overlapSeconds
	var segments []types.Segment
	for start := 0.0; start < totalSeconds; start += step {
		segments = append(segments, types.Segment{
			Index:           len(segments),
			StartSeconds:    start,
			DurationSeconds: segmentSeconds,
		})
	}
	return segments, nil
}
