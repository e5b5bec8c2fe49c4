package media

import (
	"regexp"

	"github.com/google/uuid"
)

var videoIDPattern = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11}).*`)

// ExtractVideoID derives a stable video id from a YouTube URL. Unparseable
// URLs fall back to a random id, which is not reproducible across runs and
// therefore defeats dedup for that video.
func ExtractVideoID(youtubeURL string) string {
	if m := videoIDPattern.FindStringSubmatch(youtubeURL); m != nil {
		return m[1]
	}
	return uuid.New().String()[:11]
}
