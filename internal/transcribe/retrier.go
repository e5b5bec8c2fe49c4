package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// Retrier wraps a Provider with retry and exponential backoff. Exhausted
// retries degrade to an empty transcript instead of an error: a segment
// that cannot be transcribed reads as "no text found" and never fails the
// video, let alone the batch.
type Retrier struct {
	provider      Provider
	retries       int
	backoffFactor float64
	logger        *slog.Logger

	sleep func(time.Duration) // replaced in tests
}

// NewRetrier builds a retrying client. retries <= 0 defaults to 3 attempts
// and backoffFactor <= 0 defaults to 2.
func NewRetrier(provider Provider, retries int, backoffFactor float64, logger *slog.Logger) *Retrier {
	if retries <= 0 {
		retries = 3
	}
	if backoffFactor <= 0 {
		backoffFactor = 2
	}
	return &Retrier{
		provider:      provider,
		retries:       retries,
		backoffFactor: backoffFactor,
		logger:        logger,
		sleep:         time.Sleep,
	}
}

// Transcribe attempts the provider call up to the configured number of
// times, sleeping backoffFactor^attempt seconds after each failure except
// the last. Word timestamps, when the provider returns them, are appended
// to the text as auxiliary metadata.
func (r *Retrier) Transcribe(ctx context.Context, clipPath, languageHint string) string {
	for attempt := 0; attempt < r.retries; attempt++ {
		result, err := r.provider.Transcribe(ctx, clipPath, languageHint)
		if err == nil {
			return renderResult(result)
		}

		r.logger.Warn("transcription attempt failed",
			"provider", r.provider.Name(),
			"clip", clipPath,
			"attempt", attempt+1,
			"error", err)

		if attempt < r.retries-1 {
			r.sleep(time.Duration(math.Pow(r.backoffFactor, float64(attempt)) * float64(time.Second)))
		}
	}

	r.logger.Error("transcription failed after all retries, treating segment as empty",
		"provider", r.provider.Name(),
		"clip", clipPath,
		"attempts", r.retries)
	return ""
}

// renderResult flattens a provider result to the persisted text form.
func renderResult(res Result) string {
	text := strings.TrimSpace(res.Text)
	if len(res.Words) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\nWord Timestamps: ")
	for i, w := range res.Words {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s[%.2f-%.2f]", w.Word, w.Start, w.End)
	}
	return b.String()
}
