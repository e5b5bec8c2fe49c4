package media

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Tools runs the external media commands (yt-dlp, ffmpeg, ffprobe) that the
// pipeline delegates download, conversion, probing and clip extraction to.
type Tools struct {
	logger *slog.Logger
}

func NewTools(logger *slog.Logger) *Tools {
	return &Tools{logger: logger}
}

// Download fetches the audio-only stream of a YouTube video into dir using
// yt-dlp. Requires yt-dlp on PATH (pip install yt-dlp).
func (t *Tools) Download(ctx context.Context, youtubeURL, dir string) (string, error) {
	outputPath := filepath.Join(dir, "audio.m4a")
	t.logger.Info("downloading audio", "url", youtubeURL)

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-x", // Extract audio
		"--audio-format", "m4a",
		"-o", outputPath,
		youtubeURL,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %v\noutput: %s", err, string(output))
	}
	return outputPath, nil
}

// ConvertToWAV converts a downloaded audio file to 16kHz mono PCM WAV, the
// input format the transcription providers expect.
func (t *Tools) ConvertToWAV(ctx context.Context, inputPath string) (string, error) {
	outputPath := filepath.Join(filepath.Dir(inputPath), "audio.wav")

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-ar", "16000", // 16kHz sample rate
		"-ac", "1", // Mono
		"-c:a", "pcm_s16le", // 16-bit PCM
		"-y", // Overwrite output
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg conversion failed: %v\noutput: %s", err, string(output))
	}
	return outputPath, nil
}

// Probe returns the duration of an audio file in seconds via ffprobe.
func (t *Tools) Probe(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return 0, fmt.Errorf("ffprobe failed: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q: %w", output, err)
	}
	return duration, nil
}

// ExtractClip cuts a window out of wavPath starting at startSeconds and
// lasting durationSeconds. ffmpeg silently truncates a window that runs
// past the end of the source, so the caller need not clamp.
func (t *Tools) ExtractClip(ctx context.Context, wavPath string, index int, startSeconds, durationSeconds float64) (string, error) {
	outputPath := filepath.Join(filepath.Dir(wavPath), fmt.Sprintf("segment_%03d.wav", index))

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-ss", formatSeconds(startSeconds),
		"-t", formatSeconds(durationSeconds),
		"-i", wavPath,
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg clip extraction failed: %v\noutput: %s", err, string(output))
	}
	return outputPath, nil
}

// formatSeconds renders a duration for ffmpeg without exponent notation.
func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
