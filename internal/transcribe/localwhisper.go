package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// LocalWhisper runs Python's Whisper as a subprocess (python -m whisper)
// and reads its JSON output file. Requires the whisper package installed
// in the python on PATH.
type LocalWhisper struct {
	model  string
	device string // cpu or cuda
}

func NewLocalWhisper(model, device string) *LocalWhisper {
	if model == "" {
		model = "small"
	}
	if device == "" {
		device = "cpu"
	}
	return &LocalWhisper{model: model, device: device}
}

func (w *LocalWhisper) Name() string { return "whisper-local" }

// whisperOutput matches Python Whisper's JSON output format.
type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
		Words []Word  `json:"words"`
	} `json:"segments"`
}

func (w *LocalWhisper) Transcribe(ctx context.Context, clipPath, languageHint string) (Result, error) {
	outDir, err := os.MkdirTemp(filepath.Dir(clipPath), "whisper_output")
	if err != nil {
		return Result{}, fmt.Errorf("create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	absClip, err := filepath.Abs(clipPath)
	if err != nil {
		return Result{}, fmt.Errorf("resolve clip path: %w", err)
	}

	args := []string{"-m", "whisper",
		absClip,
		"--model", w.model,
		"--device", w.device,
		"--output_dir", outDir,
		"--output_format", "json",
		"--word_timestamps", "True",
	}
	if languageHint != "" {
		args = append(args, "--language", languageHint)
	}
	if w.device == "cpu" {
		args = append(args, "--fp16", "False") // fp16 is GPU-only
	}

	cmd := exec.CommandContext(ctx, "python", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("whisper failed: %v\noutput: %s", err, string(output))
	}

	baseName := strings.TrimSuffix(filepath.Base(clipPath), filepath.Ext(clipPath))
	jsonPath := filepath.Join(outDir, baseName+".json")
	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		return Result{}, fmt.Errorf("read whisper output: %w", err)
	}

	var parsed whisperOutput
	if err := json.Unmarshal(jsonData, &parsed); err != nil {
		return Result{}, fmt.Errorf("parse whisper JSON: %w", err)
	}

	result := Result{Text: strings.TrimSpace(parsed.Text)}
	for _, seg := range parsed.Segments {
		result.Words = append(result.Words, seg.Words...)
	}
	return result, nil
}

// Ping confirms the whisper module is importable before the batch starts.
func (w *LocalWhisper) Ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "python", "-c", "import whisper")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("whisper is not installed: %v\noutput: %s", err, string(output))
	}
	return nil
}
