package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// HTTPProvider calls an OpenAI-compatible transcription endpoint
// (POST {base}/v1/audio/transcriptions, multipart file + language).
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Name() string { return "whisper-http" }

type httpResponse struct {
	Text  string `json:"text"`
	Words []Word `json:"words"`
}

// Transcribe uploads the clip and returns the service's text plus word
// timestamps when the service includes them.
func (p *HTTPProvider) Transcribe(ctx context.Context, clipPath, languageHint string) (Result, error) {
	f, err := os.Open(clipPath)
	if err != nil {
		return Result{}, fmt.Errorf("open clip: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(clipPath))
	if err != nil {
		return Result{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return Result{}, fmt.Errorf("copy clip data: %w", err)
	}
	if languageHint != "" {
		if err := mw.WriteField("language", languageHint); err != nil {
			return Result{}, fmt.Errorf("write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return Result{}, fmt.Errorf("close multipart writer: %w", err)
	}

	url := p.baseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("transcription service returned %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var parsed httpResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	return Result{Text: parsed.Text, Words: parsed.Words}, nil
}

// Ping hits the service root to confirm it is reachable.
func (p *HTTPProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("transcription service unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("transcription service unhealthy: http %d", resp.StatusCode)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
