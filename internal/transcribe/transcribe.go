package transcribe

import "context"

// Word is a word-level timestamp returned by providers that support them.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Result is the provider output for one audio clip.
type Result struct {
	Text  string
	Words []Word // optional, provider-dependent
}

// Provider transcribes a single audio clip. Implementations wrap either a
// local model subprocess or a remote HTTP transcription service.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, clipPath, languageHint string) (Result, error)
	// Ping verifies the provider is usable; called once at startup so a
	// half-initialized worker never starts consuming the queue.
	Ping(ctx context.Context) error
}
