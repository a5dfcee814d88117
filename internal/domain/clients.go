package domain

import "context"

// CompletionClient produces one completion for a system instruction and a
// user prompt.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SpeechClient transcribes caller audio and synthesizes spoken responses.
type SpeechClient interface {
	Transcribe(ctx context.Context, audio []byte, mime string) (string, error)
	Synthesize(ctx context.Context, text string) (audio []byte, mime string, err error)
}
