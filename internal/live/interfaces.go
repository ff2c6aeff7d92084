package live

import (
	"context"

	"github.com/antoniostano/lexivoice/internal/session"
)

// Transcriber converts an audio chunk with a declared MIME type to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Completer turns an ordered transcript into the next assistant reply.
type Completer interface {
	Complete(ctx context.Context, turns []session.Turn) (string, error)
}

// Synthesizer converts reply text to audio bytes plus their MIME type.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
}
