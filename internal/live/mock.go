package live

import (
	"context"
	"fmt"
	"strings"

	"github.com/antoniostano/lexivoice/internal/audio"
	"github.com/antoniostano/lexivoice/internal/session"
	"github.com/antoniostano/lexivoice/internal/speech"
)

// MockVoice is a local fallback provider used when no upstream API key is
// configured. It lets the whole pipeline run end to end without network.
type MockVoice struct{}

func NewMockVoice() MockVoice { return MockVoice{} }

func (MockVoice) Transcribe(_ context.Context, audioBytes []byte, _ string) (string, error) {
	if len(audioBytes) == 0 {
		return "", nil
	}
	return "simulated voice input", nil
}

func (MockVoice) Complete(_ context.Context, turns []session.Turn) (string, error) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == session.RoleUser {
			return fmt.Sprintf("I heard: %s", strings.TrimSpace(turns[i].Content)), nil
		}
	}
	return "I did not catch that.", nil
}

func (MockVoice) Synthesize(_ context.Context, _ string) ([]byte, string, error) {
	// Half a second of silence; enough for playback paths to exercise.
	return audio.WrapPCM16LE(make([]byte, 16000), 16000, 1), speech.MIMEWAV, nil
}
