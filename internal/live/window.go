package live

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/antoniostano/lexivoice/internal/session"
)

// perTurnOverhead approximates the chat-format framing tokens added per
// message by the completion upstream.
const perTurnOverhead = 4

type tokenCounter interface {
	Count(text string) int
}

// TranscriptWindow trims the completion payload to a token budget. The
// stored transcript is never touched; only the slice sent upstream
// shrinks. The system turn and the newest turn always survive trimming.
type TranscriptWindow struct {
	counter tokenCounter
	budget  int
}

// NewTranscriptWindow builds a window sized in tokens of the given model's
// encoding. A budget of zero or below disables trimming.
func NewTranscriptWindow(model string, budget int) (*TranscriptWindow, error) {
	if budget <= 0 {
		return &TranscriptWindow{budget: 0}, nil
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown model ids fall back to the encoding modern chat models share.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &TranscriptWindow{counter: tiktokenCounter{enc: enc}, budget: budget}, nil
}

func newWindowWithCounter(counter tokenCounter, budget int) *TranscriptWindow {
	return &TranscriptWindow{counter: counter, budget: budget}
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Trim returns the turns to send upstream. The first turn is assumed to be
// the system persona; it is always kept, followed by the newest suffix of
// the remaining turns that fits the budget. At minimum the newest turn is
// kept even when it alone exceeds the budget.
func (w *TranscriptWindow) Trim(turns []session.Turn) []session.Turn {
	if w == nil || w.budget <= 0 || len(turns) <= 2 {
		return turns
	}

	remaining := w.budget - w.cost(turns[0])
	body := turns[1:]

	keepFrom := len(body) - 1
	remaining -= w.cost(body[keepFrom])
	for keepFrom > 0 && remaining-w.cost(body[keepFrom-1]) >= 0 {
		keepFrom--
		remaining -= w.cost(body[keepFrom])
	}
	if keepFrom == 0 {
		return turns
	}

	out := make([]session.Turn, 0, 1+len(body)-keepFrom)
	out = append(out, turns[0])
	out = append(out, body[keepFrom:]...)
	return out
}

func (w *TranscriptWindow) cost(t session.Turn) int {
	return w.counter.Count(t.Content) + perTurnOverhead
}
