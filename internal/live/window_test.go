package live

import (
	"strings"
	"testing"

	"github.com/antoniostano/lexivoice/internal/session"
)

// wordCounter counts whitespace-separated words, standing in for the BPE
// encoder so tests stay offline.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func turnsOf(contents ...string) []session.Turn {
	turns := make([]session.Turn, 0, len(contents))
	for i, c := range contents {
		role := session.RoleUser
		switch {
		case i == 0:
			role = session.RoleSystem
		case i%2 == 0:
			role = session.RoleAssistant
		}
		turns = append(turns, session.Turn{Role: role, Content: c})
	}
	return turns
}

func TestTrimDisabledBudgetReturnsAll(t *testing.T) {
	w := newWindowWithCounter(wordCounter{}, 0)
	turns := turnsOf("persona", "one", "two", "three")
	if got := w.Trim(turns); len(got) != len(turns) {
		t.Fatalf("Trim() returned %d turns, want %d", len(got), len(turns))
	}
}

func TestTrimNilWindowReturnsAll(t *testing.T) {
	var w *TranscriptWindow
	turns := turnsOf("persona", "one", "two")
	if got := w.Trim(turns); len(got) != len(turns) {
		t.Fatalf("nil window Trim() returned %d turns, want %d", len(got), len(turns))
	}
}

func TestTrimFitsWithinBudgetUntouched(t *testing.T) {
	w := newWindowWithCounter(wordCounter{}, 1000)
	turns := turnsOf("persona", "short question", "short answer", "another question")
	got := w.Trim(turns)
	if len(got) != len(turns) {
		t.Fatalf("Trim() dropped turns that fit: %d of %d kept", len(got), len(turns))
	}
}

func TestTrimKeepsSystemAndNewestSuffix(t *testing.T) {
	// Each turn costs words + 4 overhead. System: 1+4=5. Each body turn
	// below: 2+4=6. Budget 23 leaves 18 after the system turn, fitting
	// exactly the newest three body turns.
	w := newWindowWithCounter(wordCounter{}, 23)
	turns := turnsOf("persona",
		"old question", "old answer",
		"mid question", "mid answer",
		"new question")

	got := w.Trim(turns)
	if len(got) != 4 {
		t.Fatalf("Trim() kept %d turns, want 4", len(got))
	}
	if got[0].Role != session.RoleSystem || got[0].Content != "persona" {
		t.Fatalf("system turn not preserved: %+v", got[0])
	}
	want := []string{"mid question", "mid answer", "new question"}
	for i, content := range want {
		if got[i+1].Content != content {
			t.Fatalf("kept turn %d = %q, want %q", i+1, got[i+1].Content, content)
		}
	}
}

func TestTrimAlwaysKeepsNewestTurn(t *testing.T) {
	w := newWindowWithCounter(wordCounter{}, 8)
	turns := turnsOf("persona",
		"an earlier exchange",
		"a very long newest question that blows past the whole budget on its own")

	got := w.Trim(turns)
	if len(got) != 2 {
		t.Fatalf("Trim() kept %d turns, want 2", len(got))
	}
	if got[1].Content != turns[2].Content {
		t.Fatalf("newest turn dropped: kept %q", got[1].Content)
	}
}

func TestTrimDoesNotMutateInput(t *testing.T) {
	w := newWindowWithCounter(wordCounter{}, 15)
	turns := turnsOf("persona", "first exchange here", "second exchange here", "third exchange here")
	before := make([]session.Turn, len(turns))
	copy(before, turns)

	w.Trim(turns)

	for i := range before {
		if turns[i] != before[i] {
			t.Fatalf("Trim() mutated input at %d: %+v", i, turns[i])
		}
	}
}
