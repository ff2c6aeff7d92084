package archive

import (
	"context"
	"testing"

	"github.com/antoniostano/lexivoice/internal/session"
)

func TestInMemoryStoreSaveTurn(t *testing.T) {
	s := NewInMemoryStore()

	err := s.SaveTurn(context.Background(), TurnRecord{
		SessionID: "s1",
		Role:      session.RoleUser,
		Content:   "what does the clause mean",
	})
	if err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}
	err = s.SaveTurn(context.Background(), TurnRecord{
		SessionID: "s1",
		Role:      session.RoleAssistant,
		Content:   "it limits liability",
	})
	if err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	turns := s.SessionTurns("s1")
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if turns[0].ID == "" || turns[0].CreatedAt.IsZero() {
		t.Fatalf("record defaults not applied: %+v", turns[0])
	}
	if turns[0].Role != session.RoleUser || turns[1].Role != session.RoleAssistant {
		t.Fatalf("role order = %q, %q", turns[0].Role, turns[1].Role)
	}
	if len(s.SessionTurns("other")) != 0 {
		t.Fatalf("unexpected turns for unknown session")
	}
}

func TestNewStoreDefaultsToInMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("NewStore(\"\") = %T, want *InMemoryStore", s)
	}
}
