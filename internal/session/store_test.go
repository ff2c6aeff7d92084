package session

import (
	"context"
	"testing"
	"time"
)

func TestStoreCreateGetEnd(t *testing.T) {
	s := NewStore(time.Minute)
	sess := s.Create("be helpful")
	if sess.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := s.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Transcript) != 1 {
		t.Fatalf("transcript length = %d, want 1", len(got.Transcript))
	}
	if got.Transcript[0].Role != RoleSystem || got.Transcript[0].Content != "be helpful" {
		t.Fatalf("unexpected seed turn: %+v", got.Transcript[0])
	}

	ended, err := s.End(sess.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.ID != sess.ID {
		t.Fatalf("ended ID = %q, want %q", ended.ID, sess.ID)
	}
	if _, err := s.Get(sess.ID); err != ErrNotFound {
		t.Fatalf("Get() after End() error = %v, want ErrNotFound", err)
	}
	if _, err := s.End(sess.ID); err != ErrNotFound {
		t.Fatalf("second End() error = %v, want ErrNotFound", err)
	}
}

func TestStoreMutatorsNoOpOnAbsentID(t *testing.T) {
	s := NewStore(time.Minute)

	s.Touch("ghost")
	s.IncrementChunks("ghost")
	s.AppendUserTurn("ghost", "hello")
	s.AppendAssistantTurn("ghost", "hi")

	if n := s.ActiveCount(); n != 0 {
		t.Fatalf("ActiveCount() = %d after ghost mutations, want 0", n)
	}
	if _, err := s.Get("ghost"); err != ErrNotFound {
		t.Fatalf("Get(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestStoreAppendTurns(t *testing.T) {
	s := NewStore(time.Minute)
	sess := s.Create("persona")

	s.AppendUserTurn(sess.ID, "question")
	s.AppendAssistantTurn(sess.ID, "answer")
	s.IncrementChunks(sess.ID)

	got, err := s.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ChunkCount != 1 {
		t.Fatalf("ChunkCount = %d, want 1", got.ChunkCount)
	}
	want := []Turn{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "answer"},
	}
	if len(got.Transcript) != len(want) {
		t.Fatalf("transcript length = %d, want %d", len(got.Transcript), len(want))
	}
	for i, turn := range want {
		if got.Transcript[i] != turn {
			t.Fatalf("transcript[%d] = %+v, want %+v", i, got.Transcript[i], turn)
		}
	}
}

func TestStoreCloneIsolation(t *testing.T) {
	s := NewStore(time.Minute)
	sess := s.Create("persona")

	// Mutating the returned clone must not leak into the store.
	sess.Transcript[0].Content = "tampered"
	sess.Transcript = append(sess.Transcript, Turn{Role: RoleUser, Content: "injected"})

	got, err := s.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Transcript) != 1 || got.Transcript[0].Content != "persona" {
		t.Fatalf("store state leaked through clone: %+v", got.Transcript)
	}
}

func TestStoreLastActivityMonotonic(t *testing.T) {
	s := NewStore(time.Minute)
	sess := s.Create("persona")

	prev := sess.LastActivity
	for i := 0; i < 3; i++ {
		time.Sleep(2 * time.Millisecond)
		s.Touch(sess.ID)
		got, err := s.Get(sess.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.LastActivity.Before(prev) {
			t.Fatalf("LastActivity went backwards: %v < %v", got.LastActivity, prev)
		}
		prev = got.LastActivity
	}
}

func TestStorePruneEvictsIdleSessions(t *testing.T) {
	s := NewStore(time.Minute)
	stale := s.Create("persona")
	fresh := s.Create("persona")

	// Backdate the stale session past the timeout.
	s.mu.Lock()
	s.sessions[stale.ID].LastActivity = time.Now().UTC().Add(-51 * time.Millisecond)
	s.sessions[fresh.ID].LastActivity = time.Now().UTC().Add(-49 * time.Millisecond)
	s.mu.Unlock()

	var expired []string
	s.SetExpireHook(func(sess *Session) {
		expired = append(expired, sess.ID)
	})

	if n := s.Prune(50 * time.Millisecond); n != 1 {
		t.Fatalf("Prune() = %d, want 1", n)
	}
	if _, err := s.Get(stale.ID); err != ErrNotFound {
		t.Fatalf("stale session still present after prune")
	}
	if _, err := s.Get(fresh.ID); err != nil {
		t.Fatalf("fresh session evicted: %v", err)
	}
	if len(expired) != 1 || expired[0] != stale.ID {
		t.Fatalf("expire hook calls = %v, want [%s]", expired, stale.ID)
	}
}

func TestStoreJanitorEvicts(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	sess := s.Create("persona")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartJanitor(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := s.Get(sess.ID); err == ErrNotFound {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("janitor did not evict idle session")
}
