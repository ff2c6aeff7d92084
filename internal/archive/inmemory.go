package archive

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps archived turns in process memory for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]TurnRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string][]TurnRecord)}
}

func (s *InMemoryStore) SaveTurn(_ context.Context, record TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.records[record.SessionID] = append(s.records[record.SessionID], record)
	return nil
}

// SessionTurns returns the archived turns of one session in write order.
// Tests and local debugging use it; the service itself never reads back.
func (s *InMemoryStore) SessionTurns(sessionID string) []TurnRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.records[sessionID]
	out := make([]TurnRecord, len(arr))
	copy(out, arr)
	return out
}

func (s *InMemoryStore) Close() error { return nil }
