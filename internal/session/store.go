package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a transcript turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var ErrNotFound = errors.New("session not found")

// Turn is one transcript entry of a live session.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is one ongoing voice conversation. The transcript always starts
// with exactly one system turn and is never truncated while the session
// lives; the store owns every instance and hands out clones only.
type Session struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ChunkCount   int       `json:"chunk_count"`
	Transcript   []Turn    `json:"transcript"`
}

// Store is the process-wide registry of live voice sessions. All mutators
// taking a session id are idempotent no-ops when the id is absent (already
// pruned, ended, or never created); callers must not treat that as fatal.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	onExpire    func(*Session)
}

func NewStore(idleTimeout time.Duration) *Store {
	if idleTimeout <= 0 {
		idleTimeout = time.Minute
	}
	return &Store{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
	}
}

// IdleTimeout reports the configured eviction threshold.
func (s *Store) IdleTimeout() time.Duration {
	return s.idleTimeout
}

// SetExpireHook registers a callback invoked for every pruned session.
func (s *Store) SetExpireHook(hook func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = hook
}

// Create registers a new session seeded with the given system persona turn.
// It cannot fail; ids are fresh UUIDs and never reused.
func (s *Store) Create(systemPrompt string) *Session {
	now := time.Now().UTC()
	sess := &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
		Transcript:   []Turn{{Role: RoleSystem, Content: systemPrompt}},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return clone(sess)
}

// Get returns a clone of the session or ErrNotFound. No side effects.
func (s *Store) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(sess), nil
}

// Touch refreshes the session's activity timestamp.
func (s *Store) Touch(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.LastActivity = time.Now().UTC()
	}
}

// IncrementChunks advances the diagnostic chunk counter and refreshes
// activity.
func (s *Store) IncrementChunks(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.ChunkCount++
		sess.LastActivity = time.Now().UTC()
	}
}

// AppendUserTurn pushes a user transcript turn and refreshes activity.
func (s *Store) AppendUserTurn(sessionID, content string) {
	s.appendTurn(sessionID, Turn{Role: RoleUser, Content: content})
}

// AppendAssistantTurn pushes an assistant transcript turn and refreshes
// activity.
func (s *Store) AppendAssistantTurn(sessionID, content string) {
	s.appendTurn(sessionID, Turn{Role: RoleAssistant, Content: content})
}

func (s *Store) appendTurn(sessionID string, t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.Transcript = append(sess.Transcript, t)
		sess.LastActivity = time.Now().UTC()
	}
}

// End removes the session from the registry and returns its final state,
// or ErrNotFound. A removed id is gone for good.
func (s *Store) End(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.sessions, sessionID)
	return clone(sess), nil
}

// Prune removes every session idle longer than idleTimeout and reports how
// many were evicted. It is O(live sessions) and cheap enough to run on
// every inbound request.
func (s *Store) Prune(idleTimeout time.Duration) int {
	if idleTimeout <= 0 {
		idleTimeout = s.idleTimeout
	}
	now := time.Now().UTC()
	var expired []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActivity) <= idleTimeout {
			continue
		}
		delete(s.sessions, id)
		expired = append(expired, clone(sess))
	}
	hook := s.onExpire
	s.mu.Unlock()

	if hook != nil {
		for _, sess := range expired {
			hook(sess)
		}
	}
	return len(expired)
}

// StartJanitor runs a background sweep until ctx is cancelled. Pruning on
// request handling stays in place; the janitor only bounds how long an
// abandoned session can linger between requests.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Prune(s.idleTimeout)
			}
		}
	}()
}

// ActiveCount reports how many sessions are currently registered.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func clone(sess *Session) *Session {
	c := *sess
	c.Transcript = make([]Turn, len(sess.Transcript))
	copy(c.Transcript, sess.Transcript)
	return &c
}
