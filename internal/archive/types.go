package archive

import (
	"context"
	"time"

	"github.com/antoniostano/lexivoice/internal/session"
)

// TurnRecord is one archived transcript turn. Content is stored after PII
// redaction; Redacted reports whether anything was masked.
type TurnRecord struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Role      session.Role `json:"role"`
	Content   string       `json:"content"`
	Redacted  bool         `json:"redacted"`
	CreatedAt time.Time    `json:"created_at"`
}

// Store is a write-only audit sink for completed turns. Writes are
// best-effort from the turn processor's point of view: a failed archive
// write never fails the turn.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	Close() error
}
