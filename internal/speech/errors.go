package speech

import (
	"errors"
	"fmt"

	"github.com/antoniostano/lexivoice/internal/reliability"
)

// UpstreamError carries the HTTP status an upstream capability answered
// with. The raw detail is for server-side logs only and must never be
// forwarded to clients verbatim.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Detail)
}

// IsInvalidInput reports whether the upstream rejected the submitted
// payload itself (4xx-class, excluding throttling). The session survives;
// the client may retry with a different chunk.
func IsInvalidInput(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return reliability.IsClientInputStatus(ue.Status)
	}
	return false
}

// IsUnavailable reports whether the failure is a temporary upstream
// condition: explicit 5xx/429 answers, timeouts, or network failures.
// Anything that is not an invalid-input rejection counts as unavailable.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return !reliability.IsClientInputStatus(ue.Status)
	}
	// Network failures and timeouts never produce an UpstreamError.
	return true
}
