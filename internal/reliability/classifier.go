package reliability

import "time"

// IsRetryableHTTPStatus classifies upstream HTTP statuses worth one more
// in-process attempt before the failure is surfaced to the caller.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsClientInputStatus reports whether an upstream status indicates the
// request payload itself was rejected (malformed or unsupported audio).
// These are never retried with the same bytes.
func IsClientInputStatus(code int) bool {
	return code >= 400 && code < 500 && code != 429
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
