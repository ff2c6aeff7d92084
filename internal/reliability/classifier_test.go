package reliability

import (
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableHTTPStatus(code) {
			t.Errorf("IsRetryableHTTPStatus(%d) = false, want true", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404, 410, 422} {
		if IsRetryableHTTPStatus(code) {
			t.Errorf("IsRetryableHTTPStatus(%d) = true, want false", code)
		}
	}
}

func TestIsClientInputStatus(t *testing.T) {
	for _, code := range []int{400, 404, 413, 415, 422} {
		if !IsClientInputStatus(code) {
			t.Errorf("IsClientInputStatus(%d) = false, want true", code)
		}
	}
	for _, code := range []int{429, 500, 503, 200} {
		if IsClientInputStatus(code) {
			t.Errorf("IsClientInputStatus(%d) = true, want false", code)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	cap := time.Second

	if got := ExponentialBackoff(0, base, cap); got != base {
		t.Fatalf("attempt 0 = %v, want %v", got, base)
	}
	if got := ExponentialBackoff(1, base, cap); got != 200*time.Millisecond {
		t.Fatalf("attempt 1 = %v, want 200ms", got)
	}
	if got := ExponentialBackoff(10, base, cap); got != cap {
		t.Fatalf("attempt 10 = %v, want cap %v", got, cap)
	}
}
