package livecall

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/antoniostano/lexivoice/internal/protocol"
)

// Failure categories a caller can act on. A gone session means restart;
// an unavailable gateway means try again later; anything else is a
// per-chunk rejection the next chunk may not hit.
var (
	ErrSessionGone = errors.New("live session gone")
	ErrUnavailable = errors.New("live gateway unavailable")
	ErrNoSpeech    = errors.New("no speech detected")
	ErrRejected    = errors.New("chunk rejected")
)

// Gateway is the server side of a live call as the controller sees it.
type Gateway interface {
	Start(ctx context.Context) (protocol.StartResponse, error)
	Chunk(ctx context.Context, sessionID string, audio []byte, mimeType string) (protocol.TurnResponse, error)
	Stop(ctx context.Context, sessionID string) error
}

// HTTPGateway drives the action-discriminated POST endpoint.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (g *HTTPGateway) Start(ctx context.Context) (protocol.StartResponse, error) {
	var out protocol.StartResponse
	err := g.post(ctx, map[string]any{"action": "start"}, &out)
	return out, err
}

func (g *HTTPGateway) Chunk(ctx context.Context, sessionID string, audio []byte, mimeType string) (protocol.TurnResponse, error) {
	var out protocol.TurnResponse
	err := g.post(ctx, map[string]any{
		"action":       "chunk",
		"session_id":   sessionID,
		"base64_audio": base64.StdEncoding.EncodeToString(audio),
		"mime_type":    mimeType,
	}, &out)
	return out, err
}

func (g *HTTPGateway) Stop(ctx context.Context, sessionID string) error {
	var out protocol.StopResponse
	return g.post(ctx, map[string]any{"action": "stop", "session_id": sessionID}, &out)
}

func (g *HTTPGateway) post(ctx context.Context, body map[string]any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/audio/live", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var fail protocol.ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&fail)
		return classifyStatus(res.StatusCode, fail)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func classifyStatus(status int, fail protocol.ErrorResponse) error {
	detail := fail.Error
	if detail == "" {
		detail = http.StatusText(status)
	}
	switch {
	case status == http.StatusGone:
		return fmt.Errorf("%w: %s", ErrSessionGone, detail)
	case status == http.StatusUnprocessableEntity:
		return ErrNoSpeech
	case status >= 500:
		return fmt.Errorf("%w: %s", ErrUnavailable, detail)
	default:
		return fmt.Errorf("%w: %s", ErrRejected, detail)
	}
}
