package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Action discriminates the live request variants.
type Action string

const (
	ActionStart Action = "start"
	ActionChunk Action = "chunk"
	ActionStop  Action = "stop"
)

var ErrUnsupportedAction = errors.New("unsupported action")

type envelope struct {
	Action      Action `json:"action"`
	SessionID   string `json:"session_id"`
	Base64Audio string `json:"base64_audio"`
	MimeType    string `json:"mime_type"`
}

// StartRequest opens a new live session.
type StartRequest struct{}

// ChunkRequest submits one audio chunk for one turn. Base64Audio is the
// transport encoding; decoding happens at the handler boundary.
type ChunkRequest struct {
	SessionID   string
	Base64Audio string
	MimeType    string
}

// StopRequest ends a live session.
type StopRequest struct {
	SessionID string
}

// ParseLiveRequest decodes the action-discriminated request body into one
// of StartRequest, ChunkRequest, or StopRequest, validating each shape
// independently.
func ParseLiveRequest(raw []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}

	switch env.Action {
	case ActionStart:
		return StartRequest{}, nil
	case ActionChunk:
		if strings.TrimSpace(env.SessionID) == "" {
			return nil, errors.New("chunk requires session_id")
		}
		if env.Base64Audio == "" {
			return nil, errors.New("chunk requires base64_audio")
		}
		return ChunkRequest{
			SessionID:   env.SessionID,
			Base64Audio: env.Base64Audio,
			MimeType:    env.MimeType,
		}, nil
	case ActionStop:
		if strings.TrimSpace(env.SessionID) == "" {
			return nil, errors.New("stop requires session_id")
		}
		return StopRequest{SessionID: env.SessionID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, env.Action)
	}
}

// StartResponse carries the new session handle. ExpiresIn is the idle
// timeout in seconds after which an untouched session is evicted.
type StartResponse struct {
	SessionID string `json:"session_id"`
	ExpiresIn int    `json:"expires_in"`
}

// TurnReply is the assistant half of a completed turn. AudioBase64 is
// empty when speech synthesis failed and the turn degraded to text-only.
type TurnReply struct {
	Text        string `json:"text"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

// TurnResponse is the successful outcome of one processed chunk.
type TurnResponse struct {
	Transcript string    `json:"transcript"`
	Response   TurnReply `json:"response"`
}

// StopResponse acknowledges session teardown.
type StopResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the uniform error body. Code is a stable machine
// readable category; Error is a human-readable message safe to show.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
