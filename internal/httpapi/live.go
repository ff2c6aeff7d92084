package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/antoniostano/lexivoice/internal/live"
	"github.com/antoniostano/lexivoice/internal/protocol"
	"github.com/antoniostano/lexivoice/internal/speech"
)

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	// Opportunistic eviction before any lookup, so an expired session id
	// is gone rather than merely stale.
	s.pruneSessions()

	raw, err := readBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "request body required")
		return
	}

	req, err := protocol.ParseLiveRequest(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	switch req := req.(type) {
	case protocol.StartRequest:
		status, body := s.doStart()
		respondJSON(w, status, body)
	case protocol.ChunkRequest:
		status, body := s.doChunk(r.Context(), req)
		respondJSON(w, status, body)
	case protocol.StopRequest:
		status, body := s.doStop(req)
		respondJSON(w, status, body)
	default:
		respondError(w, http.StatusBadRequest, "invalid_request", "unsupported action")
	}
}

func (s *Server) doStart() (int, any) {
	sess := s.sessions.Create(s.cfg.SystemPrompt)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	return http.StatusOK, protocol.StartResponse{
		SessionID: sess.ID,
		ExpiresIn: int(s.sessions.IdleTimeout().Seconds()),
	}
}

func (s *Server) doChunk(ctx context.Context, req protocol.ChunkRequest) (int, any) {
	audio, err := base64.StdEncoding.DecodeString(req.Base64Audio)
	if err != nil {
		return http.StatusBadRequest, errorResponse{Error: "audio payload is not valid base64", Code: "invalid_request"}
	}

	mimeType := speech.NormalizeMIME(req.MimeType)

	result, err := s.processor.ProcessChunk(ctx, req.SessionID, audio, mimeType)
	if err != nil {
		return chunkErrorStatus(err)
	}
	if result.NoSpeech {
		return http.StatusUnprocessableEntity, errorResponse{Error: "no speech detected", Code: "no_speech"}
	}

	reply := protocol.TurnReply{Text: result.ResponseText}
	if len(result.Audio) > 0 {
		reply.AudioBase64 = base64.StdEncoding.EncodeToString(result.Audio)
		reply.MimeType = result.AudioMIME
	}
	return http.StatusOK, protocol.TurnResponse{
		Transcript: result.Transcript,
		Response:   reply,
	}
}

func (s *Server) doStop(req protocol.StopRequest) (int, any) {
	if _, err := s.sessions.End(req.SessionID); err != nil {
		return http.StatusGone, errorResponse{Error: "session not found or expired", Code: "session_gone"}
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	return http.StatusOK, protocol.StopResponse{OK: true}
}

// chunkErrorStatus translates the processor's error taxonomy into the
// wire status codes. Raw upstream details are logged at the processor;
// clients only see the category.
func chunkErrorStatus(err error) (int, any) {
	switch {
	case errors.Is(err, live.ErrSessionNotFound):
		return http.StatusGone, errorResponse{Error: "session not found or expired", Code: "session_gone"}
	case errors.Is(err, live.ErrEmptyAudio):
		return http.StatusBadRequest, errorResponse{Error: "audio payload is empty", Code: "empty_audio"}
	case errors.Is(err, live.ErrInvalidAudio):
		return http.StatusBadRequest, errorResponse{Error: "audio format is invalid or unsupported", Code: "invalid_audio"}
	case errors.Is(err, live.ErrUnavailable):
		status := http.StatusBadGateway
		var upstream *speech.UpstreamError
		if errors.As(err, &upstream) && upstream.Status == http.StatusServiceUnavailable {
			status = http.StatusServiceUnavailable
		}
		return status, errorResponse{Error: "speech or model service unavailable, try again shortly", Code: "upstream_unavailable"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"}
	}
}

func (s *Server) pruneSessions() {
	if n := s.sessions.Prune(s.sessions.IdleTimeout()); n > 0 {
		s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
		s.metrics.SessionEvents.WithLabelValues("expired").Add(float64(n))
	}
}
