package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/lexivoice/internal/config"
	"github.com/antoniostano/lexivoice/internal/live"
	"github.com/antoniostano/lexivoice/internal/observability"
	"github.com/antoniostano/lexivoice/internal/session"
)

// TurnProcessor runs the transcribe/complete/synthesize pipeline for one
// audio chunk.
type TurnProcessor interface {
	ProcessChunk(ctx context.Context, sessionID string, audio []byte, mimeType string) (*live.TurnResult, error)
}

type Server struct {
	cfg       config.Config
	sessions  *session.Store
	processor TurnProcessor
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Store, processor TurnProcessor, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		sessions:  sessions,
		processor: processor,
		metrics:   metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin. This prevents other websites from driving the
				// user's mic session if the gateway is ever exposed
				// beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/audio/live", s.handleLive)
	r.Get("/v1/audio/live/ws", s.handleLiveWS)
	r.Get("/v1/live/stats", s.handleStats)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.SnapshotStages())
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

// maxBodyBytes bounds a live request: ~2 s of audio base64-encoded plus
// envelope overhead stays well under this.
const maxBodyBytes = 8 << 20

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errEmptyBody
	}
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errEmptyBody
	}
	return data, nil
}
