package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/lexivoice/internal/protocol"
)

const (
	wsReadLimit    = 8 << 20
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleLiveWS carries the same three live actions as JSON text messages,
// one response per request. Long calls submit a chunk every couple of
// seconds; a single connection avoids per-chunk HTTP overhead. Responses
// use the same bodies as the POST endpoint, with errors expressed in the
// {error, code} shape instead of a status code.
func (s *Server) handleLiveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	defer s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		s.pruneSessions()

		var body any
		req, err := protocol.ParseLiveRequest(data)
		if err != nil {
			body = errorResponse{Error: err.Error(), Code: "invalid_request"}
		} else {
			switch req := req.(type) {
			case protocol.StartRequest:
				_, body = s.doStart()
			case protocol.ChunkRequest:
				_, body = s.doChunk(r.Context(), req)
			case protocol.StopRequest:
				_, body = s.doStop(req)
			}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(body); err != nil {
			return
		}
	}
}
