package livecall

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/antoniostano/lexivoice/internal/protocol"
)

// Status is the controller's lifecycle state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusLive       Status = "live"
	StatusError      Status = "error"
)

// defaultInterval matches the capture cadence the gateway's turn pipeline
// is tuned for.
const defaultInterval = 2 * time.Second

// Reply is the assistant half of one exchange. Audio is nil when the
// gateway degraded to text-only.
type Reply struct {
	Text     string
	Audio    []byte
	MimeType string
}

// Exchange is one completed turn as seen by the client.
type Exchange struct {
	Transcript string
	Response   Reply
}

// Controller runs one live call: it opens a session, submits whatever the
// capture source accumulated every interval, and collects exchanges. One
// chunk is in flight at a time; a tick that fires while the previous
// submission is still running is skipped.
type Controller struct {
	gateway  Gateway
	source   CaptureSource
	interval time.Duration

	mu        sync.Mutex
	status    Status
	sessionID string
	lastErr   error
	history   []Exchange
	cancel    context.CancelFunc
	done      chan struct{}
	gen       int
}

func NewController(gateway Gateway, source CaptureSource, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Controller{
		gateway:  gateway,
		source:   source,
		interval: interval,
		status:   StatusIdle,
	}
}

// Start opens a session and begins the submission loop. Starting an
// already connecting or live controller is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusConnecting || c.status == StatusLive {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusConnecting
	c.lastErr = nil
	c.history = nil
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	started, err := c.gateway.Start(ctx)
	if err != nil {
		c.mu.Lock()
		c.status = StatusError
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	if gen != c.gen {
		// Stop raced with the start handshake; abandon the session.
		c.mu.Unlock()
		cancel()
		go c.notifyStop(started.SessionID)
		return nil
	}
	c.sessionID = started.SessionID
	c.status = StatusLive
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(loopCtx, started.SessionID, gen, done)
	return nil
}

// Stop tears down capture and notifies the server best-effort. Local
// cleanup never waits on the notify succeeding.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	if c.status == StatusIdle {
		c.mu.Unlock()
		return
	}
	c.gen++
	sessionID := c.sessionID
	cancel := c.cancel
	done := c.done
	c.sessionID = ""
	c.cancel = nil
	c.done = nil
	c.status = StatusIdle
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if sessionID != "" {
		if err := c.gateway.Stop(ctx, sessionID); err != nil {
			log.Printf("livecall: stop notify failed: %v", err)
		}
	}
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Err returns the failure that moved the controller to StatusError.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// History returns the exchanges collected since Start, oldest first.
func (c *Controller) History() []Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Exchange, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Controller) run(ctx context.Context, sessionID string, gen int, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.submit(ctx, sessionID, gen) {
				return
			}
		}
	}
}

// submit sends one accumulated chunk. It returns false when the loop
// should stop: the session is gone or the gateway went away.
func (c *Controller) submit(ctx context.Context, sessionID string, gen int) bool {
	data, mimeType := c.source.NextChunk()
	if len(data) == 0 {
		return true
	}

	turn, err := c.gateway.Chunk(ctx, sessionID, data, mimeType)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Stopped while the request was in flight; discard the result.
		return false
	}

	switch {
	case err == nil:
		if exchange, ok := exchangeFrom(turn); ok {
			c.history = append(c.history, exchange)
		}
		return true
	case errors.Is(err, ErrNoSpeech):
		return true
	case errors.Is(err, ErrSessionGone), errors.Is(err, ErrUnavailable):
		c.status = StatusError
		c.lastErr = err
		c.sessionID = ""
		return false
	default:
		// Per-chunk rejection; the next chunk may be fine.
		log.Printf("livecall: chunk rejected: %v", err)
		c.lastErr = err
		return true
	}
}

func (c *Controller) notifyStop(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.gateway.Stop(ctx, sessionID); err != nil {
		log.Printf("livecall: stop notify failed: %v", err)
	}
}

func exchangeFrom(turn protocol.TurnResponse) (Exchange, bool) {
	text := strings.TrimSpace(turn.Response.Text)
	if strings.TrimSpace(turn.Transcript) == "" && text == "" {
		return Exchange{}, false
	}
	ex := Exchange{
		Transcript: strings.TrimSpace(turn.Transcript),
		Response:   Reply{Text: text, MimeType: turn.Response.MimeType},
	}
	if turn.Response.AudioBase64 != "" {
		if audio, err := base64.StdEncoding.DecodeString(turn.Response.AudioBase64); err == nil {
			ex.Response.Audio = audio
		}
	}
	return ex, true
}
