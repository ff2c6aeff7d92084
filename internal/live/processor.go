package live

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/antoniostano/lexivoice/internal/archive"
	"github.com/antoniostano/lexivoice/internal/observability"
	"github.com/antoniostano/lexivoice/internal/policy"
	"github.com/antoniostano/lexivoice/internal/session"
	"github.com/antoniostano/lexivoice/internal/speech"
)

// Outcome taxonomy of a processed chunk. Each sentinel maps to exactly one
// transport status; see the httpapi package.
var (
	// ErrSessionNotFound is terminal for the conversation: the client must
	// start a new session.
	ErrSessionNotFound = errors.New("session not found or expired")
	// ErrEmptyAudio rejects the chunk before any upstream call.
	ErrEmptyAudio = errors.New("empty audio payload")
	// ErrInvalidAudio means the transcription upstream rejected the bytes;
	// the session survives and the client may retry with a new chunk.
	ErrInvalidAudio = errors.New("audio rejected by transcription upstream")
	// ErrUnavailable covers upstream timeouts, 5xx answers, and network
	// failures at the transcription or completion stage.
	ErrUnavailable = errors.New("upstream service unavailable")
)

// Timeouts bound each blocking upstream round-trip. The three stages run
// sequentially; an unbounded hang in any of them would stall the turn.
type Timeouts struct {
	Transcribe time.Duration
	Complete   time.Duration
	Synthesize time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Transcribe <= 0 {
		t.Transcribe = 20 * time.Second
	}
	if t.Complete <= 0 {
		t.Complete = 30 * time.Second
	}
	if t.Synthesize <= 0 {
		t.Synthesize = 20 * time.Second
	}
	return t
}

// TurnResult is a successfully processed chunk. NoSpeech marks the
// nothing-understood outcome: the transcript was not touched and the other
// fields are empty. Audio is absent when synthesis failed and the turn
// degraded to text-only.
type TurnResult struct {
	NoSpeech     bool
	Transcript   string
	ResponseText string
	Audio        []byte
	AudioMIME    string
}

// Processor drives the transcribe, complete, synthesize pipeline for one
// chunk at a time. Turns for the same session are serialized on a
// per-session lock so concurrent submissions cannot interleave transcript
// mutations; different sessions proceed independently.
type Processor struct {
	sessions *session.Store
	stt      Transcriber
	llm      Completer
	tts      Synthesizer
	archiver archive.Store
	metrics  *observability.Metrics
	window   *TranscriptWindow
	timeouts Timeouts

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewProcessor(
	sessions *session.Store,
	stt Transcriber,
	llm Completer,
	tts Synthesizer,
	archiver archive.Store,
	metrics *observability.Metrics,
	window *TranscriptWindow,
	timeouts Timeouts,
) *Processor {
	return &Processor{
		sessions: sessions,
		stt:      stt,
		llm:      llm,
		tts:      tts,
		archiver: archiver,
		metrics:  metrics,
		window:   window,
		timeouts: timeouts.withDefaults(),
		locks:    make(map[string]*sessionLock),
	}
}

// ProcessChunk runs one turn: validate, transcribe, complete, synthesize.
// The chunk counter advances for every chunk that reaches transcription,
// including no-speech turns. A user turn appended before a completion
// failure stays recorded so the next successful turn continues from it.
func (p *Processor) ProcessChunk(ctx context.Context, sessionID string, audio []byte, mimeType string) (*TurnResult, error) {
	unlock := p.lockSession(sessionID)
	defer unlock()

	start := time.Now()

	if _, err := p.sessions.Get(sessionID); err != nil {
		return nil, ErrSessionNotFound
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	p.sessions.IncrementChunks(sessionID)

	transcript, err := p.transcribe(ctx, audio, mimeType)
	if err != nil {
		return nil, err
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		p.countOutcome("no_speech")
		return &TurnResult{NoSpeech: true}, nil
	}

	p.sessions.AppendUserTurn(sessionID, transcript)
	p.archiveTurn(ctx, sessionID, session.RoleUser, transcript)

	replyText, err := p.complete(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	p.sessions.AppendAssistantTurn(sessionID, replyText)
	p.archiveTurn(ctx, sessionID, session.RoleAssistant, replyText)

	result := &TurnResult{
		Transcript:   transcript,
		ResponseText: replyText,
	}

	if audioBytes, audioMIME, ok := p.synthesize(ctx, sessionID, replyText); ok {
		result.Audio = audioBytes
		result.AudioMIME = audioMIME
		p.countOutcome("success")
	} else {
		p.countOutcome("success_text_only")
	}

	p.observeStage(observability.StageTurnTotal, time.Since(start))
	return result, nil
}

func (p *Processor) transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, p.timeouts.Transcribe)
	defer cancel()

	start := time.Now()
	text, err := p.stt.Transcribe(tctx, audio, mimeType)
	p.observeStage(observability.StageTranscribe, time.Since(start))
	if err != nil {
		log.Printf("live: transcription failed: %v", err)
		if speech.IsInvalidInput(err) {
			p.countUpstreamError(observability.StageTranscribe, "invalid_input")
			p.countOutcome("invalid_audio")
			return "", errors.Join(ErrInvalidAudio, err)
		}
		p.countUpstreamError(observability.StageTranscribe, "unavailable")
		p.countOutcome("unavailable")
		return "", errors.Join(ErrUnavailable, err)
	}
	return text, nil
}

func (p *Processor) complete(ctx context.Context, sessionID string) (string, error) {
	sess, err := p.sessions.Get(sessionID)
	if err != nil {
		return "", ErrSessionNotFound
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeouts.Complete)
	defer cancel()

	start := time.Now()
	replyText, err := p.llm.Complete(cctx, p.window.Trim(sess.Transcript))
	p.observeStage(observability.StageComplete, time.Since(start))
	if err != nil {
		// The user turn stays in the transcript on purpose: the next
		// successful turn picks the conversation up where it stopped.
		log.Printf("live: completion failed for session %s: %v", sessionID, err)
		p.countUpstreamError(observability.StageComplete, "unavailable")
		p.countOutcome("unavailable")
		return "", errors.Join(ErrUnavailable, err)
	}
	return replyText, nil
}

func (p *Processor) synthesize(ctx context.Context, sessionID, replyText string) ([]byte, string, bool) {
	spoken := sanitizeSpeechText(replyText)
	if spoken == "" {
		return nil, "", false
	}

	sctx, cancel := context.WithTimeout(ctx, p.timeouts.Synthesize)
	defer cancel()

	start := time.Now()
	audioBytes, audioMIME, err := p.tts.Synthesize(sctx, spoken)
	p.observeStage(observability.StageSynthesize, time.Since(start))
	if err != nil {
		// Synthesis failure never fails the turn; the client gets text only.
		log.Printf("live: synthesis failed for session %s: %v", sessionID, err)
		p.countUpstreamError(observability.StageSynthesize, "unavailable")
		return nil, "", false
	}
	return audioBytes, audioMIME, true
}

func (p *Processor) archiveTurn(ctx context.Context, sessionID string, role session.Role, content string) {
	if p.archiver == nil {
		return
	}
	redacted, changed := policy.RedactPII(content)
	err := p.archiver.SaveTurn(ctx, archive.TurnRecord{
		SessionID: sessionID,
		Role:      role,
		Content:   redacted,
		Redacted:  changed,
	})
	if err != nil {
		log.Printf("live: archive write failed for session %s: %v", sessionID, err)
	}
}

func (p *Processor) lockSession(sessionID string) func() {
	p.mu.Lock()
	l, ok := p.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		p.locks[sessionID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, sessionID)
		}
		p.mu.Unlock()
	}
}

func (p *Processor) observeStage(stage string, d time.Duration) {
	if p.metrics != nil {
		p.metrics.ObserveStage(stage, d)
	}
}

func (p *Processor) countOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.TurnOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (p *Processor) countUpstreamError(stage, class string) {
	if p.metrics != nil {
		p.metrics.UpstreamErrors.WithLabelValues(stage, class).Inc()
	}
}
