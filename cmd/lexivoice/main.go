package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/antoniostano/lexivoice/internal/archive"
	"github.com/antoniostano/lexivoice/internal/config"
	"github.com/antoniostano/lexivoice/internal/httpapi"
	"github.com/antoniostano/lexivoice/internal/live"
	"github.com/antoniostano/lexivoice/internal/observability"
	"github.com/antoniostano/lexivoice/internal/session"
	"github.com/antoniostano/lexivoice/internal/speech"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	archiveStore, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("archive store init failed: %v", err)
	}
	defer archiveStore.Close()

	var (
		stt live.Transcriber
		llm live.Completer
		tts live.Synthesizer
	)
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		mock := live.NewMockVoice()
		stt, llm, tts = mock, mock, mock
		log.Printf("voice upstream: mock (LLM_API_KEY not set)")
	} else {
		client := speech.NewClient(speech.Config{
			BaseURL:               cfg.LLMBaseURL,
			APIKey:                cfg.LLMAPIKey,
			CompletionModel:       cfg.CompletionModel,
			Temperature:           cfg.CompletionTemperature,
			TranscriptionModel:    cfg.TranscriptionModel,
			TranscriptionLanguage: cfg.TranscriptionLanguage,
			TTSModel:              cfg.TTSModel,
			TTSVoice:              cfg.TTSVoice,
			TTSFormat:             cfg.TTSFormat,
		})
		stt, llm, tts = client, client, client
		log.Printf("voice upstream: %s", cfg.LLMBaseURL)
	}

	sessions := session.NewStore(cfg.SessionIdleTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	window, err := live.NewTranscriptWindow(cfg.CompletionModel, cfg.TranscriptTokenBudget)
	if err != nil {
		log.Fatalf("transcript window init failed: %v", err)
	}

	processor := live.NewProcessor(sessions, stt, llm, tts, archiveStore, metrics, window, live.Timeouts{
		Transcribe: cfg.TranscribeTimeout,
		Complete:   cfg.CompleteTimeout,
		Synthesize: cfg.SynthesizeTimeout,
	})

	api := httpapi.New(cfg, sessions, processor, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, cfg.JanitorInterval)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
