package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antoniostano/lexivoice/internal/audio"
	"github.com/antoniostano/lexivoice/internal/livecall"
	"github.com/antoniostano/lexivoice/internal/speech"
)

type options struct {
	baseURL   string
	inputPath string
	chunkSec  float64
	interval  time.Duration
	saveDir   string
	verbose   bool
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "livecall: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "livecall: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var cfg options
	var intervalMS int

	flag.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "gateway base URL")
	flag.StringVar(&cfg.inputPath, "file", "", "path of the 16-bit PCM WAV file to replay")
	flag.Float64Var(&cfg.chunkSec, "chunk-seconds", 2.0, "seconds of audio per submitted chunk")
	flag.IntVar(&intervalMS, "interval-ms", 2000, "submission interval in milliseconds")
	flag.StringVar(&cfg.saveDir, "save-audio", "", "directory to save reply audio into (optional)")
	flag.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if strings.TrimSpace(cfg.inputPath) == "" {
		return options{}, fmt.Errorf("file is required")
	}
	if cfg.chunkSec <= 0 || cfg.chunkSec > 30 {
		return options{}, fmt.Errorf("chunk-seconds must be in (0,30]")
	}
	if intervalMS < 100 {
		return options{}, fmt.Errorf("interval-ms must be >= 100")
	}
	cfg.interval = time.Duration(intervalMS) * time.Millisecond
	return cfg, nil
}

func run(cfg options) error {
	data, err := os.ReadFile(cfg.inputPath)
	if err != nil {
		return err
	}
	format, pcm, err := audio.ParseWAV(data)
	if err != nil {
		return fmt.Errorf("reading %s: %w", cfg.inputPath, err)
	}
	if format.BitDepth != 16 {
		return fmt.Errorf("%s: only 16-bit PCM is supported, got %d-bit", cfg.inputPath, format.BitDepth)
	}
	samples := samplesFromPCM16LE(pcm, format.Channels)

	chunkSamples := int(cfg.chunkSec * float64(format.SampleRate))
	if chunkSamples <= 0 {
		return fmt.Errorf("chunk too small for sample rate %d", format.SampleRate)
	}

	source := livecall.NewSampleSource(format.SampleRate)
	controller := livecall.NewController(livecall.NewHTTPGateway(cfg.baseURL), source, cfg.interval)

	ctx := context.Background()
	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	if cfg.verbose {
		fmt.Printf("session %s started, replaying %.1fs of audio\n",
			controller.SessionID(), float64(len(samples))/float64(format.SampleRate))
	}

	for offset := 0; offset < len(samples); offset += chunkSamples {
		end := offset + chunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		source.Push(samples[offset:end])
		time.Sleep(cfg.interval)
		if controller.Status() == livecall.StatusError {
			break
		}
	}

	// Let the last tick drain before tearing down.
	time.Sleep(cfg.interval)
	callErr := controller.Err()
	controller.Stop(ctx)

	history := controller.History()
	for i, ex := range history {
		fmt.Printf("turn %d\n  you:       %s\n  assistant: %s\n", i+1, ex.Transcript, ex.Response.Text)
		if len(ex.Response.Audio) > 0 && cfg.saveDir != "" {
			name := fmt.Sprintf("reply-%02d.%s", i+1, speech.ExtensionForMIME(ex.Response.MimeType))
			path := filepath.Join(cfg.saveDir, name)
			if err := os.WriteFile(path, ex.Response.Audio, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "livecall: saving %s: %v\n", path, err)
			} else if cfg.verbose {
				fmt.Printf("  audio:     %s\n", path)
			}
		}
	}

	if callErr != nil {
		return fmt.Errorf("call ended early: %w", callErr)
	}
	if cfg.verbose {
		fmt.Printf("replay complete: %d turns\n", len(history))
	}
	return nil
}

// samplesFromPCM16LE converts interleaved 16-bit PCM back to mono float32
// samples, averaging channels when the input is multi-channel.
func samplesFromPCM16LE(pcm []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	frameBytes := 2 * channels
	frames := len(pcm) / frameBytes
	out := make([]float32, 0, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			raw := int16(binary.LittleEndian.Uint16(pcm[f*frameBytes+ch*2:]))
			sum += float32(raw) / 32768
		}
		out = append(out, sum/float32(channels))
	}
	return out
}
