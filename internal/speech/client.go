package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/antoniostano/lexivoice/internal/reliability"
	"github.com/antoniostano/lexivoice/internal/session"
)

// Config holds upstream connection settings for the three voice
// capabilities (transcription, completion, synthesis) behind one
// OpenAI-compatible base URL.
type Config struct {
	BaseURL string
	APIKey  string

	CompletionModel string
	// Temperature is sent as-is, including an explicit 0; a negative
	// value selects the 0.4 default.
	Temperature        float64
	TranscriptionModel string
	// Optional ISO language hint forwarded to the transcription upstream.
	TranscriptionLanguage string
	TTSModel              string
	TTSVoice              string
	TTSFormat             string
}

// Client talks to the upstream capabilities. Every call is a single
// blocking round-trip bounded by the caller's context; retryable statuses
// get one bounded in-process retry before the failure surfaces.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.CompletionModel) == "" {
		cfg.CompletionModel = "gpt-4o-mini"
	}
	// Zero is a deliberate greedy-sampling choice; only a negative value
	// asks for the default.
	if cfg.Temperature < 0 {
		cfg.Temperature = 0.4
	}
	if strings.TrimSpace(cfg.TranscriptionModel) == "" {
		cfg.TranscriptionModel = "gpt-4o-transcribe"
	}
	if strings.TrimSpace(cfg.TTSModel) == "" {
		cfg.TTSModel = "gpt-4o-mini-tts"
	}
	if strings.TrimSpace(cfg.TTSVoice) == "" {
		cfg.TTSVoice = "alloy"
	}
	if strings.TrimSpace(cfg.TTSFormat) == "" {
		cfg.TTSFormat = "mp3"
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Transcribe submits an audio chunk and returns the recognized text. The
// declared MIME type is normalized to the canonical set and selects the
// filename extension presented to the upstream decoder.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	canonical := NormalizeMIME(mimeType)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("model", c.cfg.TranscriptionModel); err != nil {
		return "", fmt.Errorf("build transcription form: %w", err)
	}
	if lang := strings.TrimSpace(c.cfg.TranscriptionLanguage); lang != "" {
		if err := form.WriteField("language", lang); err != nil {
			return "", fmt.Errorf("build transcription form: %w", err)
		}
	}
	fw, err := form.CreateFormFile("file", "chunk."+ExtensionForMIME(canonical))
	if err != nil {
		return "", fmt.Errorf("build transcription form: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("build transcription form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build transcription form: %w", err)
	}

	data, err := c.do(ctx, "/audio/transcriptions", form.FormDataContentType(), body.Bytes())
	if err != nil {
		return "", err
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return parsed.Text, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends the full ordered transcript to the completion upstream
// and returns the assistant reply text. Empty replies are an error.
func (c *Client) Complete(ctx context.Context, turns []session.Turn) (string, error) {
	messages := make([]chatMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}
	payload, err := json.Marshal(map[string]any{
		"model":       c.cfg.CompletionModel,
		"messages":    messages,
		"temperature": c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	data, err := c.do(ctx, "/chat/completions", "application/json", payload)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty completion result")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion result")
	}
	return text, nil
}

// Synthesize converts reply text to speech and returns the audio bytes
// plus the MIME type they are declared as.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	payload, err := json.Marshal(map[string]any{
		"model":           c.cfg.TTSModel,
		"voice":           c.cfg.TTSVoice,
		"input":           text,
		"response_format": c.cfg.TTSFormat,
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal synthesis request: %w", err)
	}

	data, err := c.do(ctx, "/audio/speech", "application/json", payload)
	if err != nil {
		return nil, "", err
	}
	return data, MIMEForTTSFormat(c.cfg.TTSFormat), nil
}

const maxErrorBody = 4 << 10

// isRetryable reports whether a second attempt can help: transport
// failures and throttling/5xx answers qualify, any other upstream status
// (invalid input, 501, auth failures) surfaces immediately.
func isRetryable(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return reliability.IsRetryableHTTPStatus(upstream.Status)
	}
	// Timeouts and network failures never produce an UpstreamError.
	return true
}

// do posts the payload and returns the response body. One extra attempt is
// made for retryable statuses and transport failures; any other failure
// surfaces immediately.
func (c *Client) do(ctx context.Context, path, contentType string, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt, 200*time.Millisecond, time.Second)):
			}
		}

		data, err := c.doOnce(ctx, path, contentType, payload)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, path, contentType string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &UpstreamError{Status: res.StatusCode, Detail: strings.TrimSpace(string(detail))}
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}
