package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/snapsolve/internal/apierr"
	"github.com/teslashibe/snapsolve/internal/httpc"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	providerOpenAI = "openai"

	// MaxInputChars is the longest input the speech endpoint accepts.
	MaxInputChars = 4096
)

// OpenAI voices.
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAI speech models.
const (
	ModelTTS1   = "tts-1"
	ModelTTS1HD = "tts-1-hd"
)

type speechRequest struct {
	Model          string   `json:"model"`
	Voice          string   `json:"voice"`
	Input          string   `json:"input"`
	ResponseFormat Encoding `json:"response_format"`
	Speed          float64  `json:"speed,omitempty"`
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// OpenAI synthesizes speech with the OpenAI audio API.
type OpenAI struct {
	cfg    *Config
	client *http.Client
	logger *slog.Logger
	base   string
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, WrapError(providerOpenAI, err)
	}

	o := &OpenAI{
		cfg:    cfg,
		client: cfg.HTTPClient,
		logger: cfg.Logger.With("component", "tts.openai"),
		base:   strings.TrimSuffix(cfg.BaseURL, "/"),
	}
	if o.base == "" {
		o.base = openAIBaseURL
	}
	if o.client == nil {
		o.client = httpc.New(cfg.Timeout)
	}
	return o, nil
}

// Synthesize returns the audio for text. Input beyond MaxInputChars is
// cut at a word boundary.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, WrapError(providerOpenAI, ErrEmptyText)
	}
	text = truncate(text, MaxInputChars)

	sr := speechRequest{
		Model:          o.cfg.ModelID,
		Voice:          o.cfg.VoiceID,
		Input:          text,
		ResponseFormat: o.cfg.OutputFormat,
	}
	if o.cfg.Speed != 1.0 {
		sr.Speed = o.cfg.Speed
	}
	body, err := json.Marshal(sr)
	if err != nil {
		return nil, WrapError(providerOpenAI, err)
	}

	start := time.Now()
	resp, err := o.send(ctx, http.MethodPost, "/audio/speech", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("read audio: %w", err))
	}

	latency := time.Since(start).Milliseconds()
	o.logger.Debug("synthesized",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    o.format(),
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health checks that the key can see the configured model.
func (o *OpenAI) Health(ctx context.Context) error {
	resp, err := o.send(ctx, http.MethodGet, "/models/"+o.cfg.ModelID, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Close drops idle connections.
func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// VoiceID returns the configured voice.
func (o *OpenAI) VoiceID() string {
	return o.cfg.VoiceID
}

// send performs a request and returns a 200 response. Transport errors,
// 429 and 5xx are retried up to MaxRetries times with linear backoff.
func (o *OpenAI) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, WrapError(providerOpenAI, ctx.Err())
			case <-time.After(o.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, o.base+path, rd)
		if err != nil {
			return nil, WrapError(providerOpenAI, err)
		}
		req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := o.client.Do(req)
		switch {
		case err != nil:
			lastErr = WrapError(providerOpenAI, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
		case resp.StatusCode == http.StatusOK:
			return resp, nil
		default:
			apiErr := apiError(resp)
			resp.Body.Close()
			lastErr = apiErr
			if !apiErr.IsRetryable() {
				return nil, apiErr
			}
			o.logger.Warn("retrying", "path", path, "attempt", attempt+1, "status", resp.StatusCode)
		}
	}
	return nil, lastErr
}

func apiError(resp *http.Response) *APIError {
	return apierr.FromResponse("tts", providerOpenAI, resp, func(data []byte) (string, string) {
		var body openAIErrorBody
		if json.Unmarshal(data, &body) != nil {
			return "", ""
		}
		return body.Error.Message, body.Error.Code
	})
}

func (o *OpenAI) format() AudioFormat {
	enc := o.cfg.OutputFormat
	f := AudioFormat{Encoding: enc, SampleRate: SampleRateFromEncoding(enc), Channels: 1}
	if enc == EncodingPCM {
		f.BitDepth = 16
	}
	return f
}

var _ Provider = (*OpenAI)(nil)
