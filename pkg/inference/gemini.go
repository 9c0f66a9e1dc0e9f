package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const providerGemini = "gemini"

// GeminiScope is the OAuth scope requested for credential-based auth.
const GeminiScope = "https://www.googleapis.com/auth/generative-language"

// Gemini implements VisionProvider on Google's Generative Language API.
type Gemini struct {
	service *generativelanguage.Service
	config  *Config
	logger  *slog.Logger
}

// NewGemini creates a Gemini provider. It authenticates with the API key
// when set, otherwise with the credentials file, otherwise with
// application default credentials.
func NewGemini(ctx context.Context, opts ...Option) (*Gemini, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.Model == "" {
		return nil, WrapError(providerGemini, ErrNoModel)
	}

	clientOpts, err := geminiClientOptions(ctx, cfg)
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}

	svc, err := generativelanguage.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("create service: %w", err))
	}

	return &Gemini{
		service: svc,
		config:  cfg,
		logger:  cfg.Logger.With("component", "inference.gemini"),
	}, nil
}

func geminiClientOptions(ctx context.Context, cfg *Config) ([]option.ClientOption, error) {
	var opts []option.ClientOption

	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	if cfg.HTTPClient != nil {
		// A caller-supplied client carries its own auth.
		return append(opts, option.WithHTTPClient(cfg.HTTPClient)), nil
	}

	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, GeminiScope)
		if err != nil {
			return nil, fmt.Errorf("parse credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	default:
		creds, err := google.FindDefaultCredentials(ctx, GeminiScope)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoAPIKey, err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	return opts, nil
}

// Vision analyzes an image using Gemini.
func (g *Gemini) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	if len(req.Image) == 0 {
		return nil, WrapError(providerGemini, ErrNoImage)
	}

	start := time.Now()

	model := req.Model
	if model == "" {
		model = g.config.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}

	temp := req.Temperature
	if temp == 0 {
		temp = g.config.Temperature
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	call := g.service.Models.GenerateContent(modelName(model), &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role: "user",
			Parts: []*generativelanguage.Part{
				{Text: req.Prompt},
				{InlineData: &generativelanguage.Blob{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(req.Image),
				}},
			},
		}},
		GenerationConfig: &generativelanguage.GenerationConfig{
			Temperature:     temp,
			MaxOutputTokens: int64(maxTokens),
		},
	})

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, g.wrapError(err)
	}

	text, finish := responseText(resp)
	if text == "" {
		return nil, WrapError(providerGemini, ErrEmptyResponse)
	}

	out := &VisionResponse{
		Content:      text,
		FinishReason: finish,
		Model:        model,
		LatencyMs:    time.Since(start).Milliseconds(),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	g.logger.Debug("vision complete",
		"model", model,
		"finish_reason", finish,
		"latency_ms", out.LatencyMs,
	)
	return out, nil
}

// Health fetches the configured model's metadata.
func (g *Gemini) Health(ctx context.Context) error {
	if _, err := g.service.Models.Get(modelName(g.config.Model)).Context(ctx).Do(); err != nil {
		return g.wrapError(err)
	}
	return nil
}

// Close releases resources.
func (g *Gemini) Close() error {
	return nil
}

func (g *Gemini) wrapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		code := ""
		if len(gerr.Errors) > 0 {
			code = gerr.Errors[0].Reason
		}
		return &APIError{
			Service:    "inference",
			Provider:   providerGemini,
			StatusCode: gerr.Code,
			Code:       code,
			Message:    gerr.Message,
		}
	}
	return WrapError(providerGemini, err)
}

// modelName returns the "models/<id>" resource name.
func modelName(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

// responseText joins the text parts of the first candidate.
func responseText(resp *generativelanguage.GenerateContentResponse) (string, string) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", cand.FinishReason
	}

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), cand.FinishReason
}

// Verify Gemini implements VisionProvider at compile time.
var _ VisionProvider = (*Gemini)(nil)
