package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := NewGemini(context.Background(),
		WithEndpoint(server.URL+"/"),
		WithHTTPClient(server.Client()),
		WithModel("gemini-1.5-flash"),
	)
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	return g
}

func TestGeminiVision(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff, 0xe0}

	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-flash:generateContent") {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}

		var body struct {
			Contents []struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"contents"`
			GenerationConfig struct {
				Temperature     float64     `json:"temperature"`
				MaxOutputTokens json.Number `json:"maxOutputTokens"`
			} `json:"generationConfig"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(body.Contents) != 1 || len(body.Contents[0].Parts) != 2 {
			t.Fatalf("Unexpected contents: %+v", body.Contents)
		}
		parts := body.Contents[0].Parts
		if parts[0].Text != "Solve this" {
			t.Errorf("Unexpected prompt: %q", parts[0].Text)
		}
		if parts[1].InlineData == nil || parts[1].InlineData.MimeType != "image/png" {
			t.Errorf("Unexpected inline data: %+v", parts[1].InlineData)
		} else if parts[1].InlineData.Data != base64.StdEncoding.EncodeToString(image) {
			t.Error("Image bytes not forwarded")
		}
		if body.GenerationConfig.Temperature != 0.7 {
			t.Errorf("Expected temperature 0.7, got %v", body.GenerationConfig.Temperature)
		}
		if body.GenerationConfig.MaxOutputTokens.String() != "1024" {
			t.Errorf("Expected 1024 max tokens, got %s", body.GenerationConfig.MaxOutputTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "The answer "}, {"text": "is 42."}]},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 300, "candidatesTokenCount": 5, "totalTokenCount": 305}
		}`))
	})

	resp, err := g.Vision(context.Background(), &VisionRequest{
		Image:    image,
		MimeType: "image/png",
		Prompt:   "Solve this",
	})
	if err != nil {
		t.Fatalf("Vision failed: %v", err)
	}
	if resp.Content != "The answer is 42." {
		t.Errorf("Unexpected content: %q", resp.Content)
	}
	if resp.FinishReason != "STOP" {
		t.Errorf("Unexpected finish reason: %s", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 305 {
		t.Errorf("Expected 305 tokens, got %d", resp.Usage.TotalTokens)
	}
	if resp.Model != "gemini-1.5-flash" {
		t.Errorf("Unexpected model: %s", resp.Model)
	}
}

func TestGeminiEmptyResponse(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "  "}]}, "finishReason": "SAFETY"}]}`))
	})

	_, err := g.Vision(context.Background(), &VisionRequest{Image: []byte{1}, Prompt: "p"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestGeminiAPIError(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"}}`))
	})

	_, err := g.Vision(context.Background(), &VisionRequest{Image: []byte{1}, Prompt: "p"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if !apiErr.IsForbidden() {
		t.Errorf("Expected 403, got %d", apiErr.StatusCode)
	}
	if apiErr.Provider != providerGemini {
		t.Errorf("Unexpected provider: %s", apiErr.Provider)
	}
}

func TestGeminiNoImage(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request expected")
	})

	if _, err := g.Vision(context.Background(), &VisionRequest{Prompt: "p"}); !errors.Is(err, ErrNoImage) {
		t.Errorf("Expected ErrNoImage, got %v", err)
	}
}

func TestGeminiHealth(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-flash") {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name": "models/gemini-1.5-flash"}`))
	})

	if err := g.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}

func TestModelName(t *testing.T) {
	if got := modelName("gemini-1.5-flash"); got != "models/gemini-1.5-flash" {
		t.Errorf("Unexpected name: %s", got)
	}
	if got := modelName("models/x"); got != "models/x" {
		t.Errorf("Unexpected name: %s", got)
	}
}
