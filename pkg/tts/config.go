package tts

import (
	"log/slog"
	"net/http"
	"time"
)

// Config configures a speech provider. Build one with DefaultConfig and
// the With options.
type Config struct {
	APIKey  string
	BaseURL string // empty selects the provider's public endpoint

	VoiceID      string
	ModelID      string
	Speed        float64 // 0.25 to 4.0
	OutputFormat Encoding

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration // multiplied by the attempt number

	HTTPClient *http.Client // overrides Timeout when set
	Logger     *slog.Logger
}

// Option mutates a Config.
type Option func(*Config)

func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }
func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }
func WithVoice(voiceID string) Option { return func(c *Config) { c.VoiceID = voiceID } }
func WithModel(modelID string) Option { return func(c *Config) { c.ModelID = modelID } }
func WithSpeed(speed float64) Option { return func(c *Config) { c.Speed = speed } }
func WithOutputFormat(f Encoding) Option { return func(c *Config) { c.OutputFormat = f } }

// WithTimeout bounds each synthesis request.
func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// WithRetry sets how often 429, 5xx and transport failures are retried.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries, c.RetryDelay = maxRetries, delay
	}
}

func WithHTTPClient(hc *http.Client) Option { return func(c *Config) { c.HTTPClient = hc } }
func WithLogger(logger *slog.Logger) Option { return func(c *Config) { c.Logger = logger } }

// DefaultConfig speaks with tts-1 and the alloy voice, returning MP3.
func DefaultConfig() *Config {
	return &Config{
		VoiceID:      VoiceAlloy,
		ModelID:      ModelTTS1,
		Speed:        1.0,
		OutputFormat: EncodingMP3,
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryDelay:   200 * time.Millisecond,
		Logger:       slog.Default(),
	}
}

// Apply runs opts in order.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate returns the sentinel for the first missing or invalid field.
func (c *Config) Validate() error {
	switch {
	case c.APIKey == "":
		return ErrNoAPIKey
	case c.VoiceID == "":
		return ErrNoVoiceID
	case c.Speed < 0.25 || c.Speed > 4.0:
		return ErrInvalidSpeed
	}
	return nil
}
