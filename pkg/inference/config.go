package inference

import (
	"log/slog"
	"net/http"
	"time"
)

// Config is shared by Client and Gemini. Client reads the backend and
// transport fields; Gemini reads the model fields.
type Config struct {
	BaseURL  string // backend root, e.g. http://localhost:5000
	Endpoint string // vision API override; empty for the public API

	// Vision credentials. Application default credentials are used when
	// both are empty.
	APIKey          string
	CredentialsFile string

	Model       string
	MaxTokens   int
	Temperature float64

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration // multiplied by the attempt number

	HTTPClient *http.Client // overrides Timeout when set
	Logger     *slog.Logger
}

// Option mutates a Config.
type Option func(*Config)

func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }
func WithEndpoint(url string) Option { return func(c *Config) { c.Endpoint = url } }
func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }

// WithCredentialsFile authenticates Gemini with a service account file.
func WithCredentialsFile(path string) Option { return func(c *Config) { c.CredentialsFile = path } }

func WithModel(model string) Option { return func(c *Config) { c.Model = model } }
func WithMaxTokens(n int) Option { return func(c *Config) { c.MaxTokens = n } }
func WithTemperature(t float64) Option { return func(c *Config) { c.Temperature = t } }
func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// WithRetry retries transport failures, 429 and 5xx up to maxRetries
// times.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries, c.RetryDelay = maxRetries, delay
	}
}

func WithHTTPClient(hc *http.Client) Option { return func(c *Config) { c.HTTPClient = hc } }
func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }

// DefaultConfig targets a backend on localhost and never retries: a
// failed capture is reported and the user captures again.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "http://localhost:5000",
		Model:       "gemini-1.5-flash",
		MaxTokens:   1024,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
		RetryDelay:  500 * time.Millisecond,
		Logger:      slog.Default(),
	}
}

// Apply runs opts in order.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the fields Client depends on.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return ErrNoBaseURL
	case c.MaxRetries < 0:
		return ErrInvalidRetries
	}
	return nil
}
