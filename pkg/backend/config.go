package backend

import (
	"log/slog"
	"time"
)

// Prompt is sent with every image.
const Prompt = `Analyze the attached image and provide:
1. A detailed explanation of the image contents
2. If present, description of any mathematical or scientific problems
3. Suggested solutions or insights based on the content

Please ensure responses are:
- Accurate and relevant to the image
- Educational and helpful
- Safe and appropriate for all audiences`

// DefaultMaxPixels matches Pillow's decompression bomb threshold.
const DefaultMaxPixels = 89_478_485

// resizeQuality is the JPEG quality of downscaled images.
const resizeQuality = 90

// Config holds server settings.
type Config struct {
	Addr string

	// Model parameters sent with every request.
	Model       string
	Temperature float64
	MaxTokens   int

	// Images larger than MaxWidth x MaxHeight are downscaled first.
	MaxWidth  int
	MaxHeight int

	// MaxPixels caps width*height as read from the image header, checked
	// before the image is decoded. Zero disables it.
	MaxPixels int64

	// RateLimit requests per RateWindow per client IP. Zero disables it.
	RateLimit  int
	RateWindow time.Duration

	MaxBodyBytes   int
	AllowedOrigins string

	// ProxyHeader names the header carrying the client IP when the server
	// sits behind a reverse proxy, e.g. X-Forwarded-For. Rate limits and
	// request logs key on it.
	ProxyHeader string

	// Zero means no limit.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// Option configures a Server.
type Option func(*Config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) { c.Addr = addr }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithGeneration sets temperature and max output tokens.
func WithGeneration(temperature float64, maxTokens int) Option {
	return func(c *Config) {
		c.Temperature = temperature
		c.MaxTokens = maxTokens
	}
}

// WithRateLimit allows n requests per window per client.
func WithRateLimit(n int, window time.Duration) Option {
	return func(c *Config) {
		c.RateLimit = n
		c.RateWindow = window
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int) Option {
	return func(c *Config) { c.MaxBodyBytes = n }
}

// WithMaxPixels caps the decoded size of accepted images.
func WithMaxPixels(n int64) Option {
	return func(c *Config) { c.MaxPixels = n }
}

// WithProxyHeader reads the client IP from header.
func WithProxyHeader(header string) Option {
	return func(c *Config) { c.ProxyHeader = header }
}

// WithTimeouts bounds reading a request and writing its response.
func WithTimeouts(read, write time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout, c.WriteTimeout = read, write
	}
}

// WithAllowedOrigins sets the CORS origins, comma separated.
func WithAllowedOrigins(origins string) Option {
	return func(c *Config) { c.AllowedOrigins = origins }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the settings used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Addr:           "0.0.0.0:5000",
		Model:          "gemini-1.5-flash",
		Temperature:    0.7,
		MaxTokens:      1024,
		MaxWidth:       1920,
		MaxHeight:      1080,
		MaxPixels:      DefaultMaxPixels,
		RateLimit:      100,
		RateWindow:     24 * time.Hour,
		MaxBodyBytes:   16 << 20,
		AllowedOrigins: "*",
		Logger:         slog.Default(),
	}
}
