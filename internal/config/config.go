// Package config loads snapsolve configuration.
//
// Values are resolved in order: built-in defaults, an optional YAML file
// (path from SNAPSOLVE_CONFIG or passed explicitly), then environment
// overrides. Validate reports every problem at once.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/snapsolve/pkg/camera"
)

// Environment variables read by Load.
const (
	EnvConfigFile   = "SNAPSOLVE_CONFIG"
	EnvBackendURL   = "SNAPSOLVE_BACKEND_URL"
	EnvFallbackURLs = "SNAPSOLVE_FALLBACK_URLS"
	EnvHost         = "SNAPSOLVE_HOST"
	EnvPort         = "SNAPSOLVE_PORT"
	EnvLogLevel     = "SNAPSOLVE_LOG_LEVEL"
	EnvCameraSource = "SNAPSOLVE_CAMERA_SOURCE"
	EnvCameraDevice = "SNAPSOLVE_CAMERA_DEVICE"
	EnvSpeech       = "SNAPSOLVE_SPEECH"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvGoogleKey    = "GOOGLE_API_KEY"
	EnvGeminiModel  = "GEMINI_MODEL"
	EnvCredentials  = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvOrigins      = "ALLOWED_ORIGINS"
	EnvProxyHeader  = "SNAPSOLVE_PROXY_HEADER"
)

// Speech providers.
const (
	SpeechOpenAI = "openai"
	SpeechNone   = "none"
)

// Config is the full application configuration.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Server   ServerConfig  `yaml:"server"`
	Backend  BackendConfig `yaml:"backend"`
	Camera   camera.Config `yaml:"camera"`
	Session  SessionConfig `yaml:"session"`
	Speech   SpeechConfig  `yaml:"speech"`
	Model    ModelConfig   `yaml:"model"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ProxyHeader carries the client IP behind a reverse proxy.
	ProxyHeader string `yaml:"proxy_header"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendConfig configures the orchestrator's inference client.
type BackendConfig struct {
	BaseURL      string        `yaml:"base_url"`
	FallbackURLs []string      `yaml:"fallback_urls"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
}

// SessionConfig configures camera sessions.
type SessionConfig struct {
	// AcquireTimeout bounds how long starting a session waits for the
	// camera, including a browser permission prompt.
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

// SpeechConfig configures spoken feedback.
type SpeechConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Voice    string `yaml:"voice"`
	Player   string `yaml:"player"`

	// Timeout bounds synthesis plus playback of one solution.
	Timeout time.Duration `yaml:"timeout"`
}

// ModelConfig configures the vision model behind the inference backend.
type ModelConfig struct {
	APIKey          string        `yaml:"api_key"`
	CredentialsFile string        `yaml:"credentials_file"`
	Name            string        `yaml:"name"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	RateLimit       int           `yaml:"rate_limit"`
	RateWindow      time.Duration `yaml:"rate_window"`
	MaxBodyBytes    int           `yaml:"max_body_bytes"`
	MaxPixels       int64         `yaml:"max_pixels"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL:    "http://localhost:5000",
			Timeout:    30 * time.Second,
			MaxRetries: 0,
		},
		Camera:  camera.DefaultConfig(),
		Session: SessionConfig{AcquireTimeout: 30 * time.Second},
		Speech: SpeechConfig{
			Enabled:  true,
			Provider: SpeechOpenAI,
			Voice:    "alloy",
			Player:   "ffplay",
			Timeout:  2 * time.Minute,
		},
		Model: ModelConfig{
			Name:           "gemini-1.5-flash",
			Temperature:    0.7,
			MaxTokens:      1024,
			RateLimit:      100,
			RateWindow:     24 * time.Hour,
			MaxBodyBytes:   16 * 1024 * 1024,
			MaxPixels:      89_478_485,
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (or
// SNAPSOLVE_CONFIG when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvHost); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvProxyHeader); v != "" {
		c.Server.ProxyHeader = v
	}
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv(EnvFallbackURLs); v != "" {
		c.Backend.FallbackURLs = splitList(v)
	}
	if v := os.Getenv(EnvCameraSource); v != "" {
		c.Camera.Source = camera.Source(v)
	}
	if v := os.Getenv(EnvCameraDevice); v != "" {
		c.Camera.Device = v
	}
	if v := os.Getenv(EnvSpeech); v != "" {
		switch strings.ToLower(v) {
		case "0", "false", "off", SpeechNone:
			c.Speech.Enabled = false
		default:
			c.Speech.Enabled = true
			if v != "1" && v != "true" && v != "on" {
				c.Speech.Provider = strings.ToLower(v)
			}
		}
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" && c.Speech.APIKey == "" {
		c.Speech.APIKey = v
	}
	if v := os.Getenv(EnvGoogleKey); v != "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv(EnvCredentials); v != "" && c.Model.CredentialsFile == "" {
		c.Model.CredentialsFile = v
	}
	if v := os.Getenv(EnvGeminiModel); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv(EnvOrigins); v != "" {
		c.Model.AllowedOrigins = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.Backend.MaxRetries < 0 {
		errs = append(errs, errors.New("backend.max_retries must not be negative"))
	}
	if c.Session.AcquireTimeout < 0 {
		errs = append(errs, errors.New("session.acquire_timeout must not be negative"))
	}
	for _, msg := range c.Camera.Validate() {
		errs = append(errs, fmt.Errorf("camera: %s", msg))
	}
	if c.Speech.Enabled {
		switch c.Speech.Provider {
		case SpeechOpenAI:
			if c.Speech.APIKey == "" {
				errs = append(errs, fmt.Errorf("speech: %s is required for provider %s", EnvOpenAIKey, SpeechOpenAI))
			}
		case SpeechNone:
		default:
			errs = append(errs, fmt.Errorf("speech.provider unknown: %q", c.Speech.Provider))
		}
	}

	return errors.Join(errs...)
}

// ValidateModel checks the settings the inference backend needs.
func (c *Config) ValidateModel() error {
	var errs []error
	if c.Model.APIKey == "" && c.Model.CredentialsFile == "" {
		errs = append(errs, fmt.Errorf("model: %s or credentials file is required", EnvGoogleKey))
	}
	if c.Model.Name == "" {
		errs = append(errs, errors.New("model.name is required"))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model.temperature out of range: %v", c.Model.Temperature))
	}
	if c.Model.MaxTokens <= 0 {
		errs = append(errs, errors.New("model.max_tokens must be positive"))
	}
	if c.Model.RateLimit < 0 {
		errs = append(errs, errors.New("model.rate_limit must not be negative"))
	}
	if c.Model.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("model.max_body_bytes must be positive"))
	}
	if c.Model.MaxPixels < 0 {
		errs = append(errs, errors.New("model.max_pixels must not be negative"))
	}
	return errors.Join(errs...)
}
