// Package camera acquires live video from a capture device and exposes the
// most recent frame of the stream for still capture.
//
// A Device hands out at most one Stream at a time. A Stream carries one or
// more tracks; stopping every track releases the underlying hardware.
// Implementations are provided for local V4L2/AVFoundation cameras through
// OpenCV, for browser cameras that push frames over a websocket, and a mock
// for tests.
package camera

import "fmt"

// Source selects the Device implementation.
type Source string

const (
	SourceOpenCV Source = "opencv" // local camera via gocv
	SourceRemote Source = "remote" // browser pushes frames over websocket
	SourceMock   Source = "mock"   // synthetic frames, for demos and tests
)

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime and take effect on
// the next acquisition.
type Config struct {
	Source Source `json:"source" yaml:"source"`

	// Device is a device index ("0") or path ("/dev/video0").
	Device string `json:"device" yaml:"device"`

	// === Resolution ===
	Width     int `json:"width" yaml:"width"`         // Requested frame width
	Height    int `json:"height" yaml:"height"`       // Requested frame height
	Framerate int `json:"framerate" yaml:"framerate"` // Requested FPS

	// === Encoding ===
	Quality        int `json:"quality" yaml:"quality"`                 // JPEG quality of captured stills, 1-100
	PreviewQuality int `json:"preview_quality" yaml:"preview_quality"` // JPEG quality of dashboard preview frames
	PreviewFPS     int `json:"preview_fps" yaml:"preview_fps"`         // Preview frames pushed per second
}

// Limits accepted by Validate.
const (
	MaxWidth      = 3840
	MaxHeight     = 2160
	MaxFramerate  = 60
	MaxPreviewFPS = 30
)

// DefaultConfig returns the configuration used when nothing is set.
// Stills are encoded at quality 80.
func DefaultConfig() Config {
	return Config{
		Source:         SourceOpenCV,
		Device:         "0",
		Width:          1280,
		Height:         720,
		Framerate:      30,
		Quality:        80,
		PreviewQuality: 60,
		PreviewFPS:     10,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	switch c.Source {
	case SourceOpenCV, SourceRemote, SourceMock:
	default:
		errors = append(errors, fmt.Sprintf("source must be opencv, remote, or mock (got %q)", c.Source))
	}

	if c.Source == SourceOpenCV && c.Device == "" {
		errors = append(errors, "device is required for the opencv source")
	}

	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between 160 and %d", MaxWidth))
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between 120 and %d", MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.PreviewQuality < 1 || c.PreviewQuality > 100 {
		errors = append(errors, "preview_quality must be between 1 and 100")
	}
	if c.PreviewFPS < 0 || c.PreviewFPS > MaxPreviewFPS {
		errors = append(errors, fmt.Sprintf("preview_fps must be between 0 and %d", MaxPreviewFPS))
	}

	return errors
}
