package tts

import (
	"errors"

	"github.com/teslashibe/snapsolve/internal/apierr"
)

var (
	ErrNoAPIKey     = errors.New("tts: API key required")
	ErrNoVoiceID    = errors.New("tts: voice ID required")
	ErrInvalidSpeed = errors.New("tts: speed must be between 0.25 and 4.0")

	// ErrEmptyText means nothing was left to say after cleanup.
	ErrEmptyText = errors.New("tts: empty text")

	ErrProviderUnavailable = errors.New("tts: no provider available")
	ErrSpeakerClosed       = errors.New("tts: speaker closed")
)

// APIError is a non-200 answer from a speech API.
type APIError = apierr.Error

// ProviderError names the speech provider an error came from.
type ProviderError = apierr.ProviderError

// WrapError attributes err to provider. A nil err stays nil.
func WrapError(provider string, err error) error {
	return apierr.Wrap("tts", provider, err)
}
