package inference

import (
	"errors"
	"fmt"

	"github.com/teslashibe/snapsolve/internal/apierr"
)

var (
	ErrNoBaseURL      = errors.New("inference: base URL required")
	ErrInvalidRetries = errors.New("inference: max retries must not be negative")
	ErrNoImage        = errors.New("inference: image required")

	// ErrNoAPIKey means no usable vision credentials were found.
	ErrNoAPIKey = errors.New("inference: API key required")
	ErrNoModel  = errors.New("inference: model required")

	// ErrEmptyResponse means the model answered with no text.
	ErrEmptyResponse = errors.New("inference: no response generated")

	ErrProviderUnavailable = errors.New("inference: provider unavailable")

	// ErrAllProvidersFailed matches any *ChainError.
	ErrAllProvidersFailed = errors.New("inference: all providers failed")
)

// APIError is a non-2xx answer from the backend or the vision API.
type APIError = apierr.Error

// ProviderError names the backend or model an error came from.
type ProviderError = apierr.ProviderError

// WrapError attributes err to provider. A nil err stays nil.
func WrapError(provider string, err error) error {
	return apierr.Wrap("inference", provider, err)
}

// ChainError collects one failure per backend of a Chain, in order.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	switch n := len(e.Errors); n {
	case 0:
		return "inference chain: nothing tried"
	case 1:
		return fmt.Sprintf("inference chain: %v", e.Errors[0])
	default:
		return fmt.Sprintf("inference chain: %d backends failed, last: %v", n, e.Errors[n-1])
	}
}

// Unwrap exposes ErrAllProvidersFailed and each backend failure to
// errors.Is.
func (e *ChainError) Unwrap() []error {
	return append([]error{ErrAllProvidersFailed}, e.Errors...)
}
