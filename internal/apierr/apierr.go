// Package apierr describes failed calls to the HTTP APIs snapsolve talks
// to: the inference backend, the vision model, and the speech service.
package apierr

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBody bounds how much of an error body is read.
const maxBody = 64 << 10

// Error is a non-success HTTP response.
type Error struct {
	// Service is the calling package, such as "inference" or "tts".
	Service  string
	Provider string

	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	svc := e.Service
	if svc == "" {
		svc = "api"
	}
	code := ""
	if e.Code != "" {
		code = " (" + e.Code + ")"
	}
	return fmt.Sprintf("%s [%s]: HTTP %d%s: %s", svc, e.Provider, e.StatusCode, code, e.Message)
}

// IsRateLimited reports HTTP 429.
func (e *Error) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsUnauthorized reports HTTP 401.
func (e *Error) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

// IsForbidden reports HTTP 403.
func (e *Error) IsForbidden() bool { return e.StatusCode == http.StatusForbidden }

// IsServerError reports HTTP 5xx.
func (e *Error) IsServerError() bool { return e.StatusCode >= 500 && e.StatusCode < 600 }

// IsRetryable reports whether the same request may succeed later.
func (e *Error) IsRetryable() bool { return e.IsRateLimited() || e.IsServerError() }

// FromResponse builds an Error from resp, consuming its body. decode
// extracts message and code from the body; when it finds no message the
// trimmed body is used, then the status text.
func FromResponse(service, provider string, resp *http.Response, decode func([]byte) (msg, code string)) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	e := &Error{Service: service, Provider: provider, StatusCode: resp.StatusCode}
	if decode != nil {
		e.Message, e.Code = decode(body)
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

// ProviderError attributes an error to a provider.
type ProviderError struct {
	Service  string
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Service, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Wrap attributes err to provider. It returns nil for a nil err.
func Wrap(service, provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Service: service, Provider: provider, Err: err}
}
