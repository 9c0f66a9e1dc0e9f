package inference

import (
	"context"
	"errors"
	"log/slog"
)

// Chain is an Analyzer that falls back through several backends in order.
type Chain struct {
	backends []Analyzer
	logger   *slog.Logger
}

// NewChain chains analyzers, first preferred. It needs at least one.
func NewChain(analyzers ...Analyzer) (*Chain, error) {
	return newChain(slog.Default(), analyzers)
}

func newChain(logger *slog.Logger, analyzers []Analyzer) (*Chain, error) {
	if len(analyzers) == 0 {
		return nil, ErrProviderUnavailable
	}
	return &Chain{
		backends: analyzers,
		logger:   logger.With("component", "inference.chain"),
	}, nil
}

// NewClientChain builds one Client per backend URL. A single URL yields
// the bare Client; several yield a Chain in the given order.
func NewClientChain(urls []string, opts ...Option) (Analyzer, error) {
	if len(urls) == 0 {
		return nil, ErrNoBaseURL
	}

	clients := make([]Analyzer, 0, len(urls))
	for _, u := range urls {
		c, err := NewClient(append(opts, WithBaseURL(u))...)
		if err != nil {
			for _, built := range clients {
				built.Close()
			}
			return nil, err
		}
		clients = append(clients, c)
	}
	if len(clients) == 1 {
		return clients[0], nil
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return newChain(cfg.Logger, clients)
}

// Analyze returns the first backend's answer that is not an error. A
// cancelled ctx stops the walk.
func (c *Chain) Analyze(ctx context.Context, req *Request) (*Result, error) {
	failures := make([]error, 0, len(c.backends))

	for i, backend := range c.backends {
		result, err := backend.Analyze(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback backend succeeded", "backend_index", i)
			}
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		failures = append(failures, err)
		c.logger.Warn("backend failed, trying next", "backend_index", i, "error", err)
	}
	return nil, &ChainError{Errors: failures}
}

// Health succeeds while any backend is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, backend := range c.backends {
		if err := backend.Health(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(c.backends) {
		return WrapError("chain", errors.Join(errs...))
	}
	c.logger.Debug("health check complete",
		"healthy", len(c.backends)-len(errs),
		"total", len(c.backends),
	)
	return nil
}

// Close closes every backend.
func (c *Chain) Close() error {
	var errs []error
	for _, backend := range c.backends {
		errs = append(errs, backend.Close())
	}
	return errors.Join(errs...)
}

// Analyzers returns the backends in fallback order.
func (c *Chain) Analyzers() []Analyzer {
	return c.backends
}

var _ Analyzer = (*Chain)(nil)
