package solver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/snapsolve/pkg/camera"
	"github.com/teslashibe/snapsolve/pkg/inference"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithQuality sets a fixed JPEG quality for captured stills.
func WithQuality(q int) Option {
	return func(c *Controller) { c.quality = func() int { return q } }
}

// WithQualityFunc reads the still quality at every capture, typically
// from a camera.Manager.
func WithQualityFunc(fn func() int) Option {
	return func(c *Controller) { c.quality = fn }
}

// WithAcquireTimeout bounds how long Start waits for the camera.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *Controller) { c.acquireTimeout = d }
}

// WithRequestTimeout bounds each analysis request.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// Controller ties the camera session, capture pipeline, and spoken
// feedback to one State. Every user action goes through it.
type Controller struct {
	store    *Store
	sessions *SessionManager
	pipeline *Pipeline
	feedback *Feedback
	logger   *slog.Logger

	quality        func() int
	timeout        time.Duration
	acquireTimeout time.Duration

	wg sync.WaitGroup
}

// NewController creates a controller. sink receives every state change
// and the live stream; speaker may be nil.
func NewController(device camera.Device, analyzer inference.Analyzer, sink Sink, speaker Speaker, opts ...Option) *Controller {
	c := &Controller{
		logger:  slog.Default(),
		timeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if sink == nil {
		sink = SinkFunc(func(State) {})
	}
	c.logger = c.logger.With("component", "solver")

	c.store = NewStore(sink.Publish)
	c.sessions = NewSessionManager(device, c.store, sink, c.logger)
	c.sessions.AcquireTimeout = c.acquireTimeout
	c.feedback = NewFeedback(c.store, speaker, c.logger)
	c.pipeline = NewPipeline(c.store, analyzer, c.feedback, c.quality, c.timeout, c.logger)
	return c
}

// Start begins a session. It is a no-op while one is active.
func (c *Controller) Start(ctx context.Context) error {
	return c.sessions.Start(ctx)
}

// Stop ends the session, if any. A request still in flight is abandoned
// and its response discarded; a start still waiting on the camera is
// cancelled.
func (c *Controller) Stop() {
	c.sessions.Stop()
}

// Toggle starts a session when idle and stops it when recording.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.sessions.Active() {
		c.Stop()
		return nil
	}
	return c.Start(ctx)
}

// Capture grabs the current frame and submits it for analysis in the
// background. It returns once the request is in flight.
//
// ErrNotRecording, ErrBusy, and ErrNoFrame leave state untouched.
func (c *Controller) Capture(ctx context.Context) error {
	s := c.sessions.Current()
	if s == nil {
		return ErrNotRecording
	}
	if c.store.Snapshot().Processing {
		return ErrBusy
	}

	req, ok := c.pipeline.CaptureFrame(s)
	if !ok {
		return ErrNoFrame
	}
	if !c.store.TryBeginProcessing() {
		return ErrBusy
	}

	rctx := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.pipeline.run(rctx, s, req)
		if err != nil && !errors.Is(err, ErrStale) {
			c.logger.Debug("capture finished with error", "error", err)
		}
	}()
	return nil
}

// Solve captures and waits for the outcome. It returns the solution
// text, which is empty when the backend had none.
func (c *Controller) Solve(ctx context.Context) (string, error) {
	s := c.sessions.Current()
	if s == nil {
		return "", ErrNotRecording
	}
	req, ok := c.pipeline.CaptureFrame(s)
	if !ok {
		return "", ErrNoFrame
	}
	if err := c.pipeline.Submit(ctx, s, req); err != nil {
		return "", err
	}
	return c.store.Snapshot().SolutionText, nil
}

// ToggleMute flips Muted and returns the new value.
func (c *Controller) ToggleMute() bool {
	return c.feedback.ToggleMute()
}

// State returns the current snapshot.
func (c *Controller) State() State {
	return c.store.Snapshot()
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	return c.store.Snapshot().Phase()
}

// Session returns the live session or nil.
func (c *Controller) Session() *Session {
	return c.sessions.Current()
}

// Wait blocks until background captures have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close stops the session and waits for background work.
func (c *Controller) Close() error {
	c.Stop()
	c.Wait()
	return nil
}
