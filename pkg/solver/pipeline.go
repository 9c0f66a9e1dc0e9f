package solver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/snapsolve/pkg/camera"
	"github.com/teslashibe/snapsolve/pkg/inference"
)

// DefaultQuality is the JPEG quality of captured stills.
const DefaultQuality = 80

// DefaultRequestTimeout bounds one analysis request.
const DefaultRequestTimeout = 30 * time.Second

// CaptureRequest carries one still to the backend.
type CaptureRequest struct {
	// ImageData is a "data:image/jpeg;base64,..." URL.
	ImageData string
}

// Pipeline turns the live frame into a request and tracks the one
// request allowed in flight.
type Pipeline struct {
	store    *Store
	analyzer inference.Analyzer
	feedback *Feedback
	logger   *slog.Logger

	quality func() int
	timeout time.Duration
}

// NewPipeline creates a pipeline. quality is read on every capture so
// runtime camera changes apply to the next still. A nil quality or zero
// timeout selects the defaults.
func NewPipeline(store *Store, analyzer inference.Analyzer, feedback *Feedback, quality func() int, timeout time.Duration, logger *slog.Logger) *Pipeline {
	if quality == nil {
		quality = func() int { return DefaultQuality }
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    store,
		analyzer: analyzer,
		feedback: feedback,
		logger:   logger.With("component", "solver.pipeline"),
		quality:  quality,
		timeout:  timeout,
	}
}

// CaptureFrame encodes the session's current frame. It returns false
// when there is no session or no frame with pixels yet.
func (p *Pipeline) CaptureFrame(s *Session) (CaptureRequest, bool) {
	if s == nil || s.Stream == nil {
		return CaptureRequest{}, false
	}

	frame, err := s.Stream.Frame()
	if err != nil || !camera.HasPixels(frame) {
		return CaptureRequest{}, false
	}

	quality := p.quality()
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	data, err := camera.EncodeDataURL(frame, quality)
	if err != nil {
		p.logger.Warn("encode frame failed", "error", err)
		return CaptureRequest{}, false
	}

	b := frame.Bounds()
	p.logger.Debug("frame captured",
		"session_id", s.ID,
		"width", b.Dx(),
		"height", b.Dy(),
		"quality", quality,
		"bytes", len(data),
	)
	return CaptureRequest{ImageData: data}, true
}

// Submit sends req for analysis and applies the outcome. It returns
// ErrBusy without touching state if a request is already in flight.
func (p *Pipeline) Submit(ctx context.Context, s *Session, req CaptureRequest) error {
	if !p.store.TryBeginProcessing() {
		return ErrBusy
	}
	return p.run(ctx, s, req)
}

// run performs the request once Processing is held.
func (p *Pipeline) run(ctx context.Context, s *Session, req CaptureRequest) error {
	start := time.Now()

	// The request dies with the caller, the session, or the timeout.
	rctx, cancel := context.WithTimeout(s.Context(), p.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	result, err := p.analyzer.Analyze(rctx, &inference.Request{Image: req.ImageData})

	log := p.logger.With(
		"session_id", s.ID,
		"generation", s.Generation,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case err != nil:
		applied := p.store.EndProcessing(s.Generation, func(st *State) {
			st.ErrorText = MsgProcessingFailed
		})
		if !applied {
			log.Debug("discarding failure for ended session", "error", err)
			return ErrStale
		}
		log.Warn("analysis failed", "error", err)
		return fmt.Errorf("analyze: %w", err)

	case result.HasSolution():
		text := *result.Solution
		applied := p.store.EndProcessing(s.Generation, func(st *State) {
			st.SolutionText = text
			st.ErrorText = ""
		})
		if !applied {
			log.Debug("discarding solution for ended session")
			return ErrStale
		}
		log.Info("solution received", "chars", len(text))
		if p.feedback != nil {
			p.feedback.OnSolution(text)
		}
		return nil

	default:
		if !p.store.EndProcessing(s.Generation, nil) {
			return ErrStale
		}
		log.Info("no solution in response")
		return nil
	}
}
