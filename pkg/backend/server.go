// Package backend is the inference service: it accepts a captured image,
// asks a vision model about it, and returns the model's answer.
package backend

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/snapsolve/pkg/inference"
)

// Error messages returned in {"error": ...} bodies.
const (
	MsgNotFound    = "Not found"
	MsgRateLimited = "Rate limit exceeded"
	MsgInternal    = "Internal server error"
	MsgContentType = "Content-Type must be application/json"
	MsgNoImage     = "No image data provided"
	MsgNoResponse  = "No response generated"

	prefixImageFailed = "Failed to process image: "
	prefixAIFailed    = "AI processing failed: "
)

// Server serves the inference API.
type Server struct {
	app      *fiber.App
	cfg      *Config
	provider inference.VisionProvider
	logger   *slog.Logger
}

// New creates a server answering with provider.
func New(provider inference.VisionProvider, opts ...Option) *Server {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		provider: provider,
		logger:   cfg.Logger.With("component", "backend"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "snapsolve backend",
		DisableStartupMessage: true,
		BodyLimit:             cfg.MaxBodyBytes,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ProxyHeader:           cfg.ProxyHeader,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(s.requestLog)
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: cfg.RateWindow,
			LimitReached: func(c *fiber.Ctx) error {
				return errorJSON(c, fiber.StatusTooManyRequests, MsgRateLimited)
			},
		}))
	}
	app.Use("/api", cors.New(cors.Config{AllowOrigins: cfg.AllowedOrigins}))

	app.Get(inference.HealthPath, s.handleHealth)
	app.Post(inference.ProcessImagePath, s.handleProcessImage)

	app.Use(func(c *fiber.Ctx) error {
		return errorJSON(c, fiber.StatusNotFound, MsgNotFound)
	})

	s.app = app
	return s
}

// App returns the fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Warn("shutdown failed", "error", err)
		}
	}()

	s.logger.Info("backend listening",
		"addr", ln.Addr().String(),
		"model", s.cfg.Model,
		"rate_limit", s.cfg.RateLimit,
		"rate_window", s.cfg.RateWindow,
	)
	err := s.app.Listener(ln)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// handleError maps unhandled errors to JSON bodies.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return errorJSON(c, fe.Code, MsgNotFound)
		case fiber.StatusTooManyRequests:
			return errorJSON(c, fe.Code, MsgRateLimited)
		case fiber.StatusInternalServerError:
		default:
			return errorJSON(c, fe.Code, fe.Message)
		}
	}
	s.logger.Error("request failed", "path", c.Path(), "error", err)
	return errorJSON(c, fiber.StatusInternalServerError, MsgInternal)
}

// requestLog writes one line per request.
func (s *Server) requestLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	s.logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"ip", c.IP(),
		"duration_ms", time.Since(start).Milliseconds(),
		"status_code", c.Response().StatusCode(),
	)
	return nil
}
