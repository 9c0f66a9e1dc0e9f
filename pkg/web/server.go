// Package web serves the snapsolve dashboard: a control API for the
// solver and websocket feeds of its state, activity log, and camera
// preview.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/snapsolve/pkg/camera"
	"github.com/teslashibe/snapsolve/pkg/hub"
	"github.com/teslashibe/snapsolve/pkg/solver"
)

// Controller is the set of user actions the dashboard exposes.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Capture(ctx context.Context) error
	ToggleMute() bool
	State() solver.State
}

// StateMessage is the JSON form of a state snapshot.
type StateMessage struct {
	solver.State
	Phase solver.Phase `json:"phase"`
}

func newStateMessage(s solver.State) StateMessage {
	return StateMessage{State: s, Phase: s.Phase()}
}

// LogEntry is one line of the activity feed.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, solution, error
	Message string `json:"message"`
}

const maxLogEntries = 500

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCamera exposes runtime camera configuration and takes preview
// settings from m.
func WithCamera(m *camera.Manager) Option {
	return func(s *Server) { s.camera = m }
}

// WithRemoteCamera mounts the browser camera ingest endpoint.
func WithRemoteCamera(d *camera.RemoteDevice) Option {
	return func(s *Server) { s.remote = d }
}

// WithStaticDir serves dashboard assets from dir.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithAllowedOrigins sets the CORS origins of the API.
func WithAllowedOrigins(origins string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithTimeouts bounds reading a request and writing its response.
// Websocket connections manage their own deadlines.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) { s.readTimeout, s.writeTimeout = read, write }
}

// Server is the web dashboard. It implements solver.Sink.
type Server struct {
	app       *fiber.App
	addr      string
	logger    *slog.Logger
	camera    *camera.Manager
	remote    *camera.RemoteDevice
	staticDir string
	origins   string

	readTimeout  time.Duration
	writeTimeout time.Duration

	ctrlMu sync.RWMutex
	ctrl   Controller

	stateHub   *hub.Hub
	logHub     *hub.Hub
	previewHub *hub.Hub

	mu   sync.Mutex
	last solver.State
	logs []LogEntry

	previewMu   sync.Mutex
	stopPreview context.CancelFunc
}

// NewServer creates a dashboard listening on addr.
func NewServer(addr string, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		logger:  slog.Default(),
		origins: "*",
		logs:    make([]LogEntry, 0, maxLogEntries),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")

	s.stateHub = hub.New("state", hub.WithLogger(s.logger), hub.WithReplay())
	s.logHub = hub.New("logs", hub.WithLogger(s.logger))
	s.previewHub = hub.New("preview", hub.WithLogger(s.logger))

	app := fiber.New(fiber.Config{
		AppName:               "snapsolve dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           s.readTimeout,
		WriteTimeout:          s.writeTimeout,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: s.origins}))

	if s.staticDir != "" {
		app.Static("/", s.staticDir)
	}

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/state", s.handleState)
	api.Post("/session/start", s.handleStart)
	api.Post("/session/stop", s.handleStop)
	api.Post("/capture", s.handleCapture)
	api.Post("/mute", s.handleMute)
	api.Get("/logs", s.handleLogs)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleUpdateCamera)

	if s.remote != nil {
		s.remote.RegisterRoutes(app, "/ws/camera/ingest")
	}
	if s.camera != nil {
		s.camera.OnChange(func(cfg camera.Config) {
			s.AddLog("info", fmt.Sprintf("camera set to %dx%d at %d fps (next session)", cfg.Width, cfg.Height, cfg.Framerate))
		})
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleWS(s.stateHub)))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/preview", websocket.New(s.handleWS(s.previewHub)))

	s.app = app
	return s
}

// Bind attaches the controller behind the API and publishes its current
// state.
func (s *Server) Bind(c Controller) {
	s.ctrlMu.Lock()
	s.ctrl = c
	s.ctrlMu.Unlock()
	s.Publish(c.State())
}

func (s *Server) controller() Controller {
	s.ctrlMu.RLock()
	defer s.ctrlMu.RUnlock()
	return s.ctrl
}

// App returns the fiber app, for tests and extra routes.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.stateHub.Run(ctx)
	go s.logHub.Run(ctx)
	go s.previewHub.Run(ctx)

	go func() {
		<-ctx.Done()
		s.DetachSurface()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Warn("shutdown failed", "error", err)
		}
	}()

	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	err := s.app.Listener(ln)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Publish broadcasts a state snapshot and records notable changes in the
// activity log. It never blocks.
func (s *Server) Publish(st solver.State) {
	if err := s.stateHub.BroadcastJSON(newStateMessage(st)); err != nil {
		s.logger.Warn("encode state failed", "error", err)
	}

	s.mu.Lock()
	prev := s.last
	s.last = st
	s.mu.Unlock()

	if st.Recording != prev.Recording {
		if st.Recording {
			s.AddLog("info", "camera started")
		} else {
			s.AddLog("info", "camera stopped")
		}
	}
	if st.SolutionText != "" && st.SolutionText != prev.SolutionText {
		s.AddLog("solution", st.SolutionText)
	}
	if st.ErrorText != "" && st.ErrorText != prev.ErrorText {
		s.AddLog("error", st.ErrorText)
	}
}

// AddLog appends to the activity log and broadcasts the entry.
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.mu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[1:]
	}
	s.mu.Unlock()

	_ = s.logHub.BroadcastJSON(entry)
}

// Logs returns a copy of the activity log.
func (s *Server) Logs() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// PreviewClients returns the number of connected preview viewers.
func (s *Server) PreviewClients() int {
	return s.previewHub.ClientCount()
}

var _ solver.Sink = (*Server)(nil)
