package solver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/snapsolve/pkg/camera"
)

// Session is one period of camera activity. It exists exactly while
// State.Recording is true.
type Session struct {
	ID         string
	Generation uint64
	Stream     camera.Stream

	ctx    context.Context
	cancel context.CancelFunc
}

// Context is cancelled when the session stops.
func (s *Session) Context() context.Context {
	return s.ctx
}

// SessionManager owns the camera stream lifecycle.
type SessionManager struct {
	device camera.Device
	store  *Store
	sink   Sink
	logger *slog.Logger

	// AcquireTimeout bounds Device.Acquire. Zero leaves it to ctx.
	AcquireTimeout time.Duration

	mu         sync.Mutex
	session    *Session
	starting   *pendingStart
	generation uint64
}

// pendingStart is an acquisition in progress. Stop cancels it.
type pendingStart struct {
	cancel context.CancelFunc
}

// NewSessionManager creates a manager acquiring from device.
func NewSessionManager(device camera.Device, store *Store, sink Sink, logger *slog.Logger) *SessionManager {
	if sink == nil {
		sink = SinkFunc(func(State) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		device: device,
		store:  store,
		sink:   sink,
		logger: logger.With("component", "solver.session"),
	}
}

// Start acquires a video-only stream and makes it the live session. It is
// a no-op when a session is active or already starting. On failure
// ErrorText is set, nothing is retained and the acquisition error is
// returned. The lock is not held while acquiring, so Stop can abort a
// start that is waiting on the device.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.session != nil || m.starting != nil {
		m.mu.Unlock()
		return nil
	}
	var (
		actx   context.Context
		cancel context.CancelFunc
	)
	if m.AcquireTimeout > 0 {
		actx, cancel = context.WithTimeout(ctx, m.AcquireTimeout)
	} else {
		actx, cancel = context.WithCancel(ctx)
	}
	pending := &pendingStart{cancel: cancel}
	m.starting = pending
	m.mu.Unlock()

	stream, err := m.device.Acquire(actx, camera.VideoOnly)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.starting != pending {
		if stream != nil {
			camera.Release(stream)
		}
		m.logger.Info("session start cancelled")
		return fmt.Errorf("start session: %w", ErrStartCancelled)
	}
	m.starting = nil

	if err != nil {
		m.store.Update(func(s *State) {
			s.Recording = false
			s.ErrorText = MsgCameraUnavailable
		})
		m.logger.Warn("camera acquisition failed", "error", err)
		return fmt.Errorf("start session: %w", err)
	}

	m.generation++
	sctx, scancel := context.WithCancel(context.Background())
	m.session = &Session{
		ID:         uuid.NewString(),
		Generation: m.generation,
		Stream:     stream,
		ctx:        sctx,
		cancel:     scancel,
	}

	m.sink.AttachSurface(stream)
	m.store.SetSession(m.generation, func(s *State) {
		s.Recording = true
		s.ErrorText = ""
	})

	m.logger.Info("session started",
		"session_id", m.session.ID,
		"generation", m.generation,
		"stream_id", stream.ID(),
	)
	return nil
}

// Stop releases the stream and ends the session. The solution is cleared;
// an error message is kept. A start still waiting on the device is
// cancelled. It reports whether a session was active.
func (m *SessionManager) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p := m.starting; p != nil {
		m.starting = nil
		p.cancel()
	}

	s := m.session
	if s == nil {
		return false
	}
	m.session = nil

	camera.Release(s.Stream)
	s.cancel()
	m.sink.DetachSurface()
	m.store.SetSession(0, func(st *State) {
		st.Recording = false
		st.SolutionText = ""
	})

	m.logger.Info("session stopped", "session_id", s.ID, "generation", s.Generation)
	return true
}

// Current returns the live session or nil.
func (m *SessionManager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Active reports whether a session is live.
func (m *SessionManager) Active() bool {
	return m.Current() != nil
}
