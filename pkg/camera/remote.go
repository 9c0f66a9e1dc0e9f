package camera

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Control message types exchanged with the browser publisher.
const (
	msgAcquire     = "acquire"     // server → browser: call getUserMedia
	msgRelease     = "release"     // server → browser: stop all tracks
	msgGranted     = "granted"     // browser → server: stream started
	msgDenied      = "denied"      // browser → server: permission refused
	msgUnavailable = "unavailable" // browser → server: no camera
	msgBusy        = "busy"        // browser → server: camera in use
)

type controlMessage struct {
	Type  string `json:"type"`
	Video bool   `json:"video,omitempty"`
	Audio bool   `json:"audio,omitempty"`
	Error string `json:"error,omitempty"`
}

// RemoteDevice is a camera living in a browser tab. The tab connects to the
// ingest websocket, answers acquire/release requests, and pushes JPEG frames
// as binary messages while a stream is open.
type RemoteDevice struct {
	logger *slog.Logger

	mu        sync.Mutex
	publisher *publisher
	stream    *remoteStream
}

// NewRemoteDevice creates a device with no publisher attached.
func NewRemoteDevice(logger *slog.Logger) *RemoteDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteDevice{logger: logger.With("component", "camera.remote")}
}

// RegisterRoutes mounts the ingest websocket at path.
func (d *RemoteDevice) RegisterRoutes(app fiber.Router, path string) {
	app.Use(path, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get(path, websocket.New(d.serve))
}

// Connected reports whether a browser publisher is attached.
func (d *RemoteDevice) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.publisher != nil
}

// Acquire asks the connected browser to open its camera and waits for the
// answer.
func (d *RemoteDevice) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	if !c.Video {
		return nil, ErrUnsupported
	}

	d.mu.Lock()
	p := d.publisher
	switch {
	case p == nil:
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: no browser connected", ErrNoDevice)
	case d.stream != nil:
		d.mu.Unlock()
		return nil, ErrDeviceBusy
	}
	d.mu.Unlock()

	// Drop a stale answer from an earlier, abandoned request.
	select {
	case <-p.replies:
	default:
	}

	if err := p.send(controlMessage{Type: msgAcquire, Video: c.Video, Audio: c.Audio}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	var reply controlMessage
	select {
	case reply = <-p.replies:
	case <-p.closed:
		return nil, fmt.Errorf("%w: browser disconnected", ErrNoDevice)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, ctx.Err())
	}

	switch reply.Type {
	case msgGranted:
	case msgDenied:
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, reply.Error)
	case msgBusy:
		return nil, fmt.Errorf("%w: %s", ErrDeviceBusy, reply.Error)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoDevice, reply.Error)
	}

	s := &remoteStream{id: uuid.NewString(), device: d, publisher: p}
	s.track = &remoteTrack{id: uuid.NewString(), stream: s}

	d.mu.Lock()
	if d.publisher != p {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: browser disconnected", ErrNoDevice)
	}
	d.stream = s
	d.mu.Unlock()

	d.logger.Info("remote camera granted", "stream_id", s.id)
	return s, nil
}

func (d *RemoteDevice) serve(conn *websocket.Conn) {
	p := &publisher{
		conn:    conn,
		replies: make(chan controlMessage, 1),
		closed:  make(chan struct{}),
	}

	d.mu.Lock()
	if d.publisher != nil {
		d.mu.Unlock()
		_ = conn.WriteJSON(controlMessage{Type: msgBusy, Error: "another publisher is connected"})
		return
	}
	d.publisher = p
	d.mu.Unlock()

	d.logger.Info("remote camera connected", "addr", conn.RemoteAddr().String())

	defer func() {
		close(p.closed)
		d.mu.Lock()
		d.publisher = nil
		if d.stream != nil && d.stream.publisher == p {
			d.stream.ended.Store(true)
			d.stream = nil
		}
		d.mu.Unlock()
		d.logger.Info("remote camera disconnected")
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch mt {
		case websocket.TextMessage:
			var msg controlMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				d.logger.Warn("bad control message", "error", err)
				continue
			}
			select {
			case p.replies <- msg:
			default:
			}

		case websocket.BinaryMessage:
			d.mu.Lock()
			s := d.stream
			d.mu.Unlock()
			if s == nil || s.publisher != p {
				continue
			}
			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				d.logger.Debug("dropping undecodable frame", "bytes", len(data), "error", err)
				continue
			}
			s.setFrame(img)
		}
	}
}

func (d *RemoteDevice) release(s *remoteStream) {
	d.mu.Lock()
	if d.stream == s {
		d.stream = nil
	}
	d.mu.Unlock()

	if err := s.publisher.send(controlMessage{Type: msgRelease}); err != nil {
		d.logger.Debug("release not delivered", "error", err)
	}
	d.logger.Info("remote camera released", "stream_id", s.id)
}

type publisher struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	replies chan controlMessage
	closed  chan struct{}
}

func (p *publisher) send(msg controlMessage) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(msg)
}

type remoteStream struct {
	id        string
	device    *RemoteDevice
	publisher *publisher
	track     *remoteTrack

	mu    sync.RWMutex
	frame image.Image

	ended    atomic.Bool
	stopOnce sync.Once
}

func (s *remoteStream) ID() string { return s.id }

func (s *remoteStream) Tracks() []Track { return []Track{s.track} }

func (s *remoteStream) Frame() (image.Image, error) {
	if s.ended.Load() {
		return nil, ErrNoFrame
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frame == nil {
		return nil, ErrNoFrame
	}
	return s.frame, nil
}

func (s *remoteStream) setFrame(img image.Image) {
	s.mu.Lock()
	s.frame = img
	s.mu.Unlock()
}

type remoteTrack struct {
	id     string
	stream *remoteStream
}

func (t *remoteTrack) ID() string      { return t.id }
func (t *remoteTrack) Kind() TrackKind { return TrackVideo }
func (t *remoteTrack) Live() bool      { return !t.stream.ended.Load() }

func (t *remoteTrack) Stop() {
	t.stream.stopOnce.Do(func() {
		t.stream.ended.Store(true)
		t.stream.device.release(t.stream)
	})
}

// Verify RemoteDevice implements Device at compile time.
var _ Device = (*RemoteDevice)(nil)
