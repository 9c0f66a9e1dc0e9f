package camera

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// MockDevice implements Device for tests and demos.
type MockDevice struct {
	// AcquireFunc is called when Acquire is invoked.
	// If nil, a MockStream with a 640x480 gradient frame is returned.
	AcquireFunc func(ctx context.Context, c Constraints) (Stream, error)

	mu       sync.Mutex
	acquired []*MockStream
	calls    int
}

// NewMockDevice creates a mock device producing gradient frames.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// FailingDevice returns a mock device whose every acquisition fails with err.
func FailingDevice(err error) *MockDevice {
	return &MockDevice{
		AcquireFunc: func(ctx context.Context, c Constraints) (Stream, error) {
			return nil, err
		},
	}
}

// Acquire calls AcquireFunc and records the call.
func (d *MockDevice) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	d.mu.Lock()
	d.calls++
	fn := d.AcquireFunc
	d.mu.Unlock()

	if fn != nil {
		return fn(ctx, c)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Video {
		return nil, ErrUnsupported
	}

	s := NewMockStream(GradientFrame(640, 480))
	d.mu.Lock()
	d.acquired = append(d.acquired, s)
	d.mu.Unlock()
	return s, nil
}

// Calls returns the number of Acquire invocations.
func (d *MockDevice) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Streams returns the streams handed out by the default AcquireFunc.
func (d *MockDevice) Streams() []*MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockStream, len(d.acquired))
	copy(out, d.acquired)
	return out
}

// MockStream is a Stream with one video track and a settable frame.
type MockStream struct {
	id    string
	track *MockTrack

	mu    sync.RWMutex
	frame image.Image
}

// NewMockStream creates a stream that returns frame until replaced.
func NewMockStream(frame image.Image) *MockStream {
	return &MockStream{
		id:    uuid.NewString(),
		track: &MockTrack{id: uuid.NewString(), kind: TrackVideo},
		frame: frame,
	}
}

// ID implements Stream.
func (s *MockStream) ID() string { return s.id }

// Tracks implements Stream.
func (s *MockStream) Tracks() []Track { return []Track{s.track} }

// Track returns the single video track.
func (s *MockStream) Track() *MockTrack { return s.track }

// SetFrame replaces the current frame. nil simulates a stream that has not
// produced a frame yet.
func (s *MockStream) SetFrame(img image.Image) {
	s.mu.Lock()
	s.frame = img
	s.mu.Unlock()
}

// Frame implements Stream.
func (s *MockStream) Frame() (image.Image, error) {
	if !s.track.Live() {
		return nil, ErrNoFrame
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frame == nil {
		return nil, ErrNoFrame
	}
	return s.frame, nil
}

// MockTrack counts Stop calls.
type MockTrack struct {
	id    string
	kind  TrackKind
	stops atomic.Int32
}

// ID implements Track.
func (t *MockTrack) ID() string { return t.id }

// Kind implements Track.
func (t *MockTrack) Kind() TrackKind { return t.kind }

// Stop implements Track.
func (t *MockTrack) Stop() { t.stops.Add(1) }

// Live implements Track.
func (t *MockTrack) Live() bool { return t.stops.Load() == 0 }

// Stops returns how many times Stop was called.
func (t *MockTrack) Stops() int { return int(t.stops.Load()) }

// GradientFrame returns a w x h RGBA image with a diagonal gradient.
func GradientFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(w, 1)),
				G: uint8(y * 255 / max(h, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// Verify MockDevice implements Device at compile time.
var _ Device = (*MockDevice)(nil)
