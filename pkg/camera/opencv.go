//go:build opencv

package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// OpenCVDevice captures from a local camera through OpenCV.
// Only one stream may be open at a time.
type OpenCVDevice struct {
	manager *Manager
	logger  *slog.Logger

	mu   sync.Mutex
	busy bool
}

// newOpenCVDevice creates a device reading its settings from manager on
// every acquisition.
func newOpenCVDevice(manager *Manager, logger *slog.Logger) (Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenCVDevice{
		manager: manager,
		logger:  logger.With("component", "camera.opencv"),
	}, nil
}

// Acquire opens the configured camera. Audio is not supported.
func (d *OpenCVDevice) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	if !c.Video || c.Audio {
		return nil, ErrUnsupported
	}

	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return nil, ErrDeviceBusy
	}
	d.busy = true
	d.mu.Unlock()

	s, err := d.open(ctx)
	if err != nil {
		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
		return nil, err
	}
	return s, nil
}

func (d *OpenCVDevice) open(ctx context.Context) (*openCVStream, error) {
	cfg := d.manager.GetConfig()

	if err := probeDevice(cfg.Device); err != nil {
		return nil, err
	}

	var target interface{} = cfg.Device
	if idx, err := strconv.Atoi(cfg.Device); err == nil {
		target = idx
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrNoDevice, cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s did not open", ErrNoDevice, cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	s := &openCVStream{
		id:      uuid.NewString(),
		vc:      vc,
		latest:  gocv.NewMat(),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  d.logger,
		release: func() {
			d.mu.Lock()
			d.busy = false
			d.mu.Unlock()
		},
	}
	s.track = &openCVTrack{id: uuid.NewString(), stream: s}

	go s.readLoop(cfg.Framerate)

	// Wait for the first frame so a freshly acquired stream is capturable.
	select {
	case <-s.ready:
	case <-ctx.Done():
		s.stop()
		return nil, fmt.Errorf("%w: waiting for first frame: %v", ErrNoDevice, ctx.Err())
	case <-s.done:
		s.stop()
		return nil, fmt.Errorf("%w: %s stopped before producing a frame", ErrNoDevice, cfg.Device)
	}

	d.logger.Info("camera opened",
		"device", cfg.Device,
		"width", cfg.Width,
		"height", cfg.Height,
		"stream_id", s.id,
	)
	return s, nil
}

// probeDevice maps OS errors on a V4L2 node to acquisition errors.
// Non-Linux platforms and non-path devices are left to OpenCV.
func probeDevice(device string) error {
	if runtime.GOOS != "linux" {
		return nil
	}
	path := device
	if idx, err := strconv.Atoi(device); err == nil {
		path = fmt.Sprintf("/dev/video%d", idx)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err == nil {
		f.Close()
		return nil
	}
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNoDevice, path)
	case errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("%w: %s", ErrDeviceBusy, path)
	default:
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
}

type openCVStream struct {
	id     string
	vc     *gocv.VideoCapture
	track  *openCVTrack
	logger *slog.Logger

	mu     sync.Mutex
	latest gocv.Mat
	seen   bool

	ready     chan struct{} // closed on first frame
	done      chan struct{} // closed when readLoop exits
	stopped   chan struct{} // closed by stop
	stopOnce  sync.Once
	readyOnce sync.Once
	release   func()
}

func (s *openCVStream) ID() string { return s.id }

func (s *openCVStream) Tracks() []Track { return []Track{s.track} }

func (s *openCVStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seen || s.latest.Empty() {
		return nil, ErrNoFrame
	}
	img, err := s.latest.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

func (s *openCVStream) readLoop(fps int) {
	defer close(s.done)

	frame := gocv.NewMat()
	defer frame.Close()

	misses := 0
	idle := time.Second / time.Duration(max(fps, 1))

	for {
		select {
		case <-s.stopped:
			return
		default:
		}

		if ok := s.vc.Read(&frame); !ok || frame.Empty() {
			misses++
			if misses > 100 {
				s.logger.Warn("camera stopped producing frames", "stream_id", s.id)
				return
			}
			time.Sleep(idle)
			continue
		}
		misses = 0

		s.mu.Lock()
		frame.CopyTo(&s.latest)
		s.seen = true
		s.mu.Unlock()

		s.readyOnce.Do(func() { close(s.ready) })
	}
}

func (s *openCVStream) stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		<-s.done

		s.mu.Lock()
		s.latest.Close()
		s.seen = false
		s.mu.Unlock()

		s.vc.Close()
		s.release()
		s.logger.Info("camera released", "stream_id", s.id)
	})
}

type openCVTrack struct {
	id     string
	stream *openCVStream
}

func (t *openCVTrack) ID() string      { return t.id }
func (t *openCVTrack) Kind() TrackKind { return TrackVideo }
func (t *openCVTrack) Stop()           { t.stream.stop() }

func (t *openCVTrack) Live() bool {
	select {
	case <-t.stream.stopped:
		return false
	case <-t.stream.done:
		return false
	default:
		return true
	}
}

// Verify OpenCVDevice implements Device at compile time.
var _ Device = (*OpenCVDevice)(nil)
