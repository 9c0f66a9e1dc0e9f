package web

import (
	"context"
	"time"

	"github.com/teslashibe/snapsolve/pkg/camera"
)

// AttachSurface starts pushing preview frames of stream to /ws/preview
// viewers. A previous stream is detached first.
func (s *Server) AttachSurface(stream camera.Stream) {
	ctx, cancel := context.WithCancel(context.Background())

	s.previewMu.Lock()
	if s.stopPreview != nil {
		s.stopPreview()
	}
	s.stopPreview = cancel
	s.previewMu.Unlock()

	go s.previewLoop(ctx, stream)
}

// DetachSurface stops the preview.
func (s *Server) DetachSurface() {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	if s.stopPreview != nil {
		s.stopPreview()
		s.stopPreview = nil
	}
}

func (s *Server) previewSettings() (fps, quality int) {
	cfg := camera.DefaultConfig()
	if s.camera != nil {
		cfg = s.camera.GetConfig()
	}
	return max(cfg.PreviewFPS, 1), cfg.PreviewQuality
}

func (s *Server) previewLoop(ctx context.Context, stream camera.Stream) {
	fps, quality := s.previewSettings()
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	s.logger.Debug("preview started", "stream_id", stream.ID(), "fps", fps)
	defer s.logger.Debug("preview stopped", "stream_id", stream.ID())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.previewHub.ClientCount() == 0 {
			continue
		}
		frame, err := stream.Frame()
		if err != nil {
			continue
		}
		data, err := camera.EncodeJPEG(frame, quality)
		if err != nil {
			continue
		}
		s.previewHub.BroadcastBinary(data)
	}
}
