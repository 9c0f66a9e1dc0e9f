package camera

import (
	"fmt"
	"log/slog"
)

// NewDevice creates the Device selected by the manager's current Source.
// A RemoteDevice must additionally be mounted with RegisterRoutes.
func NewDevice(manager *Manager, logger *slog.Logger) (Device, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := manager.GetConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %v", errs)
	}

	logger.Info("creating camera device",
		"source", cfg.Source,
		"device", cfg.Device,
		"width", cfg.Width,
		"height", cfg.Height,
	)

	switch cfg.Source {
	case SourceOpenCV:
		return newOpenCVDevice(manager, logger)
	case SourceRemote:
		return NewRemoteDevice(logger), nil
	case SourceMock:
		return NewMockDevice(), nil
	default:
		return nil, fmt.Errorf("unsupported camera source: %s", cfg.Source)
	}
}
