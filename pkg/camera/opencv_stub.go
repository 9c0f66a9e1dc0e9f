//go:build !opencv

package camera

import (
	"fmt"
	"log/slog"
)

// newOpenCVDevice returns an error when built without OpenCV.
func newOpenCVDevice(manager *Manager, logger *slog.Logger) (Device, error) {
	return nil, fmt.Errorf("opencv source unavailable: rebuild with -tags opencv")
}
