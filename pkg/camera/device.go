package camera

import (
	"context"
	"errors"
	"image"
)

// Sentinel errors returned by Device.Acquire and Stream.Frame.
var (
	// ErrPermissionDenied is returned when the user or OS refused access.
	ErrPermissionDenied = errors.New("camera: permission denied")

	// ErrNoDevice is returned when no capture device is present.
	ErrNoDevice = errors.New("camera: no device available")

	// ErrDeviceBusy is returned when the device is held by another stream.
	ErrDeviceBusy = errors.New("camera: device busy")

	// ErrUnsupported is returned for constraints the device cannot satisfy.
	ErrUnsupported = errors.New("camera: unsupported constraints")

	// ErrNoFrame is returned by Frame before the first frame arrives or
	// after the stream was released.
	ErrNoFrame = errors.New("camera: no frame available")
)

// Constraints describe the media requested from a Device.
type Constraints struct {
	Video bool
	Audio bool
}

// VideoOnly is the request shape used for still capture.
var VideoOnly = Constraints{Video: true, Audio: false}

// TrackKind identifies the media carried by a Track.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// Device acquires live media streams.
type Device interface {
	// Acquire opens a stream satisfying c. It blocks until the device is
	// ready or ctx is done.
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live media stream handed out by a Device.
type Stream interface {
	// ID uniquely identifies the stream.
	ID() string

	// Tracks returns every track of the stream.
	Tracks() []Track

	// Frame returns the most recent video frame.
	Frame() (image.Image, error)
}

// Track is one media track of a Stream.
type Track interface {
	ID() string
	Kind() TrackKind

	// Stop ends the track and releases what it holds. Safe to call twice.
	Stop()

	// Live reports whether the track has not been stopped or ended.
	Live() bool
}

// Release stops every track of s.
func Release(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// IsAcquireError reports whether err is one of the acquisition failures a
// user can fix by granting access or freeing the device.
func IsAcquireError(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrNoDevice) ||
		errors.Is(err, ErrDeviceBusy)
}
