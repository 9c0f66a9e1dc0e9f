package solver

import (
	"github.com/teslashibe/snapsolve/pkg/camera"
)

// Sink is the display: it receives every state snapshot and shows the
// live camera stream while a session is active.
type Sink interface {
	// Publish delivers a new state snapshot. It must not block.
	Publish(State)

	// AttachSurface starts showing stream.
	AttachSurface(stream camera.Stream)

	// DetachSurface stops showing the stream.
	DetachSurface()
}

// Speaker reads text aloud without blocking. Failures are the speaker's
// own business.
type Speaker interface {
	Speak(text string)
}

// SinkFunc adapts a publish function to Sink with no video surface.
type SinkFunc func(State)

// Publish calls f(s).
func (f SinkFunc) Publish(s State) { f(s) }

// AttachSurface does nothing.
func (SinkFunc) AttachSurface(camera.Stream) {}

// DetachSurface does nothing.
func (SinkFunc) DetachSurface() {}

// MultiSink fans out to several sinks in order.
type MultiSink []Sink

// Publish implements Sink.
func (m MultiSink) Publish(s State) {
	for _, sink := range m {
		sink.Publish(s)
	}
}

// AttachSurface implements Sink.
func (m MultiSink) AttachSurface(stream camera.Stream) {
	for _, sink := range m {
		sink.AttachSurface(stream)
	}
}

// DetachSurface implements Sink.
func (m MultiSink) DetachSurface() {
	for _, sink := range m {
		sink.DetachSurface()
	}
}

var (
	_ Sink = SinkFunc(nil)
	_ Sink = MultiSink(nil)
)
