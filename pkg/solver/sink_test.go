package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/snapsolve/pkg/camera"
)

type surfaceSink struct {
	published []State
	attached  []camera.Stream
	detached  int
}

func (s *surfaceSink) Publish(st State) { s.published = append(s.published, st) }
func (s *surfaceSink) AttachSurface(cs camera.Stream) { s.attached = append(s.attached, cs) }
func (s *surfaceSink) DetachSurface() { s.detached++ }

func TestMultiSink(t *testing.T) {
	a, b := &surfaceSink{}, &surfaceSink{}
	var logged []State
	sink := MultiSink{a, b, SinkFunc(func(st State) { logged = append(logged, st) })}

	stream := camera.NewMockStream(nil)
	sink.AttachSurface(stream)
	sink.Publish(State{Recording: true})
	sink.DetachSurface()

	for _, s := range []*surfaceSink{a, b} {
		assert.Equal(t, []State{{Recording: true}}, s.published)
		assert.Equal(t, []camera.Stream{stream}, s.attached)
		assert.Equal(t, 1, s.detached)
	}
	assert.Equal(t, []State{{Recording: true}}, logged)
}
