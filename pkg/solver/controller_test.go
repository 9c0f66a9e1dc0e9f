package solver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/snapsolve/pkg/camera"
	"github.com/teslashibe/snapsolve/pkg/inference"
)

// recorder is a Sink and Speaker that remembers everything it was given.
type recorder struct {
	mu       sync.Mutex
	states   []State
	attached []camera.Stream
	detached int
	spoken   []string
}

func (r *recorder) Publish(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) AttachSurface(s camera.Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached = append(r.attached, s)
}

func (r *recorder) DetachSurface() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detached++
}

func (r *recorder) Speak(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
}

func (r *recorder) Spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spoken...)
}

func (r *recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

// gate is an analyzer that blocks until released.
type gate struct {
	mock    *inference.Mock
	release chan struct{}
	entered chan struct{}
}

func newGate(result *inference.Result, err error) *gate {
	g := &gate{
		release: make(chan struct{}),
		entered: make(chan struct{}, 8),
	}
	g.mock = inference.NewMock()
	g.mock.AnalyzeFunc = func(ctx context.Context, req *inference.Request) (*inference.Result, error) {
		g.entered <- struct{}{}
		select {
		case <-g.release:
			return result, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g
}

func (g *gate) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("analyzer was not called")
	}
}

func newTestController(t *testing.T, device camera.Device, analyzer inference.Analyzer) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	c := NewController(device, analyzer, rec, rec, WithRequestTimeout(2*time.Second))
	t.Cleanup(func() { _ = c.Close() })
	return c, rec
}

func TestStartStop(t *testing.T) {
	device := camera.NewMockDevice()
	c, rec := newTestController(t, device, inference.NewMock())

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, PhaseRecording, c.Phase())
	require.NotNil(t, c.Session())
	assert.Len(t, rec.attached, 1)

	c.Stop()
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Nil(t, c.Session())
	assert.Equal(t, 1, rec.detached)

	streams := device.Streams()
	require.Len(t, streams, 1)
	assert.Equal(t, 1, streams[0].Track().Stops())
}

func TestStartWhileActiveIsNoop(t *testing.T) {
	device := camera.NewMockDevice()
	c, _ := newTestController(t, device, inference.NewMock())

	require.NoError(t, c.Start(context.Background()))
	first := c.Session()
	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, 1, device.Calls())
	assert.Same(t, first, c.Session())
}

func TestStopWhenIdle(t *testing.T) {
	c, rec := newTestController(t, camera.NewMockDevice(), inference.NewMock())

	c.Stop()
	assert.Equal(t, State{}, c.State())
	assert.Empty(t, rec.States())
	assert.Zero(t, rec.detached)
}

func TestToggle(t *testing.T) {
	c, _ := newTestController(t, camera.NewMockDevice(), inference.NewMock())

	require.NoError(t, c.Toggle(context.Background()))
	assert.True(t, c.State().Recording)
	require.NoError(t, c.Toggle(context.Background()))
	assert.False(t, c.State().Recording)
}

func TestCaptureSolution(t *testing.T) {
	mock := inference.WithResult(inference.NewResult("x = 4"))
	c, rec := newTestController(t, camera.NewMockDevice(), mock)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()

	st := c.State()
	assert.True(t, st.Recording)
	assert.False(t, st.Processing)
	assert.Equal(t, "x = 4", st.SolutionText)
	assert.Empty(t, st.ErrorText)
	assert.Equal(t, []string{"x = 4"}, rec.Spoken())

	call := mock.LastCall()
	require.NotNil(t, call)
	assert.Contains(t, call.Image, "data:image/jpeg;base64,")

	// Processing was published as true exactly once, then cleared.
	var began, ended int
	var prev bool
	for _, s := range rec.States() {
		if s.Processing && !prev {
			began++
		}
		if !s.Processing && prev {
			ended++
		}
		prev = s.Processing
	}
	assert.Equal(t, 1, began)
	assert.Equal(t, 1, ended)
}

func TestCaptureMuted(t *testing.T) {
	c, rec := newTestController(t, camera.NewMockDevice(), inference.WithResult(inference.NewResult("hello")))

	assert.True(t, c.ToggleMute())
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()

	assert.Equal(t, "hello", c.State().SolutionText)
	assert.Empty(t, rec.Spoken())

	assert.False(t, c.ToggleMute())
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()
	assert.Equal(t, []string{"hello"}, rec.Spoken())
}

func TestCaptureFailure(t *testing.T) {
	mock := inference.WithError(errors.New("backend down"))
	c, rec := newTestController(t, camera.NewMockDevice(), mock)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()

	st := c.State()
	assert.Equal(t, MsgProcessingFailed, st.ErrorText)
	assert.False(t, st.Processing)
	assert.True(t, st.Recording)
	assert.Empty(t, rec.Spoken())

	// A later success clears the error.
	mock.AnalyzeFunc = func(ctx context.Context, req *inference.Request) (*inference.Result, error) {
		return inference.NewResult("ok"), nil
	}
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()
	assert.Empty(t, c.State().ErrorText)
	assert.Equal(t, "ok", c.State().SolutionText)
}

func TestCaptureNoSolution(t *testing.T) {
	mock := inference.WithResult(&inference.Result{Success: true})
	c, rec := newTestController(t, camera.NewMockDevice(), mock)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()

	st := c.State()
	assert.False(t, st.Processing)
	assert.Empty(t, st.SolutionText)
	assert.Empty(t, st.ErrorText)
	assert.Empty(t, rec.Spoken())
}

func TestCaptureNotRecording(t *testing.T) {
	mock := inference.NewMock()
	c, _ := newTestController(t, camera.NewMockDevice(), mock)

	assert.ErrorIs(t, c.Capture(context.Background()), ErrNotRecording)
	assert.Zero(t, mock.CallCount("Analyze"))
	assert.Equal(t, State{}, c.State())
}

func TestCaptureNoFrame(t *testing.T) {
	stream := camera.NewMockStream(nil)
	device := &camera.MockDevice{
		AcquireFunc: func(ctx context.Context, _ camera.Constraints) (camera.Stream, error) {
			return stream, nil
		},
	}
	mock := inference.NewMock()
	c, _ := newTestController(t, device, mock)

	require.NoError(t, c.Start(context.Background()))
	before := c.State()

	assert.ErrorIs(t, c.Capture(context.Background()), ErrNoFrame)
	assert.Equal(t, before, c.State())
	assert.Zero(t, mock.CallCount("Analyze"))

	// A zero-sized frame is no better.
	stream.SetFrame(camera.GradientFrame(0, 0))
	assert.ErrorIs(t, c.Capture(context.Background()), ErrNoFrame)
	assert.Zero(t, mock.CallCount("Analyze"))
}

func TestCaptureBusy(t *testing.T) {
	g := newGate(inference.NewResult("done"), nil)
	c, _ := newTestController(t, camera.NewMockDevice(), g.mock)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	g.waitEntered(t)

	assert.ErrorIs(t, c.Capture(context.Background()), ErrBusy)
	assert.Equal(t, PhaseRecordingAndProcessing, c.Phase())

	close(g.release)
	c.Wait()

	assert.Equal(t, 1, g.mock.CallCount("Analyze"))
	assert.Equal(t, "done", c.State().SolutionText)
}

func TestCaptureConcurrent(t *testing.T) {
	g := newGate(inference.NewResult("done"), nil)
	c, _ := newTestController(t, camera.NewMockDevice(), g.mock)
	require.NoError(t, c.Start(context.Background()))

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Capture(context.Background()) == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(g.release)
	c.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, g.mock.CallCount("Analyze"))
}

func TestStopClearsSolutionKeepsError(t *testing.T) {
	mock := inference.WithResult(inference.NewResult("answer"))
	c, _ := newTestController(t, camera.NewMockDevice(), mock)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()
	require.Equal(t, "answer", c.State().SolutionText)

	c.Stop()
	assert.Empty(t, c.State().SolutionText)

	mock.AnalyzeFunc = func(ctx context.Context, req *inference.Request) (*inference.Result, error) {
		return nil, errors.New("boom")
	}
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()
	require.Equal(t, MsgProcessingFailed, c.State().ErrorText)

	c.Stop()
	st := c.State()
	assert.Equal(t, MsgProcessingFailed, st.ErrorText)
	assert.Equal(t, PhaseError, st.Phase())
}

func TestStopDiscardsLateResponse(t *testing.T) {
	g := newGate(inference.NewResult("late"), nil)
	// Ignore cancellation so the response really arrives late.
	g.mock.AnalyzeFunc = func(ctx context.Context, req *inference.Request) (*inference.Result, error) {
		g.entered <- struct{}{}
		<-g.release
		return inference.NewResult("late"), nil
	}
	c, rec := newTestController(t, camera.NewMockDevice(), g.mock)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	g.waitEntered(t)

	c.Stop()
	require.NoError(t, c.Start(context.Background()))

	close(g.release)
	c.Wait()

	st := c.State()
	assert.True(t, st.Recording)
	assert.False(t, st.Processing)
	assert.Empty(t, st.SolutionText)
	assert.Empty(t, rec.Spoken())
}

func TestStopCancelsRequest(t *testing.T) {
	g := newGate(inference.NewResult("never"), nil)
	c, _ := newTestController(t, camera.NewMockDevice(), g.mock)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	g.waitEntered(t)

	c.Stop()
	c.Wait()

	st := c.State()
	assert.False(t, st.Processing)
	assert.Empty(t, st.ErrorText)
	assert.Equal(t, PhaseIdle, st.Phase())
}

func TestRequestTimeout(t *testing.T) {
	g := newGate(inference.NewResult("slow"), nil)
	rec := &recorder{}
	c := NewController(camera.NewMockDevice(), g.mock, rec, rec, WithRequestTimeout(50*time.Millisecond))
	defer c.Close()

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()

	st := c.State()
	assert.False(t, st.Processing)
	assert.Equal(t, MsgProcessingFailed, st.ErrorText)
}

func TestStartFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"permission", camera.ErrPermissionDenied},
		{"no device", camera.ErrNoDevice},
		{"busy", camera.ErrDeviceBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestController(t, camera.FailingDevice(tt.err), inference.NewMock())

			err := c.Start(context.Background())
			assert.ErrorIs(t, err, tt.err)

			st := c.State()
			assert.False(t, st.Recording)
			assert.Equal(t, MsgCameraUnavailable, st.ErrorText)
			assert.Equal(t, PhaseError, st.Phase())
			assert.Nil(t, c.Session())
			assert.Empty(t, rec.attached)
		})
	}
}

func TestStartClearsError(t *testing.T) {
	fail := true
	device := &camera.MockDevice{}
	device.AcquireFunc = func(ctx context.Context, cons camera.Constraints) (camera.Stream, error) {
		if fail {
			return nil, camera.ErrPermissionDenied
		}
		return camera.NewMockStream(camera.GradientFrame(8, 8)), nil
	}
	c, _ := newTestController(t, device, inference.NewMock())

	require.Error(t, c.Start(context.Background()))
	fail = false
	require.NoError(t, c.Start(context.Background()))

	assert.Empty(t, c.State().ErrorText)
	assert.Equal(t, PhaseRecording, c.Phase())
}

func TestSolve(t *testing.T) {
	c, rec := newTestController(t, camera.NewMockDevice(), inference.WithResult(inference.NewResult("42")))

	_, err := c.Solve(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)

	require.NoError(t, c.Start(context.Background()))
	text, err := c.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", text)
	assert.Equal(t, []string{"42"}, rec.Spoken())
}

func TestCaptureFailureKeepsSolution(t *testing.T) {
	mock := inference.WithResult(inference.NewResult("first answer"))
	c, _ := newTestController(t, camera.NewMockDevice(), mock)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()
	require.Equal(t, "first answer", c.State().SolutionText)

	mock.AnalyzeFunc = func(ctx context.Context, req *inference.Request) (*inference.Result, error) {
		return nil, errors.New("backend down")
	}
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()

	st := c.State()
	assert.Equal(t, "first answer", st.SolutionText)
	assert.Equal(t, MsgProcessingFailed, st.ErrorText)
	assert.False(t, st.Processing)
}

func TestCaptureNoSolutionKeepsSolution(t *testing.T) {
	mock := inference.WithResult(inference.NewResult("first answer"))
	c, rec := newTestController(t, camera.NewMockDevice(), mock)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()

	mock.AnalyzeFunc = func(ctx context.Context, req *inference.Request) (*inference.Result, error) {
		return &inference.Result{}, nil
	}
	require.NoError(t, c.Capture(context.Background()))
	c.Wait()

	st := c.State()
	assert.Equal(t, "first answer", st.SolutionText)
	assert.Empty(t, st.ErrorText)
	assert.False(t, st.Processing)
	assert.Equal(t, []string{"first answer"}, rec.Spoken())
}

// blockingDevice waits in Acquire until its context ends.
func blockingDevice(entered chan<- struct{}) *camera.MockDevice {
	return &camera.MockDevice{
		AcquireFunc: func(ctx context.Context, _ camera.Constraints) (camera.Stream, error) {
			entered <- struct{}{}
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

func TestStopDuringAcquire(t *testing.T) {
	entered := make(chan struct{}, 1)
	c, rec := newTestController(t, blockingDevice(entered), inference.NewMock())

	started := make(chan error, 1)
	go func() { started <- c.Start(context.Background()) }()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("device was not asked for a stream")
	}

	// Other actions stay available while the camera is pending.
	assert.ErrorIs(t, c.Capture(context.Background()), ErrNotRecording)
	assert.NoError(t, c.Start(context.Background()))

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked behind camera acquisition")
	}

	select {
	case err := <-started:
		assert.ErrorIs(t, err, ErrStartCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	st := c.State()
	assert.False(t, st.Recording)
	assert.Empty(t, st.ErrorText)
	assert.Nil(t, c.Session())
	assert.Empty(t, rec.attached)
}

func TestAcquireTimeout(t *testing.T) {
	entered := make(chan struct{}, 1)
	rec := &recorder{}
	c := NewController(blockingDevice(entered), inference.NewMock(), rec, rec,
		WithAcquireTimeout(50*time.Millisecond))
	defer c.Close()

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	st := c.State()
	assert.False(t, st.Recording)
	assert.Equal(t, MsgCameraUnavailable, st.ErrorText)
	assert.Nil(t, c.Session())
}

func TestQualityReadPerCapture(t *testing.T) {
	manager := camera.NewManager(camera.DefaultConfig())
	mock := inference.WithResult(inference.NewResult("ok"))
	rec := &recorder{}
	c := NewController(camera.NewMockDevice(), mock, rec, rec,
		WithQualityFunc(func() int { return manager.GetConfig().Quality }))
	defer c.Close()

	require.NoError(t, c.Start(context.Background()))

	capture := func() int {
		require.NoError(t, c.Capture(context.Background()))
		c.Wait()
		call := mock.LastCall()
		require.NotNil(t, call)
		return len(call.Image)
	}

	require.NoError(t, manager.UpdateConfig(map[string]interface{}{"quality": float64(10)}))
	low := capture()
	require.NoError(t, manager.UpdateConfig(map[string]interface{}{"quality": float64(100)}))
	high := capture()

	assert.Greater(t, high, low)
}
