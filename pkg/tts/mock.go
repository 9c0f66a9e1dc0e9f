package tts

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"time"
)

// Mock is a Provider that produces silent WAV audio and records what it
// was asked to say.
type Mock struct {
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)
	HealthFunc     func(ctx context.Context) error
	CloseFunc      func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall is one recorded invocation. Text is set for Synthesize only.
type MockCall struct {
	Method string
	Text   string
	Time   time.Time
}

// mockCharDuration is how long each character "takes" to say.
const mockCharDuration = 20 * time.Millisecond

// NewMock returns a mock whose Synthesize yields silence sized to the text.
func NewMock() *Mock {
	return &Mock{SynthesizeFunc: silentWAV}
}

// silentWAV renders 20ms of 24kHz mono PCM16 silence per character.
func silentWAV(ctx context.Context, text string) (*AudioResult, error) {
	const rate = 24000
	d := time.Duration(len(text)) * mockCharDuration
	samples := int(d.Seconds() * rate)

	var buf bytes.Buffer
	dataLen := uint32(samples * 2)
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, struct {
		Size           uint32
		Format, Chans  uint16
		Rate, ByteRate uint32
		Align, Bits    uint16
	}{16, 1, 1, rate, rate * 2, 2, 16})
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(make([]byte, dataLen))

	return &AudioResult{
		Audio:     buf.Bytes(),
		Format:    AudioFormat{Encoding: EncodingWAV, SampleRate: rate, Channels: 1, BitDepth: 16},
		Duration:  d,
		CharCount: len(text),
		LatencyMs: 1,
	}, nil
}

func (m *Mock) record(method, text string) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: method, Text: text, Time: time.Now()})
	m.mu.Unlock()
}

// Synthesize implements Provider.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.record("Synthesize", text)
	if m.SynthesizeFunc == nil {
		return nil, WrapError("mock", ErrProviderUnavailable)
	}
	return m.SynthesizeFunc(ctx, text)
}

// Health implements Provider.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", "")
	if m.HealthFunc == nil {
		return nil
	}
	return m.HealthFunc(ctx)
}

// Close implements Provider.
func (m *Mock) Close() error {
	m.record("Close", "")
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc()
}

// Calls returns a copy of every recorded call.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// LastCall returns the most recent call, or nil.
func (m *Mock) LastCall() *MockCall {
	calls := m.Calls()
	if len(calls) == 0 {
		return nil
	}
	return &calls[len(calls)-1]
}

// Texts returns what Synthesize was asked to say, in order.
func (m *Mock) Texts() []string {
	var texts []string
	for _, c := range m.Calls() {
		if c.Method == "Synthesize" {
			texts = append(texts, c.Text)
		}
	}
	return texts
}

// Reset forgets recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

// WithError returns a mock failing every call with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(context.Context, string) (*AudioResult, error) { return nil, err },
		HealthFunc:     func(context.Context) error { return err },
	}
}

// WithLatency delays m's synthesis by d, honoring cancellation.
func WithLatency(m *Mock, d time.Duration) *Mock {
	next := m.SynthesizeFunc
	m.SynthesizeFunc = func(ctx context.Context, text string) (*AudioResult, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if next == nil {
			return nil, WrapError("mock", ErrProviderUnavailable)
		}
		return next(ctx, text)
	}
	return m
}

var _ Provider = (*Mock)(nil)
