package inference

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Mock is a scriptable Analyzer and VisionProvider. Nil hooks fall back to
// canned answers; every call is recorded.
type Mock struct {
	AnalyzeFunc func(ctx context.Context, req *Request) (*Result, error)
	VisionFunc  func(ctx context.Context, req *VisionRequest) (*VisionResponse, error)
	HealthFunc  func(ctx context.Context) error
	CloseFunc   func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall is one recorded invocation.
type MockCall struct {
	Method string
	Time   time.Time
	Image  string // data URL for Analyze
}

// NewMock returns a mock that solves every image with "Mock solution".
func NewMock() *Mock {
	return &Mock{}
}

// WithResult returns a mock whose Analyze always answers result.
func WithResult(result *Result) *Mock {
	return &Mock{
		AnalyzeFunc: func(context.Context, *Request) (*Result, error) { return result, nil },
	}
}

// WithError returns a mock failing every call with err.
func WithError(err error) *Mock {
	return &Mock{
		AnalyzeFunc: func(context.Context, *Request) (*Result, error) { return nil, err },
		VisionFunc:  func(context.Context, *VisionRequest) (*VisionResponse, error) { return nil, err },
		HealthFunc:  func(context.Context) error { return err },
	}
}

func (m *Mock) Analyze(ctx context.Context, req *Request) (*Result, error) {
	call := MockCall{Method: "Analyze"}
	if req != nil {
		call.Image = req.Image
	}
	m.record(call)

	if m.AnalyzeFunc == nil {
		return NewResult("Mock solution"), nil
	}
	return m.AnalyzeFunc(ctx, req)
}

func (m *Mock) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	m.record(MockCall{Method: "Vision"})

	if m.VisionFunc == nil {
		return &VisionResponse{
			Content: "I see a mock image",
			Usage:   Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		}, nil
	}
	return m.VisionFunc(ctx, req)
}

func (m *Mock) Health(ctx context.Context) error {
	m.record(MockCall{Method: "Health"})
	if m.HealthFunc == nil {
		return nil
	}
	return m.HealthFunc(ctx)
}

func (m *Mock) Close() error {
	m.record(MockCall{Method: "Close"})
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc()
}

func (m *Mock) record(call MockCall) {
	call.Time = time.Now()
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallCount counts recorded calls to method.
func (m *Mock) CallCount(method string) (n int) {
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastCall returns the latest call, or nil.
func (m *Mock) LastCall() *MockCall {
	calls := m.Calls()
	if len(calls) == 0 {
		return nil
	}
	return &calls[len(calls)-1]
}

// Reset forgets recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

var (
	_ Analyzer       = (*Mock)(nil)
	_ VisionProvider = (*Mock)(nil)
)
