// Package inference turns captured stills into solutions.
//
// The capture pipeline depends on Analyzer: it posts one data URL to the
// backend and receives an optional solution. The backend in turn depends
// on VisionProvider to put the image and a prompt in front of a vision
// model.
//
//	client, _ := inference.NewClient(inference.WithBaseURL("http://localhost:5000"))
//	defer client.Close()
//
//	result, err := client.Analyze(ctx, &inference.Request{Image: dataURL})
//	if err == nil && result.HasSolution() {
//	    fmt.Println(*result.Solution)
//	}
package inference

import (
	"context"
)

// Analyzer submits captured stills to the inference backend.
type Analyzer interface {
	// Analyze returns the backend's result for one image. A result with
	// no solution is not an error.
	Analyze(ctx context.Context, req *Request) (*Result, error)
	Health(ctx context.Context) error
	Close() error
}

// Request is the body of POST /api/process-image.
type Request struct {
	Image string `json:"image"` // data:image/jpeg;base64,...
}

// Result is the body of a 2xx /api/process-image response.
type Result struct {
	Solution  *string `json:"solution,omitempty"` // nil when absent
	Success   bool    `json:"success"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// HasSolution reports whether a solution is present, even an empty one.
func (r *Result) HasSolution() bool {
	return r != nil && r.Solution != nil
}

// NewResult returns a successful result carrying solution.
func NewResult(solution string) *Result {
	return &Result{Solution: &solution, Success: true}
}

// VisionProvider puts one image and a prompt in front of a vision model.
type VisionProvider interface {
	Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error)
	Health(ctx context.Context) error
	Close() error
}

// VisionRequest is one image plus the instruction for it. Zero Model,
// MaxTokens and Temperature select the provider defaults.
type VisionRequest struct {
	Image    []byte
	MimeType string // image/jpeg, image/png, ...
	Prompt   string

	Model       string
	MaxTokens   int
	Temperature float64
}

// VisionResponse is the model's answer.
type VisionResponse struct {
	Content      string
	FinishReason string
	Model        string
	Usage        Usage
	LatencyMs    int64
}

// Usage counts tokens for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
