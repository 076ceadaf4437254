package llm

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("AI service not configured")
	ErrUnavailable   = errors.New("unable to connect to AI service")
	ErrRateLimited   = errors.New("AI service rate limit exceeded")
	ErrUpstream      = errors.New("AI service error")
)

// Request is one system+user completion.
type Request struct {
	Model       string
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	JSON        bool
}

// Usage token accounting reported by the model
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion model output
type Completion struct {
	Text  string
	Model string
	Usage *Usage
}

// Client completes prompts. Errors are one of the sentinel errors above,
// wrapped with the upstream cause.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	DefaultModel() string
}
