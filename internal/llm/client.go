// Package llm wraps the hosted completion capability behind a narrow
// interface so agents stay testable without network access.
package llm

import "context"

// CompletionRequest is one prompt/parameters pair for the completion
// capability.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Client generates a completion for a prompt. Implementations must respect
// context cancellation; calls are potentially long-latency I/O.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
