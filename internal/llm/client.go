package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a provider-neutral chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request describes one completion. A negative Temperature leaves the provider default.
type Request struct {
	Model       string
	System      []string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Response struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Client is the single seam between dialogue logic and any language model provider.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Retrier is implemented by clients that already make a second attempt on failure, so callers
// holding one should not add their own retry.
type Retrier interface {
	RetriesOnFailure() bool
}
