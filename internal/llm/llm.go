package llm

import (
	"context"
	"fmt"
)

type Message struct {
	Role    string
	Content string
}

// Completion is one model response plus the token usage needed for cost
// accounting.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

type Client interface {
	Complete(ctx context.Context, messages []Message) (Completion, error)
}

type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
}

func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

func NewClient(provider, apiKey, model string, opts ...Option) (Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	switch provider {
	case "anthropic":
		return newAnthropicClient(apiKey, model, o)
	case "openai":
		return newOpenAIClient(apiKey, model, o)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: supported providers are anthropic, openai", provider)
	}
}
