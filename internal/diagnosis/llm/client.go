// Package llm defines the chat-completion interface the diagnosis graph
// depends on, plus an HTTP implementation targeting any
// OpenAI-chat-completions-compatible endpoint (DeepSeek by default, per
// the original's LLMConfig).
package llm

import "context"

// Options tunes a single chat call.
type Options struct {
	Temperature float64
	MaxRetries  int
}

// Client is the narrow surface the diagnosis graph needs from an LLM
// provider: a system+user prompt in, raw text out. Swappable for tests.
type Client interface {
	Chat(ctx context.Context, system, user string, opts Options) (string, error)
}
