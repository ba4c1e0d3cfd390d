package ai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider turns an ordered transcript into one completion. Implementations
// wrap a remote model behind a bounded-timeout HTTP call.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
