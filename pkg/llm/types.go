package llm

import "context"

// Message is one turn of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SamplingOptions mirror the knobs the completion endpoint accepts.
type SamplingOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
	Seed        int64   `json:"seed,omitempty"`
}

// Client is a text-completion service. The dispatch core treats it as a
// capability: messages in, one reply out.
type Client interface {
	Chat(ctx context.Context, messages []Message, options *SamplingOptions) (string, error)
}

// Embedder produces vector embeddings for semantic recall of past
// instructions.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
