// Package llm defines the provider-agnostic generation client used to drive
// narrative turns.
package llm

import "context"

// GenerationConfig holds per-request sampling options. Nil fields fall back
// to provider defaults.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	TopK            *int     `json:"top_k,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
	Stop            []string `json:"stop,omitempty"`
}

// Request is a single generation request: an optional system prompt followed
// by the conversation messages, oldest first.
type Request struct {
	System   string           `json:"system,omitempty"`
	Messages []Message        `json:"messages"`
	Config   GenerationConfig `json:"config"`
}

// Chunk is one streamed fragment of model output. A chunk carries either
// text or a terminal error, never both. The stream channel is closed after
// the final chunk.
type Chunk struct {
	Text string
	Err  error
}

// Generator produces model output for a request, either as a single response
// or as an ordered stream of chunks.
type Generator interface {
	// Generate returns the complete response text in one call.
	Generate(ctx context.Context, req Request) (string, error)

	// Stream returns a channel of ordered chunks. The channel is closed
	// when the response is complete or after an error chunk. Concatenating
	// the text of all chunks yields the same text Generate would return.
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)

	// Close releases any resources held by the generator.
	Close() error
}
