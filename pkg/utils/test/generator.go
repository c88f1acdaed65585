package testutils

import (
	"context"
	"fmt"

	"github.com/mythos-rpg/mythos/pkg/llm"
)

// MockGenerator is a test generator that replays scripted responses. Each
// call consumes the next response; the last response repeats once the script
// runs out.
type MockGenerator struct {
	// Responses are replayed in order, one per Generate/Stream call. For
	// Stream, each response is split into ChunkSize-rune chunks.
	Responses []string

	// ChunkSize controls streamed chunk length in runes. Defaults to 4.
	ChunkSize int

	// FailAll causes every call to return an error.
	FailAll bool

	// Requests accumulates every request received.
	Requests []llm.Request

	calls int
}

func NewMockGenerator(responses ...string) *MockGenerator {
	return &MockGenerator{Responses: responses}
}

func (m *MockGenerator) next() string {
	if len(m.Responses) == 0 {
		return ""
	}
	i := m.calls
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	m.calls++
	return m.Responses[i]
}

func (m *MockGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	m.Requests = append(m.Requests, req)

	if m.FailAll {
		return "", fmt.Errorf("%w: mock generation failure", llm.ErrGeneration)
	}

	return m.next(), nil
}

func (m *MockGenerator) Stream(_ context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	m.Requests = append(m.Requests, req)

	if m.FailAll {
		return nil, fmt.Errorf("%w: mock generation failure", llm.ErrGeneration)
	}

	text := m.next()
	size := m.ChunkSize
	if size <= 0 {
		size = 4
	}

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)

		runes := []rune(text)
		for start := 0; start < len(runes); start += size {
			end := start + size
			if end > len(runes) {
				end = len(runes)
			}
			out <- llm.Chunk{Text: string(runes[start:end])}
		}
	}()

	return out, nil
}

func (m *MockGenerator) Close() error {
	return nil
}

// Ensure MockGenerator implements llm.Generator
var _ llm.Generator = (*MockGenerator)(nil)
