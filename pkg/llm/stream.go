package llm

import "strings"

// Collect drains a chunk stream into the full response text, returning the
// first error chunk encountered alongside whatever text arrived before it.
func Collect(chunks <-chan Chunk) (string, error) {
	var b strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			return b.String(), chunk.Err
		}
		b.WriteString(chunk.Text)
	}
	return b.String(), nil
}
