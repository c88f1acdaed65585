package llm

import "errors"

// ErrGeneration is the sentinel error for generation failures. Provider
// errors wrap it so callers can test with errors.Is.
var ErrGeneration = errors.New("generation error")
