package lsr

import "errors"

// ErrCodec is returned when a structured update cannot be decoded. The
// caller's contract is to discard the update and keep the prior state.
var ErrCodec = errors.New("lsr codec error")
