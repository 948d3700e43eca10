package conversation

import "errors"

var (
	ErrUpstream     = errors.New("language model unavailable")
	ErrTimeout      = errors.New("language model timed out")
	ErrEmptyMessage = errors.New("message must not be empty")
)
