package types

import "errors"

// Domain errors for type validation
var (
	ErrMissingDocument = errors.New("document is required")
	ErrInvalidRank     = errors.New("rank must be >= 1")
	ErrInvalidMode     = errors.New("unknown search mode")
)
