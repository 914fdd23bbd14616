package verifier

import "errors"

// Verifier construction errors.
var (
	ErrNoVerifiers = errors.New("composite verifier requires at least one verifier")
	ErrInvalidRule = errors.New("invalid policy rule")
)
