package runner

import "errors"

var (
	// ErrPersist wraps failures writing run results to the durable store. The
	// populated working memory is returned alongside it.
	ErrPersist = errors.New("persist run")
	// ErrMissingBinding indicates a node references a binding with no gateway.
	ErrMissingBinding = errors.New("missing model binding")
)
