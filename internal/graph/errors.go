package graph

import "errors"

// Graph errors.
var (
	ErrInvalidGraph        = errors.New("invalid agent graph")
	ErrCyclicGraph         = errors.New("agent graph contains a cycle")
	ErrUnresolvedFinalNode = errors.New("final node cannot be resolved")
	ErrUnknownNode         = errors.New("unknown node")
)
