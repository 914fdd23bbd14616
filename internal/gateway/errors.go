package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"
)

// ErrInvalidRequest indicates a malformed completion request.
var ErrInvalidRequest = errors.New("invalid completion request")

// TransportError reports a failed exchange with a model endpoint. Its message
// names only the endpoint hostname, the status code and the error class.
// Response bodies and the underlying error text are never rendered.
type TransportError struct {
	Host     string
	Attempts int
	Status   int
	// Detail is the error class, e.g. "timed out" or "api error server_error".
	Detail string
	err    error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("model request to %s failed after %d attempt(s)", e.Host, e.Attempts)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is checks such as
// context.DeadlineExceeded. The cause is never rendered by Error.
func (e *TransportError) Unwrap() error {
	return e.err
}

// describe classifies err without rendering it. Provider error bodies and
// transport messages can echo the request URL or credentials, so only the
// error class and a well-formed provider error type are kept.
func describe(err error) string {
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
		opErr  *net.OpError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &apiErr):
		if errorType(apiErr.Type) {
			return "api error " + apiErr.Type
		}
		return "api error"
	case errors.As(err, &reqErr):
		return "request error"
	case errors.As(err, &opErr):
		return "connection failed"
	default:
		return "transport error"
	}
}

// errorType reports whether s looks like a provider error type such as
// invalid_request_error.
func errorType(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return true
}
