package agents

import "errors"

// ErrUnknownRole indicates a role name with no agent function.
var ErrUnknownRole = errors.New("unknown role")
