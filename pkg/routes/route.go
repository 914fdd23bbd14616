// Package routes declares HTTP routes as nested groups and registers them on
// a ServeMux.
package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler. Summary is listed by
// Describe.
type Route struct {
	Method  string
	Pattern string
	Summary string
	Handler http.HandlerFunc
}

// Endpoint is the externally listed form of a registered route.
type Endpoint struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
}
