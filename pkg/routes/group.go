package routes

import "net/http"

// Group collects routes and child groups under a shared prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds every route of groups to mux as "METHOD prefix+pattern".
func Register(mux *http.ServeMux, groups ...Group) {
	walk("", groups, func(path string, r Route) {
		mux.HandleFunc(r.Method+" "+path, r.Handler)
	})
}

// Describe lists the endpoints of groups in registration order, with paths
// relative to the mux they are registered on.
func Describe(groups ...Group) []Endpoint {
	var out []Endpoint
	walk("", groups, func(path string, r Route) {
		out = append(out, Endpoint{Method: r.Method, Path: path, Summary: r.Summary})
	})
	return out
}

func walk(parent string, groups []Group, fn func(path string, r Route)) {
	for _, g := range groups {
		prefix := parent + g.Prefix
		for _, r := range g.Routes {
			fn(prefix+r.Pattern, r)
		}
		walk(prefix, g.Children, fn)
	}
}
