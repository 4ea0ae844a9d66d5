package server

import (
	"net/http"

	"go.uber.org/fx"
)

// Route is a handler registered on the control server under a
// method-qualified pattern, e.g. "GET /status".
type Route struct {
	Pattern string
	Handler http.Handler
}

type RouteResult struct {
	fx.Out

	Route *Route `group:"routes"`
}

func AsRoute(pattern string, handler http.HandlerFunc) RouteResult {
	return RouteResult{
		Route: &Route{
			Pattern: pattern,
			Handler: handler,
		},
	}
}
