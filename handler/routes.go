package handler

import "github.com/lambda-feedback/nodewarden/internal/server"

func NewHealthRoute() server.RouteResult {
	return server.AsRoute("GET /health", Health)
}

func NewStatusRoute(handler *ControlHandler) server.RouteResult {
	return server.AsRoute("GET /status", handler.Status)
}

func NewStartRoute(handler *ControlHandler) server.RouteResult {
	return server.AsRoute("POST /start", handler.Start)
}

func NewStopRoute(handler *ControlHandler) server.RouteResult {
	return server.AsRoute("POST /stop", handler.Stop)
}

func NewEventsRoute(handler *ControlHandler) server.RouteResult {
	return server.AsRoute("GET /events", handler.Events)
}
