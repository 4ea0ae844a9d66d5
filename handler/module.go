package handler

import (
	"github.com/lambda-feedback/nodewarden/internal/supervisor"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("handler",
		fx.Provide(func(s *supervisor.Supervisor) Supervisor { return s }),
		fx.Provide(NewControlHandler),
		fx.Provide(NewHealthRoute),
		fx.Provide(NewStatusRoute),
		fx.Provide(NewStartRoute),
		fx.Provide(NewStopRoute),
		fx.Provide(NewEventsRoute),
	)
}
