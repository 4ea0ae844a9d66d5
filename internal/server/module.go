package server

import (
	"github.com/lambda-feedback/nodewarden/util/logging"
	"go.uber.org/fx"
)

func Module(config HttpConfig) fx.Option {
	return fx.Module("server",
		logging.DecorateLogger("server"),
		fx.Supply(config),
		fx.Provide(NewLifecycleServer),
		// the server has no dependents, force its construction
		fx.Invoke(func(*HttpServer) {}),
	)
}
