package serve

import (
	"go.uber.org/fx"

	"github.com/lambda-feedback/nodewarden/handler"
	"github.com/lambda-feedback/nodewarden/internal/server"
	"github.com/lambda-feedback/nodewarden/util/logging"
)

func Module(config server.HttpConfig) fx.Option {
	return fx.Module(
		"serve",
		// rename logger for module
		logging.DecorateLogger("serve"),
		// provide control handlers
		handler.Module(),
		// provide server
		server.Module(config),
	)
}
