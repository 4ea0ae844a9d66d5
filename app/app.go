package app

import (
	"time"

	"github.com/lambda-feedback/nodewarden/config"
	"github.com/lambda-feedback/nodewarden/internal/shell"
	"github.com/lambda-feedback/nodewarden/internal/supervisor"
	"github.com/lambda-feedback/nodewarden/util/conf"
	"github.com/lambda-feedback/nodewarden/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	config, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	sharedModule := fx.Module(
		"shared",
		// provide global config
		fx.Supply(config),
		// provide supervisor
		supervisor.Module(config.Supervisor),
		// report node failures
		fx.Provide(NewReporter),
		fx.Invoke(func(*Reporter) {}),
	)

	return shell.New(log, sharedModule).WithTimeouts(0, stopTimeout(config.Supervisor)), nil
}

// stopTimeout gives the node enough time to be stopped on exit, including
// retries of failed stop attempts.
func stopTimeout(cfg supervisor.Config) time.Duration {
	cfg = supervisor.WithDefaults(cfg)

	perAttempt := 2*cfg.GracePeriod + 5*time.Second

	return time.Duration(cfg.MaxStopAttempts) * perAttempt
}
