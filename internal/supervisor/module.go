package supervisor

import (
	"context"

	"github.com/lambda-feedback/nodewarden/internal/process"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the process layer and a supervisor bound to the app
// lifecycle.
func Module(config Config) fx.Option {
	return fx.Module(
		"supervisor",

		// provide supervisor config
		fx.Supply(config),

		// provide process layer
		fx.Provide(
			NewElevator,
			NewProcessTable,
			fx.Annotate(NewLocator, fx.As(new(Locator))),
			fx.Annotate(NewLauncher, fx.As(new(Launcher))),
			fx.Annotate(NewTerminator, fx.As(new(Terminator))),
		),

		// provide supervisor
		fx.Provide(NewLifecycleSupervisor),
	)
}

// NewElevator returns the configured elevation helper, or the platform
// default if none is configured.
func NewElevator(config Config) process.Elevator {
	if config.Node.Elevator.Configured() {
		return config.Node.Elevator
	}

	return process.DefaultElevator()
}

func NewProcessTable(log *zap.Logger) process.Table {
	return process.NewSystemTable(log)
}

func NewLocator(table process.Table, log *zap.Logger) *process.Locator {
	return process.NewLocator(table, log)
}

type ProcessParams struct {
	fx.In

	Config   Config
	Table    process.Table
	Elevator process.Elevator
	Log      *zap.Logger
}

func NewLauncher(params ProcessParams) *process.Launcher {
	return process.NewLauncher(process.LauncherParams{
		Table:        params.Table,
		Elevator:     params.Elevator,
		PollInterval: params.Config.withDefaults().ConfirmInterval,
		Log:          params.Log,
	})
}

func NewTerminator(params ProcessParams) *process.Terminator {
	return process.NewTerminator(process.TerminatorParams{
		Table:    params.Table,
		Elevator: params.Elevator,
		Log:      params.Log,
	})
}

// LifecycleParams defines the dependencies of a lifecycle bound supervisor.
type LifecycleParams struct {
	fx.In

	// Context is the app context the supervisor loop runs in
	Context context.Context

	Config     Config
	Locator    Locator
	Launcher   Launcher
	Terminator Terminator
	Log        *zap.Logger
}

// NewLifecycleSupervisor creates a supervisor whose loop runs as long as
// the app does. The node is started on app start if AutoStart is set, and
// stopped on app stop if StopOnExit is set.
func NewLifecycleSupervisor(params LifecycleParams, lc fx.Lifecycle) (*Supervisor, error) {
	s, err := New(Params{
		Config:     params.Config,
		Locator:    params.Locator,
		Launcher:   params.Launcher,
		Terminator: params.Terminator,
		Log:        params.Log,
	})
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(params.Context)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := s.Run(runCtx); err != nil {
					s.log.Error("supervisor loop failed", zap.Error(err))
				}
			}()

			if !s.cfg.AutoStart {
				return nil
			}

			return s.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			defer cancel()

			if s.cfg.StopOnExit {
				if err := s.Shutdown(ctx); err != nil {
					s.log.Error("failed to stop node on exit", zap.Error(err))
				}
			}

			cancel()

			select {
			case <-s.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})

	return s, nil
}
