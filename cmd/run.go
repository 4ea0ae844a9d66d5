package cmd

import (
	"github.com/lambda-feedback/nodewarden/app"
	"github.com/lambda-feedback/nodewarden/app/foreground"
	"github.com/lambda-feedback/nodewarden/config"
	"github.com/lambda-feedback/nodewarden/util/conf"
	"github.com/urfave/cli/v2"
)

var (
	runCmdDescription = `The run command starts the node in the foreground and waits
for it to end. On SIGINT or SIGTERM the node and all of its
descendants are stopped.

The command exits with code 0 if the node was stopped, and
with code 1 if it failed to start or exited unexpectedly.`
	runCmd = &cli.Command{
		Name:        "run",
		Usage:       "Start the node in the foreground.",
		Description: runCmdDescription,
		Before: func(ctx *cli.Context) error {
			if err := withConfig(ctx); err != nil {
				return err
			}

			cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
			if err != nil {
				return err
			}

			// the node is the reason this command runs
			cfg.Supervisor.AutoStart = true
			cfg.Supervisor.StopOnExit = true

			ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

			return nil
		},
		Action: runAction,
	}
)

func runAction(ctx *cli.Context) error {
	app, err := app.New(ctx)
	if err != nil {
		return err
	}

	return app.Run(ctx.Context, foreground.Module())
}

func init() {
	runCmd.Flags = append(runCmd.Flags, nodeFlags...)
	runCmd.Flags = append(runCmd.Flags, supervisorFlags...)

	rootApp.Commands = append(rootApp.Commands, runCmd)
}
