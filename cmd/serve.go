package cmd

import (
	"github.com/lambda-feedback/nodewarden/app"
	"github.com/lambda-feedback/nodewarden/app/serve"
	"github.com/lambda-feedback/nodewarden/config"
	"github.com/lambda-feedback/nodewarden/util/conf"
	"github.com/urfave/cli/v2"
)

var (
	serveCmdDescription = `The serve command starts the supervisor together with a
http control API. The API reports the state of the node,
accepts start and stop requests, and streams state changes
as server-sent events.

The command blocks until it receives SIGINT or SIGTERM. The
node is stopped on exit unless stop_on_exit is disabled.`
	serveCmd = &cli.Command{
		Name:        "serve",
		Usage:       "Supervise the node and serve the control API.",
		Description: serveCmdDescription,
		Before:      withConfig,
		Action:      serveAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "host",
				Aliases:  []string{"H"},
				Usage:    "The host to listen on.",
				Category: "http",
				EnvVars:  []string{"HTTP_HOST"},
			},
			&cli.IntFlag{
				Name:     "port",
				Aliases:  []string{"P"},
				Usage:    "The port to listen on.",
				Category: "http",
				EnvVars:  []string{"HTTP_PORT"},
			},
			&cli.BoolFlag{
				Name:     "h2c",
				Usage:    "Enable HTTP/2 cleartext upgrade.",
				Category: "http",
				EnvVars:  []string{"HTTP_H2C"},
			},
			&cli.StringFlag{
				Name:     "api-key",
				Usage:    "Require this key in the api-key header of control requests.",
				Category: "http",
				EnvVars:  []string{"API_KEY"},
			},
			&cli.BoolFlag{
				Name:     "auto-start",
				Usage:    "Start the node right away.",
				Category: "supervisor",
			},
		},
	}
)

func serveAction(ctx *cli.Context) error {
	app, err := app.New(ctx)
	if err != nil {
		return err
	}

	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	return app.Run(ctx.Context, serve.Module(cfg.Http))
}

func init() {
	serveCmd.Flags = append(serveCmd.Flags, nodeFlags...)
	serveCmd.Flags = append(serveCmd.Flags, supervisorFlags...)

	rootApp.Commands = append(rootApp.Commands, serveCmd)
}
