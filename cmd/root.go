package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lambda-feedback/nodewarden/config"
	"github.com/lambda-feedback/nodewarden/internal/shell"
	"github.com/lambda-feedback/nodewarden/util/conf"
	"github.com/lambda-feedback/nodewarden/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	appName  = "nodewarden"
	appUsage = `A supervisor for a locally running network node. It starts
the node with elevated privileges if required, tracks its
liveness and stops it together with all of its descendants.`
	rootApp = &cli.App{
		Name:            appName,
		Usage:           appUsage,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			// general flags
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level. Options: debug, info, warn, error, panic, fatal.",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "set the log format. Options: production, development.",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.PathFlag{
				Name:    "config",
				Usage:   "load configuration from a .json, .yaml or .env file.",
				Aliases: []string{"f"},
				EnvVars: []string{"NODEWARDEN_CONFIG"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// create the logger
			log, err := createLogger(ctx)
			if err != nil {
				return err
			}

			// inject logger into cli context
			ctx.Context = logging.ContextWithLogger(ctx.Context, log)

			return nil
		},
		After: func(ctx *cli.Context) error {
			log, err := logging.LoggerFromContext(ctx.Context)
			if err != nil {
				return err
			}

			_ = log.Sync()

			return nil
		},
	}
)

// nodeFlags configure the supervised node. They are shared by all commands.
var nodeFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "command",
		Usage:    "the node executable.",
		Aliases:  []string{"c"},
		Category: "node",
		EnvVars:  []string{"NODE_COMMAND"},
	},
	&cli.StringSliceFlag{
		Name:     "arg",
		Usage:    "additional arguments to pass to the node.",
		Aliases:  []string{"a"},
		Category: "node",
		EnvVars:  []string{"NODE_ARGS"},
	},
	&cli.StringFlag{
		Name:     "cwd",
		Usage:    "the working directory of the node.",
		Category: "node",
		EnvVars:  []string{"NODE_CWD"},
	},
	&cli.BoolFlag{
		Name:     "elevate",
		Usage:    "start the node with administrative privileges.",
		Category: "node",
		EnvVars:  []string{"NODE_ELEVATE"},
	},
}

// supervisorFlags tune the supervisor of the node.
var supervisorFlags = []cli.Flag{
	&cli.DurationFlag{
		Name:     "poll-interval",
		Usage:    "the interval in which the liveness of the node is checked.",
		Category: "supervisor",
	},
	&cli.DurationFlag{
		Name:     "grace-period",
		Usage:    "the time the node is given to exit before it is killed.",
		Category: "supervisor",
	},
	&cli.BoolFlag{
		Name:     "adopt",
		Usage:    "adopt a node that is already running instead of starting a new one.",
		Category: "supervisor",
	},
	&cli.PathFlag{
		Name:     "pid-file",
		Usage:    "remember the pid of the node in this file.",
		Category: "supervisor",
	},
}

// cliMap maps flag names to config keys. Flags mapped to "" are not
// part of the config.
var cliMap = map[string]string{
	"config":        "",
	"output":        "",
	"log-level":     "log_level",
	"log-format":    "log_format",
	"command":       "supervisor.node.cmd",
	"arg":           "supervisor.node.args",
	"cwd":           "supervisor.node.cwd",
	"elevate":       "supervisor.node.elevate",
	"poll-interval": "supervisor.poll_interval",
	"grace-period":  "supervisor.grace_period",
	"adopt":         "supervisor.adopt",
	"pid-file":      "supervisor.pid_file",
	"auto-start":    "supervisor.auto_start",
	"host":          "http.host",
	"port":          "http.port",
	"h2c":           "http.h2c",
	"api-key":       "auth.key",
}

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:               "version",
		Usage:              "print the version",
		DisableDefaultText: true,
	}
}

// withConfig parses the config from defaults, the config file, the
// environment and the command line, and injects it into the cli context.
func withConfig(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	schema, err := config.NewSchema()
	if err != nil {
		return fmt.Errorf("failed to load config schema: %w", err)
	}

	cfg, err := conf.Parse[config.Config](conf.ParseOptions{
		Cli:       ctx,
		CliMap:    cliMap,
		Defaults:  config.DefaultConfig,
		EnvPrefix: config.EnvPrefix,
		FileName:  ctx.Path("config"),
		Schema:    schema,
		Log:       log,
	})
	if err != nil {
		return err
	}

	if cfg.Supervisor.Node.Cmd == "" {
		return errors.New("no node command configured, use --command or the config file")
	}

	// the config file may change the log settings, rebuild the logger
	log, err = logging.NewLogger(logging.LoggerConfig{
		App:    appName,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return err
	}

	// inject the logger and the config into the cli context
	ctx.Context = logging.ContextWithLogger(ctx.Context, log)
	ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

	return nil
}

type ExecuteParams struct {
	Version  string
	Compiled time.Time
	// OnExit is called before the process exits.
	OnExit func()
}

func Execute(params ExecuteParams) {
	rootApp.Version = params.Version
	rootApp.Compiled = params.Compiled

	onExit := params.OnExit
	if onExit == nil {
		onExit = func() {}
	}

	run(context.Background(), os.Args, onExit)
}

func run(ctx context.Context, args []string, onExit func()) {
	err := rootApp.RunContext(ctx, args)

	onExit()

	// if app exited without error, return
	if err == nil {
		return
	}

	// a shell exit carries its own exit code, and its cause was logged
	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "exit error: %s\n", err.Error())

	// otherwise, exit with exit code 1
	os.Exit(shell.ExitCode(err))
}

func createLogger(ctx *cli.Context) (*zap.Logger, error) {
	return logging.NewLogger(logging.LoggerConfig{
		App:    appName,
		Level:  ctx.String("log-level"),
		Format: ctx.String("log-format"),
	})
}
