package config

import (
	"github.com/lambda-feedback/nodewarden/internal/server"
	"github.com/lambda-feedback/nodewarden/internal/supervisor"
	"github.com/lambda-feedback/nodewarden/util/conf"
)

// EnvPrefix is the prefix of environment variables read into the config.
// Nested keys are separated by a double underscore, e.g.
// NODEWARDEN_SUPERVISOR__POLL_INTERVAL.
const EnvPrefix = "NODEWARDEN_"

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// Supervisor is the node supervisor configuration
	Supervisor supervisor.Config `conf:"supervisor"`

	// Http is the configuration of the control API server
	Http server.HttpConfig `conf:"http"`

	// Auth is the configuration of the control API authentication
	Auth AuthConfig `conf:"auth"`
}

type AuthConfig struct {
	// Key is the api key required by mutating control requests. No key
	// is required if empty.
	Key string `conf:"key"`
}

var DefaultConfig = conf.Merge(
	conf.DefaultConfig{
		"log_level":  "info",
		"log_format": "production",
		"http.host":  "localhost",
		"http.port":  7311,
		"http.h2c":   false,

		"http.read_header_timeout": "10s",
	},
	conf.MergeDefaults("supervisor", conf.DefaultConfig{
		"poll_interval":       "2s",
		"crash_confirmations": 2,
		"grace_period":        "10s",
		"max_stop_attempts":   3,
		"confirm_attempts":    10,
		"confirm_interval":    "200ms",
		"adopt":               false,
		"auto_start":          false,
		"stop_on_exit":        true,
	}),
)
