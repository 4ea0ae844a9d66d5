package supervisor

import (
	"time"

	"github.com/lambda-feedback/nodewarden/internal/process"
)

// NodeConfig describes the node executable and how to launch it.
type NodeConfig struct {
	process.LaunchSpec `conf:",squash"`

	// Elevator is the helper used to acquire elevated privileges. The
	// platform default is used if no program is set.
	Elevator process.Elevator `conf:"elevator"`
}

type Config struct {
	// Node describes the node process to supervise
	Node NodeConfig `conf:"node"`

	// PollInterval is the interval in which liveness of a started node
	// is checked
	PollInterval time.Duration `conf:"poll_interval"`

	// CrashConfirmations is the number of consecutive polls that must
	// miss the node before it is considered crashed
	CrashConfirmations int `conf:"crash_confirmations"`

	// GracePeriod is the time the node is given to exit after the
	// graceful termination request, before it is killed
	GracePeriod time.Duration `conf:"grace_period"`

	// MaxStopAttempts is the number of failed stops after which the
	// node is given up and reported as crashed
	MaxStopAttempts int `conf:"max_stop_attempts"`

	// ConfirmAttempts is the number of times a launched pid is looked up
	// before the launch is considered failed
	ConfirmAttempts int `conf:"confirm_attempts"`

	// ConfirmInterval is the pause between confirmation attempts
	ConfirmInterval time.Duration `conf:"confirm_interval"`

	// Adopt makes start pick up a node that is already running instead
	// of launching a second one
	Adopt bool `conf:"adopt"`

	// PidFile is the path the pid of a started node is written to. It is
	// read back as the remembered pid when adopting.
	PidFile string `conf:"pid_file"`

	// AutoStart starts the node as soon as the supervisor runs
	AutoStart bool `conf:"auto_start"`

	// StopOnExit stops the node when the application shuts down
	StopOnExit bool `conf:"stop_on_exit"`
}

// DefaultConfig returns the default supervisor timings.
func DefaultConfig() Config {
	return Config{
		PollInterval:       2 * time.Second,
		CrashConfirmations: 2,
		GracePeriod:        10 * time.Second,
		MaxStopAttempts:    3,
		ConfirmAttempts:    10,
		ConfirmInterval:    200 * time.Millisecond,
		StopOnExit:         true,
	}
}

// WithDefaults returns cfg with zero timings replaced by their defaults.
func WithDefaults(cfg Config) Config {
	return cfg.withDefaults()
}

// withDefaults fills zero timings with their defaults.
func (c Config) withDefaults() Config {
	d := DefaultConfig()

	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.CrashConfirmations <= 0 {
		c.CrashConfirmations = d.CrashConfirmations
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = d.GracePeriod
	}
	if c.MaxStopAttempts <= 0 {
		c.MaxStopAttempts = d.MaxStopAttempts
	}
	if c.ConfirmAttempts <= 0 {
		c.ConfirmAttempts = d.ConfirmAttempts
	}
	if c.ConfirmInterval <= 0 {
		c.ConfirmInterval = d.ConfirmInterval
	}

	return c
}
