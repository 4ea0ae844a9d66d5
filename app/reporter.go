package app

import (
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/lambda-feedback/nodewarden/internal/supervisor"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ReporterParams struct {
	fx.In

	Supervisor *supervisor.Supervisor
	Log        *zap.Logger
}

// Reporter forwards node failures to sentry.
type Reporter struct {
	hub *sentry.Hub
	log *zap.Logger
}

// NewReporter subscribes to the supervisor right away, so that no
// transition is missed once the supervisor runs. Reporting ends when the
// supervisor stops.
func NewReporter(params ReporterParams) *Reporter {
	r := &Reporter{
		hub: sentry.CurrentHub(),
		log: params.Log.Named("reporter"),
	}

	events, _ := params.Supervisor.Subscribe()
	go r.Run(events)

	return r
}

// Run reports events until the channel is closed.
func (r *Reporter) Run(events <-chan supervisor.Event) {
	for e := range events {
		r.Report(e)
	}
}

// Report captures crashes and failed stops.
func (r *Reporter) Report(e supervisor.Event) {
	var level sentry.Level

	switch {
	case e.State == supervisor.Crashed:
		level = sentry.LevelError
	case e.State == supervisor.Stopping && e.Err != nil:
		level = sentry.LevelWarning
	default:
		return
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		scope.SetTag("state", e.State.String())
		scope.SetTag("pid", strconv.Itoa(e.Pid))
		scope.SetTag("stop_failed", strconv.FormatBool(e.StopFailed))
		scope.SetExtra("detail", e.Detail)
		if !e.ExitDetectedAt.IsZero() {
			scope.SetExtra("exit_detected_at", e.ExitDetectedAt)
		}

		if e.Err != nil {
			r.hub.CaptureException(e.Err)
		} else {
			r.hub.CaptureMessage(e.Detail)
		}
	})

	r.log.Debug("reported node failure",
		zap.Stringer("state", e.State),
		zap.Int("pid", e.Pid),
	)
}
