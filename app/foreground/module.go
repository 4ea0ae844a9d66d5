package foreground

import (
	"github.com/lambda-feedback/nodewarden/internal/supervisor"
	"github.com/lambda-feedback/nodewarden/util/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module ends the app once the node is no longer running.
func Module() fx.Option {
	return fx.Module(
		"foreground",
		// rename logger for module
		logging.DecorateLogger("foreground"),
		// watch the node
		fx.Provide(NewWatcher),
		fx.Invoke(func(*Watcher) {}),
	)
}

type WatcherParams struct {
	fx.In

	Supervisor *supervisor.Supervisor
	Shutdowner fx.Shutdowner
	Log        *zap.Logger
}

// Watcher shuts the app down when the node ends. A node that crashed or
// failed to start exits the app with code 1.
type Watcher struct {
	shutdowner fx.Shutdowner
	log        *zap.Logger
}

func NewWatcher(params WatcherParams) *Watcher {
	w := &Watcher{
		shutdowner: params.Shutdowner,
		log:        params.Log,
	}

	events, _ := params.Supervisor.Subscribe()
	go w.Run(events)

	return w
}

func (w *Watcher) Run(events <-chan supervisor.Event) {
	for e := range events {
		code, done := ExitCode(e)
		if !done {
			continue
		}

		w.log.Info("node ended, shutting down", zap.Stringer("state", e.State), zap.Int("exit_code", code))

		if err := w.shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
			w.log.Debug("failed to request shutdown", zap.Error(err))
		}
		return
	}
}

// ExitCode returns the exit code of the app for e, and whether e ends the
// node.
func ExitCode(e supervisor.Event) (int, bool) {
	switch e.State {
	case supervisor.Crashed:
		return 1, true
	case supervisor.Off:
		if e.Err != nil {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
