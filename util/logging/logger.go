package logging

import (
	"go.uber.org/zap"
)

type LoggerConfig struct {
	// App is attached to every log entry.
	App string
	// Level is a zap level name. Unknown levels fall back to info.
	Level string
	// Format is either "production" or "development". Empty selects
	// production.
	Format string
}

func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	var config zap.Config
	if cfg.Format == "development" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	if cfg.App != "" {
		config.InitialFields = map[string]any{
			"app": cfg.App,
		}
	}

	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if atom, err := zap.ParseAtomicLevel(cfg.Level); err == nil {
		config.Level = atom
	}

	return config.Build()
}
