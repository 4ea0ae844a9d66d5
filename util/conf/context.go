package conf

import (
	"context"
	"errors"
)

// configKey is keyed by the config type, so a context can carry one
// config of each type.
type configKey[C any] struct{}

var ErrNoConfigInContext = errors.New("config not found in context")

func GetConfigFromContext[C any](ctx context.Context) (C, error) {
	if config, ok := ctx.Value(configKey[C]{}).(C); ok {
		return config, nil
	}

	var c C
	return c, ErrNoConfigInContext
}

func ContextWithConfig[C any](ctx context.Context, config C) context.Context {
	return context.WithValue(ctx, configKey[C]{}, config)
}
