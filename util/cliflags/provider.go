// Package cliflags implements a koanf.Provider reading the flags set on
// a cli.Context.
package cliflags

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/maps"
	"github.com/urfave/cli/v2"
)

// CLIFlags provides the flags explicitly set on the command line. Flags
// left at their default are omitted, so they do not shadow values from
// files or the environment.
type CLIFlags struct {
	mp map[string]any
}

// Provider collects the set flags of ctx and of every parent command.
// rename maps a flag name to its config key, flags it maps to "" are
// skipped. If delim is not empty, the keys are unflattened by delim.
func Provider(ctx *cli.Context, delim string, rename func(string) string) *CLIFlags {
	flags := declaredFlags(ctx)

	mp := make(map[string]any)

	for _, name := range ctx.FlagNames() {
		flag, ok := flags[name]
		if !ok {
			continue
		}

		value, err := flagValue(ctx, flag)
		if err != nil {
			continue
		}

		key := name
		if rename != nil {
			key = rename(name)
		}
		if key == "" {
			continue
		}

		mp[key] = value
	}

	if delim != "" {
		mp = maps.Unflatten(mp, delim)
	}

	return &CLIFlags{mp: mp}
}

// declaredFlags indexes the flags of the command chain by primary name.
// Flags of inner commands override flags of the same name declared by
// outer ones.
func declaredFlags(ctx *cli.Context) map[string]cli.Flag {
	lineage := ctx.Lineage()

	flags := map[string]cli.Flag{}
	for _, flag := range ctx.App.VisibleFlags() {
		flags[flag.Names()[0]] = flag
	}

	for i := len(lineage) - 1; i >= 0; i-- {
		if lineage[i].Command == nil {
			continue
		}
		for _, flag := range lineage[i].Command.VisibleFlags() {
			flags[flag.Names()[0]] = flag
		}
	}

	return flags
}

// ReadBytes is not supported by the cli flags provider.
func (e *CLIFlags) ReadBytes() ([]byte, error) {
	return nil, errors.New("cli provider does not support this method")
}

// Read returns the loaded map[string]any.
func (e *CLIFlags) Read() (map[string]any, error) {
	return e.mp, nil
}

func flagValue(ctx *cli.Context, flag cli.Flag) (any, error) {
	name := flag.Names()[0]

	switch flag.(type) {
	case *cli.StringFlag:
		return ctx.String(name), nil
	case *cli.PathFlag:
		return ctx.Path(name), nil
	case *cli.StringSliceFlag:
		return ctx.StringSlice(name), nil
	case *cli.BoolFlag:
		return ctx.Bool(name), nil
	case *cli.IntFlag:
		return ctx.Int(name), nil
	case *cli.IntSliceFlag:
		return ctx.IntSlice(name), nil
	case *cli.Int64Flag:
		return ctx.Int64(name), nil
	case *cli.Int64SliceFlag:
		return ctx.Int64Slice(name), nil
	case *cli.UintFlag:
		return ctx.Uint(name), nil
	case *cli.Float64Flag:
		return ctx.Float64(name), nil
	case *cli.Float64SliceFlag:
		return ctx.Float64Slice(name), nil
	case *cli.DurationFlag:
		// keep the duration a string, so that it decodes the same way
		// as a duration read from a file
		return ctx.Duration(name).String(), nil
	default:
		return nil, fmt.Errorf("unsupported flag type %T", flag)
	}
}
