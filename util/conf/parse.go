package conf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/lambda-feedback/nodewarden/util/cliflags"
	"github.com/urfave/cli/v2"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// DefaultConfig is a flat map of config keys to default values.
type DefaultConfig map[string]any

type ParseOptions struct {
	// Cli is the cli.Context from urfave/cli
	Cli *cli.Context

	// CliMap is a map of cli flag names to config keys
	CliMap map[string]string

	// Defaults is a map of default values
	Defaults DefaultConfig

	// EnvPrefix is the prefix for env vars
	EnvPrefix string

	// FileName is the name of the configuration file to load. The format
	// is derived from the extension: .json, .yaml, .yml or .env
	FileName string

	// Schema is used to validate structured configuration files
	Schema *gojsonschema.Schema

	// Log is the logger to use
	Log *zap.Logger
}

func Parse[C any](opt ParseOptions) (C, error) {
	var config C

	var log *zap.Logger
	if opt.Log != nil {
		log = opt.Log
	} else {
		log = zap.NewNop()
	}

	k := koanf.New(".")

	if opt.Defaults != nil {
		if err := k.Load(confmap.Provider(opt.Defaults, "."), nil); err != nil {
			return config, fmt.Errorf("failed to load defaults: %w", err)
		}
	}

	if opt.FileName != "" {
		if err := loadFile(k, opt); err != nil {
			log.Error("error parsing file",
				zap.Error(err),
				zap.String("file", opt.FileName),
			)
			return config, err
		}
	}

	transformPrefixedEnv := func(s string) string {
		return transformEnv(s, opt.EnvPrefix)
	}

	if err := k.Load(env.Provider(opt.EnvPrefix, ".", transformPrefixedEnv), nil); err != nil {
		log.Error("error parsing env vars", zap.Error(err))
		return config, err
	}

	if opt.Cli != nil {
		transformFlag := func(s string) string {
			if opt.CliMap != nil {
				if name, ok := opt.CliMap[s]; ok {
					return name
				}
			}

			// replace - with _
			return strings.ReplaceAll(strings.ToLower(s), "-", "_")
		}

		if err := k.Load(cliflags.Provider(opt.Cli, ".", transformFlag), nil); err != nil {
			log.Error("error parsing cli flags", zap.Error(err))
			return config, err
		}
	}

	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "conf"}); err != nil {
		log.Error("error unmarshalling config", zap.Error(err))
		return config, err
	}

	return config, nil
}

func loadFile(k *koanf.Koanf, opt ParseOptions) error {
	fk := koanf.New(".")

	switch ext := strings.ToLower(filepath.Ext(opt.FileName)); ext {
	case ".json":
		if err := fk.Load(file.Provider(opt.FileName), json.Parser()); err != nil {
			return err
		}
	case ".yaml", ".yml":
		if err := fk.Load(file.Provider(opt.FileName), YAMLParser()); err != nil {
			return err
		}
	case ".env":
		return loadDotenv(k, opt)
	default:
		return fmt.Errorf("unsupported config file format %q", ext)
	}

	if opt.Schema != nil {
		if err := Validate(opt.Schema, fk.Raw()); err != nil {
			return err
		}
	}

	return k.Merge(fk)
}

// loadDotenv loads a dotenv file using the same key mapping as the
// environment.
func loadDotenv(k *koanf.Koanf, opt ParseOptions) error {
	fk := koanf.New(".")

	if err := fk.Load(file.Provider(opt.FileName), dotenv.Parser()); err != nil {
		return err
	}

	mp := make(map[string]any)
	for key, val := range fk.All() {
		if !strings.HasPrefix(key, opt.EnvPrefix) {
			continue
		}
		mp[transformEnv(key, opt.EnvPrefix)] = val
	}

	return k.Load(confmap.Provider(mp, "."), nil)
}

func transformEnv(s, prefix string) string {
	// pop prefix if it is set
	s = strings.TrimPrefix(s, prefix)
	// allow specifying nested env vars w/ __
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
