package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lambda-feedback/nodewarden/util/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema(t *testing.T) {
	_, err := NewSchema()

	assert.NoError(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := conf.Parse[Config](conf.ParseOptions{
		Defaults:  DefaultConfig,
		EnvPrefix: EnvPrefix,
	})
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost", cfg.Http.Host)
	assert.Equal(t, 2*time.Second, cfg.Supervisor.PollInterval)
	assert.Equal(t, 2, cfg.Supervisor.CrashConfirmations)
	assert.Equal(t, 10*time.Second, cfg.Supervisor.GracePeriod)
	assert.True(t, cfg.Supervisor.StopOnExit)
}

func TestConfigFile(t *testing.T) {
	schema, err := NewSchema()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nodewarden.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"supervisor": {
			"node": {
				"cmd": "/opt/node/bin/node",
				"args": ["--data-directory", "/var/lib/node"],
				"env": {"RUST_LOG": "info"},
				"elevate": true,
				"elevator": {"program": "sudo", "args": ["-A"], "denied_codes": [1]}
			},
			"grace_period": "30s",
			"adopt": true
		},
		"auth": {"key": "secret"}
	}`), 0o644))

	cfg, err := conf.Parse[Config](conf.ParseOptions{
		Defaults:  DefaultConfig,
		EnvPrefix: EnvPrefix,
		FileName:  path,
		Schema:    schema,
	})
	require.NoError(t, err)

	node := cfg.Supervisor.Node
	assert.Equal(t, "/opt/node/bin/node", node.Cmd)
	assert.Equal(t, []string{"--data-directory", "/var/lib/node"}, node.Args)
	assert.Equal(t, map[string]string{"RUST_LOG": "info"}, node.Env)
	assert.True(t, node.Elevate)
	assert.Equal(t, "sudo", node.Elevator.Program)
	assert.Equal(t, []int{1}, node.Elevator.DeniedCodes)
	assert.Equal(t, 30*time.Second, cfg.Supervisor.GracePeriod)
	assert.True(t, cfg.Supervisor.Adopt)
	assert.Equal(t, "secret", cfg.Auth.Key)
}

func TestConfigFile_Invalid(t *testing.T) {
	schema, err := NewSchema()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nodewarden.yaml")
	require.NoError(t, os.WriteFile(path, []byte("supervisor:\n  grace_period: soon\n  unknown: 1\n"), 0o644))

	_, err = conf.Parse[Config](conf.ParseOptions{
		Defaults:  DefaultConfig,
		EnvPrefix: EnvPrefix,
		FileName:  path,
		Schema:    schema,
	})

	var validationErr *conf.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.GreaterOrEqual(t, len(validationErr.Errors), 2)
}
