package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	SetupFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func load(t *testing.T, cmd *cobra.Command, envFiles ...string) *Config {
	t.Helper()
	v := viper.New()
	Init(v, envFiles...)
	require.NoError(t, BindFlags(v, cmd))
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := load(t, newCommand(t))

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "http://localhost:8000/api/v1", cfg.BackendURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.SimulateSync)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DISTDASH_BACKEND_URL", "http://db.internal:9000/api/v1")
	t.Setenv("DISTDASH_REQUEST_TIMEOUT", "3s")
	t.Setenv("DISTDASH_SIMULATE_SYNC", "false")

	cfg := load(t, newCommand(t))

	assert.Equal(t, "http://db.internal:9000/api/v1", cfg.BackendURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.SimulateSync)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DISTDASH_HTTP_ADDR", ":9999")

	cfg := load(t, newCommand(t, "--http-addr", ":7070", "--log-level", "debug"))

	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distdash.yaml")
	content := "backend_url: http://files:8000/api/v1\nhistory_path: /tmp/history.db\nreplication_delay: 250ms\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := load(t, newCommand(t, "--config", path))

	assert.Equal(t, "http://files:8000/api/v1", cfg.BackendURL)
	assert.Equal(t, "/tmp/history.db", cfg.HistoryPath)
	assert.Equal(t, 250*time.Millisecond, cfg.ReplicationDelay)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	v := viper.New()
	Init(v)
	require.NoError(t, BindFlags(v, newCommand(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))))

	_, err := Load(v)
	assert.Error(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DISTDASH_GRPC_ADDR=:50051\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("DISTDASH_GRPC_ADDR") })

	cfg := load(t, newCommand(t), path, filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, ":50051", cfg.GRPCAddr)
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.BackendURL = "localhost:8000"
	cfg.RequestTimeout = 0
	cfg.ReplicationDelay = -time.Second
	cfg.LogLevel = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"backend_url", "request_timeout", "replication_delay", "verbose"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_MissingBackend(t *testing.T) {
	cfg := Default()
	cfg.BackendURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required setting: backend_url")
}
