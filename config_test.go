package kata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/katalab/kata-runner/flags"
	"github.com/katalab/kata-runner/reporting"
)

// newConfigFromArgs runs NewConfig inside a cli app parsing args
func newConfigFromArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	var cfg *Config
	var cfgErr error
	app := &cli.App{
		Flags: flags.Flags,
		Action: func(ctx *cli.Context) error {
			cfg, cfgErr = NewConfig(ctx, testLogger())
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"kata-runner"}, args...)))
	return cfg, cfgErr
}

func TestNewConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := newConfigFromArgs(t)
	require.NoError(t, err)

	assert.Empty(t, cfg.ConfigFile)
	assert.Empty(t, cfg.Exercises)
	assert.Empty(t, cfg.TracksFile)
	assert.Equal(t, reporting.FormatSpec, cfg.Reporter)
	assert.Equal(t, reporting.DefaultSlow, cfg.Slow)
	assert.True(t, cfg.RunOnce)
	assert.True(t, filepath.IsAbs(cfg.LogDir))
	assert.Equal(t, "logs", filepath.Base(cfg.LogDir))
	assert.NotEmpty(t, cfg.Service.HealthzAddr)
	assert.NotEmpty(t, cfg.Service.MetricsAddr)
	assert.NotNil(t, cfg.Log)
}

func TestNewConfig_Flags(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := newConfigFromArgs(t,
		"--exercise", "leap",
		"--track", "strings",
		"--tracks", "tracks.yaml",
		"--grep", "unicode",
		"--invert",
		"--bail",
		"--retries", "2",
		"--timeout", "3s",
		"--reporter", "json",
		"--run-interval", "1m",
		"--forbid-only",
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"leap"}, cfg.Exercises)
	assert.Equal(t, []string{"strings"}, cfg.Tracks)
	assert.True(t, filepath.IsAbs(cfg.TracksFile))
	assert.Equal(t, "unicode", cfg.Grep)
	assert.True(t, cfg.Invert)
	assert.True(t, cfg.Bail)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, reporting.FormatJSON, cfg.Reporter)
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.False(t, cfg.RunOnce)
	assert.True(t, cfg.ForbidOnly)
}

func TestNewConfig_RunOptionsFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, flags.DefaultConfigFile), []byte("bail: true\nretries: 3\nreporter: table\n"), 0644))

	cfg, err := newConfigFromArgs(t, "--retries", "1")
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.ConfigFile)
	assert.True(t, cfg.Bail)
	assert.Equal(t, 1, cfg.Retries, "flags take precedence over the run-options file")
	assert.Equal(t, reporting.FormatTable, cfg.Reporter)
}

func TestNewConfig_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"negative retries", []string{"--retries=-1"}, "retries must not be negative"},
		{"negative interval", []string{"--run-interval=-1s"}, "run interval must not be negative"},
		{"missing config file", []string{"--config", "missing.yaml"}, "failed to load config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newConfigFromArgs(t, tt.args...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
