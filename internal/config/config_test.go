package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshharrison/crashpath/internal/crash"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crashpath.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, crash.DefaultMaxIterations, cfg.Optimizer.MaxIterations)
	assert.Equal(t, crash.DefaultStepUnit, cfg.Optimizer.StepUnit)
	assert.Equal(t, ":7171", cfg.Server.Addr)
	assert.False(t, cfg.Output.NoColor)
	assert.Empty(t, cfg.Claude.Model)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	cfg, err := Load(missing, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(missing, true)
	assert.Error(t, err, "an explicit path must exist")
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[optimizer]
step_unit = 0.5

[output]
no_color = true

[claude]
model = "claude-opus-4-1"
`)
	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Optimizer.StepUnit)
	assert.Equal(t, crash.DefaultMaxIterations, cfg.Optimizer.MaxIterations, "unset keys keep defaults")
	assert.True(t, cfg.Output.NoColor)
	assert.Equal(t, ":7171", cfg.Server.Addr)
	assert.Equal(t, "claude-opus-4-1", cfg.Claude.Model)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero iterations", "[optimizer]\nmax_iterations = 0\n", "max_iterations"},
		{"negative step", "[optimizer]\nstep_unit = -1.0\n", "step_unit"},
		{"empty addr", "[server]\naddr = \"\"\n", "server.addr"},
		{"unknown key", "[optimizer]\nbudget = 3\n", "unknown keys optimizer.budget"},
		{"bad syntax", "[optimizer\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCrashOptions(t *testing.T) {
	cfg := Default()
	cfg.Optimizer.MaxIterations = 7
	assert.Len(t, cfg.CrashOptions(nil), 2)

	var o crash.Options
	for _, opt := range cfg.CrashOptions(nil) {
		opt(&o)
	}
	assert.Equal(t, 7, o.MaxIterations)
	assert.Equal(t, 1.0, o.StepUnit)
}
