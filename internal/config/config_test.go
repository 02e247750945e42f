package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arenactl.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadEmptyPathDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[arena]
size = 1000
file = "arena.bin"

[log]
enabled = true
level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1000, cfg.Arena.Size)
	require.Equal(t, Default().Arena.Capacity, cfg.Arena.Capacity, "unset keys keep defaults")
	require.Equal(t, "arena.bin", cfg.Arena.File)

	opts, err := cfg.LoggerOptions()
	require.NoError(t, err)
	require.True(t, opts.Enabled)
	require.Equal(t, slog.LevelDebug, opts.Level)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[arena]
sise = 1000
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "arena.sise")
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"zero size":     "[arena]\nsize = 0\n",
		"huge size":     "[arena]\nsize = 2147483648\n",
		"zero capacity": "[arena]\ncapacity = 0\n",
		"bad level":     "[log]\nlevel = \"loud\"\n",
		"negative age":  "[log]\nmax_age_days = -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeConfig(t, "[arena\n"))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
