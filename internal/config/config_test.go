package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Defaults().Port, cfg.Port)
	require.Equal(t, Defaults().Endpoints, cfg.Endpoints)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9090\nfallback: false\nendpoints:\n  - https://a.example\n  - https://b.example\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.False(t, cfg.Fallback)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Endpoints)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9090\nfallback: true\n"), 0o644))

	t.Setenv("PORT", "7000")
	t.Setenv("FALLBACK", "false")
	t.Setenv("DEBUG", "true")
	t.Setenv("WEBUI_PASSWORD", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7000, cfg.Port)
	require.False(t, cfg.Fallback)
	require.True(t, cfg.Debug)
	require.Equal(t, "s3cret", cfg.WebUIPassword)
}

func TestLoad_MalformedYAMLReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [this is not valid"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
