package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/idcheck/internal/config"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idcheck.yaml")

	output, err := execute(t, "config", "init", path, "--force=false")
	require.NoError(t, err)
	assert.Contains(t, output, "Configuration written to "+path)

	loaded, err := config.NewIsolatedLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Server.Port, loaded.Server.Port)

	_, err = execute(t, "config", "init", path, "--force=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", path, "--force")
	require.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	output, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "recognizer:")
	assert.Contains(t, output, "server:")
	assert.Contains(t, output, "countries:")
}

func TestConfigPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(os.TempDir(), "xdg"))
	output, err := execute(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, output, filepath.Join(os.TempDir(), "xdg", "idcheck"))
}
