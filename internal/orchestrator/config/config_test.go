package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaultsWithNoPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.7, cfg.Router.ConfidenceThreshold)
	assert.Equal(t, 30, cfg.Session.IdleTTLMinutes)
}

func TestLoad_ParsesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\nrouter:\n  confidenceThreshold: 0.5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.Router.ConfidenceThreshold)
}

func TestLoad_RejectsInvalidConfidenceThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("router:\n  confidenceThreshold: 1.5\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
