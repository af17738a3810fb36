package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManagerConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadManagerConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultManagerConfig(), cfg)
}

func TestLoadManagerConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manager.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_addr":"0.0.0.0:9000"}`), 0o644))

	cfg, err := LoadManagerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.APIAddr)
	assert.Equal(t, DefaultManagerConfig().DBPath, cfg.DBPath)
}

func TestLoadAgentConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"manager_url":"http://10.0.0.1:8080","interval_sec":10}`), 0o644))

	cfg, err := LoadAgentConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:8080", cfg.ManagerURL)
	assert.Equal(t, 10, cfg.IntervalSec)
	assert.Equal(t, DefaultAgentConfig().ListenAddr, cfg.ListenAddr)
}

func TestLoadManagerConfig_MissingFileErrors(t *testing.T) {
	_, err := LoadManagerConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
