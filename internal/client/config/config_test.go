package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"client"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	require.Equal(t, "http://127.0.0.1:8080", cfg.ServerEndpointAddr)
	require.Equal(t, "stockpilot.db", cfg.DatabaseDSN)
	require.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	require.Equal(t, 30*time.Second, cfg.OnlineCheckInterval)
	require.False(t, cfg.OfflineVerifyPasswords)
}

func TestLoadConfig_FlagsOverrideDefaults(t *testing.T) {
	withArgs(t, "-a", "http://id.example.com", "-d", "custom.db", "-i", "10")

	cfg := LoadConfig()

	require.Equal(t, "http://id.example.com", cfg.ServerEndpointAddr)
	require.Equal(t, "custom.db", cfg.DatabaseDSN)
	require.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_JsonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_endpoint_addr": "http://json.example.com",
		"probe_timeout": "2s",
		"online_check_interval": "45s",
		"offline_verify_passwords": true
	}`), 0o600))

	withArgs(t, "-c", path)

	cfg := LoadConfig()

	require.Equal(t, "http://json.example.com", cfg.ServerEndpointAddr)
	require.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	require.Equal(t, 45*time.Second, cfg.OnlineCheckInterval)
	require.True(t, cfg.OfflineVerifyPasswords)
	// untouched fields keep defaults
	require.Equal(t, "stockpilot.db", cfg.DatabaseDSN)
}

func TestLoadConfig_FlagsOverrideJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_endpoint_addr": "http://json.example.com"}`), 0o600))

	withArgs(t, "-c", path, "-a", "http://flag.example.com")

	cfg := LoadConfig()
	require.Equal(t, "http://flag.example.com", cfg.ServerEndpointAddr)
}

func TestLoadConfig_MissingJsonFilePanics(t *testing.T) {
	withArgs(t, "-c", filepath.Join(t.TempDir(), "absent.json"))
	require.Panics(t, func() { LoadConfig() })
}
