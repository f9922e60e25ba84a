package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPathsAtCreatesFolders(t *testing.T) {
	base := t.TempDir()

	paths, err := GetPathsAt(base)
	require.NoError(t, err)

	for _, dir := range []string{paths.ModelsDir, paths.InputDir, paths.OutputDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err, "expected %s to exist", dir)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, filepath.Join(paths.BaseDir, "proxy_config.json"), paths.ConfigFile)
	assert.Equal(t, filepath.Join(paths.BaseDir, "error.log"), paths.ErrorLog)
	assert.Equal(t, "input_files", filepath.Base(paths.InputDir))
	assert.Equal(t, "results", filepath.Base(paths.OutputDir))
}

func TestGetPathsHonoursHomeEnv(t *testing.T) {
	base := t.TempDir()
	t.Setenv(HomeEnv, base)

	paths, err := GetPaths()
	require.NoError(t, err)

	abs, _ := filepath.Abs(base)
	assert.Equal(t, abs, paths.BaseDir)
}

func TestSetupRuntimePaths(t *testing.T) {
	base := t.TempDir()
	t.Setenv("PATH", "/usr/bin")

	SetupRuntimePaths(base)
	SetupRuntimePaths(base)

	entries := filepath.SplitList(os.Getenv("PATH"))
	require.Len(t, entries, 2, "base dir must be added exactly once")
	assert.Equal(t, base, entries[0])
}

func TestSetupRuntimePathsEmptyPath(t *testing.T) {
	base := t.TempDir()
	t.Setenv("PATH", "")

	SetupRuntimePaths(base)
	assert.Equal(t, base, os.Getenv("PATH"))
}

func TestLoadProxyConfigDefaults(t *testing.T) {
	cfg := LoadProxyConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, DefaultProxyConfig(), cfg)
	assert.False(t, cfg.Active())
}

func TestLoadProxyConfigMergesAndToleratesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy_config.json")
	content := `{
		// written by hand
		"enabled": true,
		"host": "127.0.0.1",
		"port": "1080",
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := LoadProxyConfig(path)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, ProxyHTTP, cfg.Type, "type should keep its default")
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, "1080", cfg.Port)
	assert.True(t, cfg.Active())
}

func TestLoadProxyConfigLenientTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy_config.json")
	content := `{"enabled": true, "type": "socks5", "host": "127.0.0.1", "port": 1080, "user": 42, "pass": ["x"]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := LoadProxyConfig(path)
	assert.Equal(t, ProxyConfig{Enabled: true, Type: ProxySOCKS5, Host: "127.0.0.1", Port: "1080", User: "42"}, cfg)
	assert.True(t, cfg.Active())

	require.NoError(t, os.WriteFile(path, []byte(`{"enabled": "yes", "host": "h", "port": "8080"}`), 0644))
	cfg = LoadProxyConfig(path)
	assert.False(t, cfg.Enabled, "unparseable enabled keeps the default")
	assert.Equal(t, "h", cfg.Host)

	require.NoError(t, os.WriteFile(path, []byte(`{"enabled": 1, "host": "h", "port": "8080"}`), 0644))
	assert.True(t, LoadProxyConfig(path).Enabled)
}

func TestLoadProxyConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy_config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	assert.Equal(t, DefaultProxyConfig(), LoadProxyConfig(path))
}

func TestSaveAndLoadProxyConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy_config.json")
	want := ProxyConfig{Enabled: true, Type: ProxySOCKS5H, Host: "proxy.local", Port: "9050", User: "me", Pass: "secret"}

	require.NoError(t, SaveProxyConfig(path, want))
	assert.Equal(t, want, LoadProxyConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"type": "socks5h"`))
}

func TestProxyURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProxyConfig
		want string
	}{
		{"disabled", ProxyConfig{Type: ProxyHTTP, Host: "h", Port: "1"}, ""},
		{"missing port", ProxyConfig{Enabled: true, Type: ProxyHTTP, Host: "h"}, ""},
		{"plain http", ProxyConfig{Enabled: true, Type: ProxyHTTP, Host: "10.0.0.1", Port: "3128"}, "http://10.0.0.1:3128"},
		{"socks with auth", ProxyConfig{Enabled: true, Type: ProxySOCKS5, Host: "h", Port: "1080", User: "u", Pass: "p@ss"}, "socks5://u:p%40ss@h:1080"},
		{"empty type", ProxyConfig{Enabled: true, Host: "h", Port: "8080"}, "http://h:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.URL())
		})
	}
}

func TestApplyProxyEnv(t *testing.T) {
	for _, key := range proxyEnvKeys {
		t.Setenv(key, "")
	}

	ApplyProxyEnv(ProxyConfig{Enabled: true, Type: ProxyHTTP, Host: "h", Port: "3128"})
	for _, key := range proxyEnvKeys {
		assert.Equal(t, "http://h:3128", os.Getenv(key), key)
	}

	ApplyProxyEnv(DefaultProxyConfig())
	for _, key := range proxyEnvKeys {
		_, set := os.LookupEnv(key)
		assert.False(t, set, "%s should be unset", key)
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("HF_ENDPOINT", "")

	settings, err := LoadSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)
}

func TestSettingsRoundTripAndNormalize(t *testing.T) {
	t.Setenv("HF_ENDPOINT", "")
	path := filepath.Join(t.TempDir(), "settings.yaml")

	require.NoError(t, os.WriteFile(path, []byte("model: Small\ndevice: cuda\nhf_endpoint: https://huggingface.co/\n"), 0644))
	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "Small", settings.Model)
	assert.Equal(t, DeviceGPU, settings.Device)
	assert.Equal(t, "https://huggingface.co", settings.HFEndpoint)
	assert.True(t, settings.VADFilter, "absent key keeps default")

	settings.Language = "de"
	require.NoError(t, SaveSettings(path, settings))
	reloaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, settings, reloaded)
}

func TestSettingsEndpointFromEnv(t *testing.T) {
	t.Setenv("HF_ENDPOINT", "https://example.test")

	settings, err := LoadSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", settings.HFEndpoint)
}

func TestLoadSettingsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unterminated"), 0644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}
