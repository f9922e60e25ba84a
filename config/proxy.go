package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// Proxy types accepted by the proxy dialog
const (
	ProxyHTTP    = "http"
	ProxySOCKS5  = "socks5"
	ProxySOCKS5H = "socks5h"
)

// ProxyTypes lists the supported proxy schemes in display order
var ProxyTypes = []string{ProxyHTTP, ProxySOCKS5, ProxySOCKS5H}

// ProxyConfig is the persisted proxy record. Auth is basic when User is set.
type ProxyConfig struct {
	Enabled bool   `json:"enabled"`
	Type    string `json:"type"`
	Host    string `json:"host"`
	Port    string `json:"port"`
	User    string `json:"user"`
	Pass    string `json:"pass"`
}

// DefaultProxyConfig returns a disabled http proxy record
func DefaultProxyConfig() ProxyConfig {
	return ProxyConfig{Type: ProxyHTTP}
}

// Active reports whether the proxy should be used at all
func (p ProxyConfig) Active() bool {
	return p.Enabled && p.Host != "" && p.Port != ""
}

// HasAuth reports whether basic auth credentials are configured
func (p ProxyConfig) HasAuth() bool {
	return p.User != ""
}

// URL renders the proxy as type://[user:pass@]host:port, or "" when inactive
func (p ProxyConfig) URL() string {
	if !p.Active() {
		return ""
	}
	scheme := p.Type
	if scheme == "" {
		scheme = ProxyHTTP
	}
	u := &url.URL{Scheme: scheme, Host: net.JoinHostPort(p.Host, p.Port)}
	if p.HasAuth() {
		u.User = url.UserPassword(p.User, p.Pass)
	}
	return u.String()
}

// LoadProxyConfig reads the proxy file. A missing, unreadable or malformed file
// yields the defaults; keys present in the file override the defaults one by
// one, so a hand-edited value of the wrong JSON type only loses that key.
func LoadProxyConfig(path string) ProxyConfig {
	cfg := DefaultProxyConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return cfg
	}

	if v, ok := raw["enabled"]; ok {
		if enabled, ok := boolValue(v); ok {
			cfg.Enabled = enabled
		}
	}
	for key, field := range map[string]*string{
		"type": &cfg.Type,
		"host": &cfg.Host,
		"port": &cfg.Port,
		"user": &cfg.User,
		"pass": &cfg.Pass,
	} {
		if v, ok := raw[key]; ok {
			if text, ok := stringValue(v); ok {
				*field = text
			}
		}
	}

	if !validProxyType(cfg.Type) {
		cfg.Type = ProxyHTTP
	}
	return cfg
}

func stringValue(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", true
	}
	return "", false
}

func boolValue(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	}
	return false, false
}

// SaveProxyConfig writes the proxy record as indented JSON
func SaveProxyConfig(path string, cfg ProxyConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal proxy config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write proxy config: %w", err)
	}
	return nil
}

var proxyEnvKeys = []string{
	"HTTP_PROXY", "HTTPS_PROXY", "ALL_PROXY",
	"http_proxy", "https_proxy", "all_proxy",
}

// ApplyProxyEnv exports the proxy to the environment inherited by ffmpeg and the
// model runtime, or clears it when the proxy is inactive.
func ApplyProxyEnv(cfg ProxyConfig) {
	proxyURL := cfg.URL()
	if proxyURL == "" {
		for _, key := range proxyEnvKeys {
			os.Unsetenv(key)
		}
		return
	}
	for _, key := range proxyEnvKeys {
		os.Setenv(key, proxyURL)
	}
}

func validProxyType(t string) bool {
	for _, known := range ProxyTypes {
		if t == known {
			return true
		}
	}
	return false
}
