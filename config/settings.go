package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Device preferences offered in the device selector
const (
	DeviceAuto = "Auto"
	DeviceGPU  = "GPU"
	DeviceCPU  = "CPU"
)

// DevicePreferences lists the selector values in display order
var DevicePreferences = []string{DeviceAuto, DeviceGPU, DeviceCPU}

// DefaultHFEndpoint is the model hub mirror used unless HF_ENDPOINT says otherwise
const DefaultHFEndpoint = "https://hf-mirror.com"

// Settings holds user preferences that survive restarts
type Settings struct {
	// Model is the catalog name of the selected model (Tiny, Base, Small, Medium)
	Model string `yaml:"model"`
	// Device is Auto, GPU or CPU
	Device string `yaml:"device"`
	// Language is passed to the runtime; empty means auto-detect
	Language string `yaml:"language,omitempty"`
	// HFEndpoint is the base URL of the model hub
	HFEndpoint string `yaml:"hf_endpoint"`
	// RuntimePath pins the transcription runtime executable
	RuntimePath string `yaml:"runtime_path,omitempty"`
	// FFmpegURL overrides the archive used by ffmpeg auto-install
	FFmpegURL string `yaml:"ffmpeg_url,omitempty"`
	// VADFilter skips silence before decoding
	VADFilter bool `yaml:"vad_filter"`
	// LogLevel is one of debug, info, warning, error, silent
	LogLevel string `yaml:"log_level"`
}

// DefaultSettings returns the settings used on first start
func DefaultSettings() Settings {
	return Settings{
		Model:      "Base",
		Device:     DeviceAuto,
		HFEndpoint: DefaultHFEndpoint,
		VADFilter:  true,
		LogLevel:   "info",
	}
}

// LoadSettings reads settings.yaml. A missing file yields the defaults, a
// malformed one is an error so the user does not silently lose preferences.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return DefaultSettings(), fmt.Errorf("failed to parse settings file: %w", err)
		}
	}

	settings.normalize()
	return settings, nil
}

// SaveSettings writes settings.yaml
func SaveSettings(path string, settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// NormalizeDevice maps free-form device input to one of the selector values
func NormalizeDevice(device string) string {
	switch strings.ToLower(strings.TrimSpace(device)) {
	case "gpu", "cuda":
		return DeviceGPU
	case "cpu":
		return DeviceCPU
	default:
		return DeviceAuto
	}
}

func (s *Settings) normalize() {
	s.Device = NormalizeDevice(s.Device)
	if env := strings.TrimSpace(os.Getenv("HF_ENDPOINT")); env != "" {
		s.HFEndpoint = env
	}
	if s.HFEndpoint == "" {
		s.HFEndpoint = DefaultHFEndpoint
	}
	s.HFEndpoint = strings.TrimRight(s.HFEndpoint, "/")
	if s.Model == "" {
		s.Model = DefaultSettings().Model
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
}
