// Package app contains the core application logic shared by the GUI, the
// terminal UI and the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jeff-barlow-spady/mediascribe/config"
	"github.com/jeff-barlow-spady/mediascribe/pkg/ffmpeg"
	"github.com/jeff-barlow-spady/mediascribe/pkg/hardware"
	"github.com/jeff-barlow-spady/mediascribe/pkg/history"
	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
	"github.com/jeff-barlow-spady/mediascribe/pkg/models"
	"github.com/jeff-barlow-spady/mediascribe/pkg/proxy"
	"github.com/jeff-barlow-spady/mediascribe/pkg/transcription"
)

// Common error types for the app package
var (
	// ErrNoInputFiles indicates the input folder has no supported media
	ErrNoInputFiles = errors.New("no media files in input folder")

	// ErrCancelled indicates the user declined to overwrite existing results
	ErrCancelled = errors.New("cancelled by user (existing results found)")

	// ErrNotReady indicates a prerequisite such as ffmpeg or the model is missing
	ErrNotReady = errors.New("not ready")

	// ErrBusy indicates a batch is already being processed
	ErrBusy = errors.New("processing already in progress")
)

// Runtime notes shown in the status line
const (
	NoteAuto             = "Auto"
	NoteCPUForced        = "CPU forced"
	NoteGPUForced        = "GPU forced"
	NoteGPU              = "GPU"
	NoteCPU              = "CPU"
	NoteCPUFallback      = "CPU fallback"
	NoteCPUFallbackAfter = "CPU fallback after GPU error"
)

// Options configures a Service. Zero-valued hooks use the real implementations.
type Options struct {
	Paths    config.AppPaths
	Settings config.Settings
	Proxy    config.ProxyConfig
	Hardware hardware.Info
	History  *history.Store

	// Runtime overrides runtime discovery
	Runtime transcription.Runtime
	// Extract overrides ffmpeg audio extraction
	Extract func(ctx context.Context, input, output string) error
	// Duration overrides WAV duration measurement
	Duration func(path string) (time.Duration, error)
}

// Service is the application state and the operations on it
type Service struct {
	mu sync.Mutex

	paths    config.AppPaths
	settings config.Settings
	proxyCfg config.ProxyConfig
	hw       hardware.Info
	history  *history.Store

	model       models.Info
	runtimeNote string
	downloading bool
	processing  bool
	lastPercent float64

	runtime  transcription.Runtime
	extract  func(ctx context.Context, input, output string) error
	duration func(path string) (time.Duration, error)
}

// New creates a service from explicit options
func New(opts Options) *Service {
	model, err := models.Lookup(opts.Settings.Model)
	if err != nil {
		logger.Warning(logger.CategoryApp, "Unknown model %q in settings, using Base", opts.Settings.Model)
		model, _ = models.Lookup("Base")
	}
	opts.Settings.Model = model.Name
	opts.Settings.Device = config.NormalizeDevice(opts.Settings.Device)
	if opts.Settings.HFEndpoint == "" {
		opts.Settings.HFEndpoint = config.DefaultHFEndpoint
	}

	s := &Service{
		paths:    opts.Paths,
		settings: opts.Settings,
		proxyCfg: opts.Proxy,
		hw:       opts.Hardware,
		history:  opts.History,
		model:    model,
		runtime:  opts.Runtime,
		extract:  opts.Extract,
		duration: opts.Duration,
	}
	s.runtimeNote = noteFor(s.settings.Device)
	if s.duration == nil {
		s.duration = ffmpeg.WAVDuration
	}
	return s
}

// Open loads settings and proxy config from paths, detects hardware and opens
// the run history. Broken settings fall back to defaults so the UI can start.
func Open(ctx context.Context, paths config.AppPaths) (*Service, error) {
	settings, err := config.LoadSettings(paths.SettingsFile)
	if err != nil {
		logger.Warning(logger.CategoryApp, "%v, using defaults", err)
		settings = config.DefaultSettings()
	}
	logger.SetLevel(logger.ParseLevel(settings.LogLevel))

	proxyCfg := config.LoadProxyConfig(paths.ConfigFile)
	config.ApplyProxyEnv(proxyCfg)

	hw := hardware.Detect(ctx)
	logger.Info(logger.CategoryHardware, "Compute device: %s (%s)", hw.Device, hw.Name)

	store, err := history.Open(paths.HistoryFile)
	if err != nil {
		logger.Warning(logger.CategoryApp, "Run history disabled: %v", err)
	}

	return New(Options{
		Paths:    paths,
		Settings: settings,
		Proxy:    proxyCfg,
		Hardware: hw,
		History:  store,
	}), nil
}

// Close releases the run history
func (s *Service) Close() error {
	if s.history != nil {
		return s.history.Close()
	}
	return nil
}

// Paths returns the application folders
func (s *Service) Paths() config.AppPaths {
	return s.paths
}

// Settings returns a copy of the current settings
func (s *Service) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Proxy returns the current proxy configuration
func (s *Service) Proxy() config.ProxyConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proxyCfg
}

// Hardware returns the detected compute device
func (s *Service) Hardware() hardware.Info {
	return s.hw
}

// History returns the run ledger, or nil when it could not be opened
func (s *Service) History() *history.Store {
	return s.history
}

// Model returns the selected catalog model
func (s *Service) Model() models.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// HubEndpoint is the model hub base URL in use
func (s *Service) HubEndpoint() string {
	return s.Settings().HFEndpoint
}

func noteFor(device string) string {
	switch device {
	case config.DeviceCPU:
		return NoteCPUForced
	case config.DeviceGPU:
		return NoteGPUForced
	default:
		return NoteAuto
	}
}

// SetDevicePreference switches between Auto, GPU and CPU and persists the choice
func (s *Service) SetDevicePreference(value string) error {
	device := config.NormalizeDevice(value)
	if device == config.DeviceAuto && !strings.EqualFold(strings.TrimSpace(value), config.DeviceAuto) {
		return fmt.Errorf("unknown device %q (want Auto, GPU or CPU)", value)
	}

	s.mu.Lock()
	s.settings.Device = device
	s.runtimeNote = noteFor(device)
	settings := s.settings
	s.mu.Unlock()

	logger.Info(logger.CategoryApp, "Device preference: %s", device)
	return s.saveSettings(settings)
}

// SelectModel changes the selected model and persists the choice
func (s *Service) SelectModel(name string) error {
	info, err := models.Lookup(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.model = info
	s.settings.Model = info.Name
	settings := s.settings
	s.mu.Unlock()

	return s.saveSettings(settings)
}

func (s *Service) saveSettings(settings config.Settings) error {
	if s.paths.SettingsFile == "" {
		return nil
	}
	return config.SaveSettings(s.paths.SettingsFile, settings)
}

// SaveProxy persists cfg, exports it to the environment and uses it for
// subsequent downloads
func (s *Service) SaveProxy(cfg config.ProxyConfig) error {
	if err := config.SaveProxyConfig(s.paths.ConfigFile, cfg); err != nil {
		return err
	}
	config.ApplyProxyEnv(cfg)

	s.mu.Lock()
	s.proxyCfg = cfg
	s.mu.Unlock()

	logger.Info(logger.CategoryProxy, "Proxy saved (enabled=%v type=%s)", cfg.Enabled, cfg.Type)
	return nil
}

// TestProxy checks cfg against the model hub without saving it
func (s *Service) TestProxy(ctx context.Context, cfg config.ProxyConfig) (bool, string) {
	return proxy.Test(ctx, cfg, s.HubEndpoint())
}

// InstallFFmpeg downloads ffmpeg next to the application through the proxy
func (s *Service) InstallFFmpeg(ctx context.Context) (string, error) {
	client, err := proxy.NewClient(s.Proxy(), proxy.DownloadTimeouts)
	if err != nil {
		return "", err
	}
	installer := ffmpeg.NewInstaller(s.Settings().FFmpegURL, client)
	return installer.Install(ctx, s.paths.BaseDir)
}

// DownloadModel fetches the selected model. Reported progress never goes
// backwards and stays below 1 until every file is in place.
func (s *Service) DownloadModel(ctx context.Context, progress models.ProgressFunc) error {
	s.mu.Lock()
	if s.downloading {
		s.mu.Unlock()
		return models.ErrDownloadInProgress
	}
	s.downloading = true
	s.lastPercent = 0
	info := s.model
	proxyCfg := s.proxyCfg
	endpoint := s.settings.HFEndpoint
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.downloading = false
		s.mu.Unlock()
	}()

	checkClient, err := proxy.NewClient(proxyCfg, proxy.CheckTimeouts)
	if err != nil {
		return err
	}
	if err := models.NewDownloader(endpoint, checkClient).CheckSource(ctx, info); err != nil {
		return err
	}

	client, err := proxy.NewClient(proxyCfg, proxy.DownloadTimeouts)
	if err != nil {
		return err
	}

	logger.Info(logger.CategoryModel, "Downloading %s from %s", info.Name, endpoint)
	return models.NewDownloader(endpoint, client).Download(ctx, s.paths.ModelsDir, info, func(p models.Progress) {
		s.mu.Lock()
		if p.Fraction < 1 {
			if p.Fraction > 0.99 {
				p.Fraction = 0.99
			}
			if p.Fraction < s.lastPercent {
				p.Fraction = s.lastPercent
			}
		}
		s.lastPercent = p.Fraction
		s.mu.Unlock()

		if progress != nil {
			progress(p)
		}
	})
}

// Downloading reports whether a model download is running
func (s *Service) Downloading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloading
}
