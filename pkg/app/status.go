package app

import (
	"fmt"
	"strings"

	"github.com/jeff-barlow-spady/mediascribe/config"
	"github.com/jeff-barlow-spady/mediascribe/pkg/ffmpeg"
	"github.com/jeff-barlow-spady/mediascribe/pkg/hardware"
	"github.com/jeff-barlow-spady/mediascribe/pkg/models"
	"github.com/jeff-barlow-spady/mediascribe/pkg/transcription"
)

// Status is a snapshot of everything the status bar shows
type Status struct {
	FFmpegFound  bool            `json:"ffmpeg_found"`
	ProxyOn      bool            `json:"proxy_on"`
	ComputeType  string          `json:"compute_type"`
	CUDA         string          `json:"cuda"`
	Device       string          `json:"device_preference"`
	ActiveDevice string          `json:"active_device"`
	Runtime      string          `json:"runtime"`
	Model        string          `json:"model"`
	ModelReady   bool            `json:"model_ready"`
	Downloading  bool            `json:"downloading"`
	Processing   bool            `json:"processing"`
	Models       []models.Status `json:"models"`
	Problems     []string        `json:"problems"`
	Ready        bool            `json:"ready"`
}

// Status collects the current state of prerequisites and preferences
func (s *Service) Status() Status {
	s.mu.Lock()
	device := s.settings.Device
	note := s.runtimeNote
	model := s.model
	proxyOn := s.proxyCfg.Active()
	downloading := s.downloading
	processing := s.processing
	s.mu.Unlock()

	st := Status{
		FFmpegFound: ffmpeg.Has(s.paths.BaseDir),
		ProxyOn:     proxyOn,
		ComputeType: s.hw.ComputeType,
		CUDA:        hardware.CUDAStatus(s.hw),
		Device:      device,
		Model:       model.Name,
		ModelReady:  models.IsReady(s.paths.ModelsDir, model),
		Downloading: downloading,
		Processing:  processing,
		Models:      models.List(s.paths.ModelsDir),
		Problems:    []string{},
	}

	switch device {
	case config.DeviceCPU:
		st.ActiveDevice = "CPU (forced)"
		st.Runtime = NoteCPUForced
	case config.DeviceGPU:
		st.ActiveDevice = "GPU (forced)"
		st.Runtime = NoteGPUForced
	default:
		if s.hw.HasCUDA() {
			st.ActiveDevice = "GPU (auto)"
		} else {
			st.ActiveDevice = "CPU (auto)"
		}
		st.Runtime = note
	}

	if !st.FFmpegFound {
		st.Problems = append(st.Problems, "FFmpeg missing")
	}
	if !st.ModelReady {
		st.Problems = append(st.Problems, fmt.Sprintf("Model %s not installed", model.Name))
	}
	if device == config.DeviceGPU && !s.hw.HasCUDA() {
		st.Problems = append(st.Problems, "GPU not detected")
	}
	st.Ready = len(st.Problems) == 0
	return st
}

// StatusLine renders the one-line system summary
func (st Status) StatusLine() string {
	ffmpegText := "MISSING"
	if st.FFmpegFound {
		ffmpegText = "FOUND"
	}
	proxyText := "OFF"
	if st.ProxyOn {
		proxyText = "ON"
	}
	return fmt.Sprintf("Compute: %s | FFmpeg: %s | Proxy: %s | Runtime: %s | CUDA: %s | Active: %s",
		strings.ToUpper(st.ComputeType), ffmpegText, proxyText, st.Runtime, st.CUDA, st.ActiveDevice)
}

// Message is the short readiness text under the status line
func (st Status) Message() string {
	switch {
	case st.Downloading:
		return "Downloading model..."
	case st.Processing:
		return "Processing..."
	case st.Ready:
		return "Ready to start"
	default:
		return "Not Ready - " + strings.Join(st.Problems, ", ")
	}
}

// Instructions explains the folder workflow
func (s *Service) Instructions() string {
	exts := make([]string, len(transcription.SupportedExtensions))
	for i, ext := range transcription.SupportedExtensions {
		exts[i] = strings.TrimPrefix(ext, ".")
	}
	return fmt.Sprintf("1. Put files in: %s\n"+
		"2. Pick a model (Green=Ready, Red=Missing).\n"+
		"3. Choose processing device (Auto/GPU/CPU).\n"+
		"4. Press START PROCESSING.\n"+
		"5. Results appear in: %s\n\n"+
		"Supported: %s\n\n"+
		"If model download is slow/stuck:\n"+
		"- check Proxy settings with Test Proxy,\n"+
		"- disable proxy and retry,\n"+
		"- use Manual Model Install.",
		s.paths.InputDir, s.paths.OutputDir, strings.Join(exts, ", "))
}
