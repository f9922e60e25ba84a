// Package hardware decides which compute device transcription should run on
package hardware

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
)

// Device names understood by the model runtime
const (
	DeviceCUDA = "cuda"
	DeviceCPU  = "cpu"
)

// Compute types paired with each device
const (
	ComputeFloat16 = "float16"
	ComputeInt8    = "int8"
)

const nvidiaVendorID = "0x10de"

// Info is the detection result
type Info struct {
	Device      string `json:"device"`
	ComputeType string `json:"compute_type"`
	Name        string `json:"name"`
	GPUCount    int    `json:"gpu_count"`
}

// HasCUDA reports whether an NVIDIA GPU was found
func (i Info) HasCUDA() bool {
	return i.Device == DeviceCUDA
}

// CPUInfo is the fallback used when no GPU is found
func CPUInfo() Info {
	return Info{Device: DeviceCPU, ComputeType: ComputeInt8, Name: "CPU"}
}

// Runner executes a command and returns its stdout
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs real processes
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Detector probes for CUDA capable hardware
type Detector struct {
	Run      Runner
	SysfsDir string // defaults to /sys/class/drm
}

// NewDetector returns a detector backed by real processes and sysfs
func NewDetector() *Detector {
	return &Detector{Run: ExecRunner, SysfsDir: "/sys/class/drm"}
}

var (
	cached     Info
	detectOnce sync.Once
)

// Detect probes once per process and caches the result
func Detect(ctx context.Context) Info {
	detectOnce.Do(func() {
		cached = NewDetector().Detect(ctx)
		logger.Info(logger.CategoryHardware, "Detected device=%s compute=%s name=%q",
			cached.Device, cached.ComputeType, cached.Name)
	})
	return cached
}

// Detect never fails: every probe error falls through to the next probe and
// finally to the CPU.
func (d *Detector) Detect(ctx context.Context) Info {
	if info, ok := d.probeNvidiaSMI(ctx); ok {
		return info
	}
	if info, ok := d.probeSysfs(); ok {
		return info
	}
	return CPUInfo()
}

func (d *Detector) probeNvidiaSMI(ctx context.Context) (Info, bool) {
	if d.Run == nil {
		return Info{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := d.Run(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader")
	if err != nil {
		logger.Debug(logger.CategoryHardware, "nvidia-smi probe failed: %v", err)
		return Info{}, false
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return Info{}, false
	}

	return Info{
		Device:      DeviceCUDA,
		ComputeType: ComputeFloat16,
		Name:        fmt.Sprintf("GPU (CUDA x%d)", len(names)),
		GPUCount:    len(names),
	}, true
}

// probeSysfs finds NVIDIA cards on Linux when nvidia-smi is not on PATH
func (d *Detector) probeSysfs() (Info, bool) {
	if d.SysfsDir == "" {
		return Info{}, false
	}
	cards, err := filepath.Glob(filepath.Join(d.SysfsDir, "card[0-9]*"))
	if err != nil {
		return Info{}, false
	}

	count := 0
	deviceID := ""
	for _, card := range cards {
		// Skip connector nodes (cardN-DP-1)
		if strings.Contains(filepath.Base(card), "-") {
			continue
		}
		vendor, err := readSysfs(filepath.Join(card, "device", "vendor"))
		if err != nil || !strings.EqualFold(vendor, nvidiaVendorID) {
			continue
		}
		count++
		if deviceID == "" {
			deviceID, _ = readSysfs(filepath.Join(card, "device", "device"))
		}
	}
	if count == 0 {
		return Info{}, false
	}

	name := "GPU (NVIDIA)"
	if deviceID != "" {
		name = fmt.Sprintf("GPU (NVIDIA %s)", strings.TrimPrefix(deviceID, "0x"))
	}
	return Info{Device: DeviceCUDA, ComputeType: ComputeFloat16, Name: name, GPUCount: count}, true
}

func readSysfs(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// CUDAStatus renders the CUDA part of the status line
func CUDAStatus(info Info) string {
	if !info.HasCUDA() {
		return "OFF"
	}
	if idx := strings.Index(info.Name, "CUDA "); idx >= 0 {
		return "ON (" + strings.TrimSuffix(info.Name[idx+len("CUDA "):], ")") + ")"
	}
	return "ON (" + info.Name + ")"
}
