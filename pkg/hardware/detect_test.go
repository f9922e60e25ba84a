package hardware

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeRunner(out string, err error) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(out), err
	}
}

func writeCard(t *testing.T, root, card, vendor, device string) {
	t.Helper()
	dir := filepath.Join(root, card, "device")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor"), []byte(vendor+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "device"), []byte(device+"\n"), 0644))
}

func TestDetectNvidiaSMI(t *testing.T) {
	d := &Detector{Run: fakeRunner("NVIDIA GeForce RTX 3060\nNVIDIA GeForce RTX 3060\n\n", nil)}

	info := d.Detect(context.Background())
	assert.Equal(t, DeviceCUDA, info.Device)
	assert.Equal(t, ComputeFloat16, info.ComputeType)
	assert.Equal(t, 2, info.GPUCount)
	assert.Equal(t, "GPU (CUDA x2)", info.Name)
	assert.Equal(t, "ON (x2)", CUDAStatus(info))
}

func TestDetectFallsBackToSysfs(t *testing.T) {
	root := t.TempDir()
	writeCard(t, root, "card0", "0x8086", "0x56a5")
	writeCard(t, root, "card1", "0x10de", "0x2504")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "card1-DP-1"), 0755))

	d := &Detector{Run: fakeRunner("", errors.New("not found")), SysfsDir: root}

	info := d.Detect(context.Background())
	assert.True(t, info.HasCUDA())
	assert.Equal(t, 1, info.GPUCount)
	assert.Equal(t, "GPU (NVIDIA 2504)", info.Name)
	assert.Equal(t, "ON (GPU (NVIDIA 2504))", CUDAStatus(info))
}

func TestDetectCPUFallback(t *testing.T) {
	root := t.TempDir()
	writeCard(t, root, "card0", "0x1002", "0x73bf")

	d := &Detector{Run: fakeRunner("   \n", nil), SysfsDir: root}

	info := d.Detect(context.Background())
	assert.Equal(t, CPUInfo(), info)
	assert.False(t, info.HasCUDA())
	assert.Equal(t, "OFF", CUDAStatus(info))
}

func TestDetectWithoutProbes(t *testing.T) {
	d := &Detector{}
	assert.Equal(t, CPUInfo(), d.Detect(context.Background()))
}
