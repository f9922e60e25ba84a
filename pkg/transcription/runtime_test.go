package transcription

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSegmentLine(t *testing.T) {
	tests := []struct {
		line  string
		ok    bool
		start float64
		end   float64
		text  string
	}{
		{"[00:00.000 --> 00:02.500]  Hello world", true, 0, 2.5, "Hello world"},
		{"[01:05.250 --> 01:09.000] Next", true, 65.25, 69, "Next"},
		{"[01:00:02.000 --> 01:00:03,500] With hours", true, 3602, 3603.5, "With hours"},
		{"[00:00.000 --> 00:01.000]", true, 0, 1, ""},
		{"Detected language 'en' with probability 0.98", false, 0, 0, ""},
		{"[ctranslate2] [thread 1234] info", false, 0, 0, ""},
		{"", false, 0, 0, ""},
	}

	for _, tt := range tests {
		seg, ok := parseSegmentLine(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		if !tt.ok {
			continue
		}
		assert.InDelta(t, tt.start, seg.Start, 1e-9, tt.line)
		assert.InDelta(t, tt.end, seg.End, 1e-9, tt.line)
		assert.Equal(t, tt.text, seg.Text)
	}
}

func TestDetectExecutableTypeFromName(t *testing.T) {
	assert.Equal(t, ExecutableTypeCTranslate2, detectExecutableType("/usr/bin/whisper-ctranslate2"))
	assert.Equal(t, ExecutableTypeXXL, detectExecutableType(`C:\tools\Faster-Whisper-XXL\faster-whisper-xxl.exe`))
}

func TestBuildArgs(t *testing.T) {
	req := Request{Audio: "a.wav", ModelDir: "/m/base", Device: "cuda", ComputeType: "float16", Language: "de", VADFilter: true}

	args := buildArgs(ExecutableTypeCTranslate2, req, "/tmp/out")
	assert.Equal(t, "a.wav", args[0])
	assert.Contains(t, args, "--model_directory")
	assert.Subset(t, args, []string{"--device", "cuda", "--compute_type", "float16", "--language", "de", "True"})

	req.Language = ""
	req.VADFilter = false
	args = buildArgs(ExecutableTypeXXL, req, "/tmp/out")
	assert.Contains(t, args, "--model")
	assert.NotContains(t, args, "--model_directory")
	assert.NotContains(t, args, "--language")
	assert.Contains(t, args, "False")
}

// fakeRuntime writes a shell script standing in for the runtime executable
func fakeRuntime(t *testing.T, body string) *ExecutableRuntime {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script runtime requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "whisper-ctranslate2")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))

	r, err := NewExecutableRuntime(path)
	require.NoError(t, err)
	r.TempDir = t.TempDir()
	return r
}

func TestExecutableRuntimeStreamsSegments(t *testing.T) {
	r := fakeRuntime(t, `echo "Detected language 'en'"
echo "[00:00.000 --> 00:01.500]  Hello there"
echo "[00:01.500 --> 00:04.000] General Kenobi"
`)
	assert.Equal(t, "whisper-ctranslate2", r.String())

	var segs []Segment
	err := r.Transcribe(context.Background(), Request{Audio: "x.wav", ModelDir: t.TempDir()}, func(s Segment) {
		segs = append(segs, s)
	})
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "Hello there", segs[0].Text)
	assert.InDelta(t, 4.0, segs[1].End, 1e-9)
}

func TestExecutableRuntimeFailureCarriesStderr(t *testing.T) {
	r := fakeRuntime(t, `echo "RuntimeError: Library cublas64_12.dll is not found" >&2
exit 1
`)
	err := r.Transcribe(context.Background(), Request{Audio: "x.wav", ModelDir: t.TempDir()}, nil)
	require.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.Contains(t, err.Error(), "cublas64_12.dll")
}

func TestExecutableRuntimeMissingModel(t *testing.T) {
	r := fakeRuntime(t, "exit 0\n")
	err := r.Transcribe(context.Background(), Request{Audio: "x.wav", ModelDir: filepath.Join(t.TempDir(), "nope")}, nil)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestProbe(t *testing.T) {
	ok := fakeRuntime(t, `test -f "$1" || exit 3
exit 0
`)
	assert.NoError(t, ok.Probe(context.Background(), t.TempDir(), "cuda", "float16"))

	bad := fakeRuntime(t, "echo 'CUDA driver version is insufficient' >&2\nexit 1\n")
	err := bad.Probe(context.Background(), t.TempDir(), "cuda", "float16")
	require.ErrorIs(t, err, ErrProbeFailed)
	assert.Contains(t, err.Error(), "cuda/float16")
}

func TestNewExecutableRuntimeInvalidPath(t *testing.T) {
	_, err := NewExecutableRuntime(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrInvalidExecutablePath)
}

func TestFindExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("execute bits are not used on windows")
	}
	t.Setenv("PATH", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	base := t.TempDir()
	_, err := FindExecutable("", base)
	assert.ErrorIs(t, err, ErrExecutableNotFound)

	path := filepath.Join(base, "runtime", "faster-whisper-xxl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))

	found, err := FindExecutable("", base)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	configured, err := FindExecutable(path, "")
	require.NoError(t, err)
	assert.Equal(t, path, configured)
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{limit: 5}
	b.Write([]byte("abc"))
	b.Write([]byte("defgh"))
	assert.Equal(t, "defgh", b.String())
}
