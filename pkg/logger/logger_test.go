package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Initialize()
	SetOutput(&buf)
	EnableColors(false)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		EnableColors(true)
		SetLevel(LevelInfo)
		SuppressRuntimeNoise(false)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelWarning)

	Info(CategoryApp, "hidden %d", 1)
	Warning(CategoryFFmpeg, "shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Info message should be filtered at warning level, got %q", out)
	}
	if !strings.Contains(out, "[WARN] [FFMPEG] shown 2") {
		t.Errorf("Expected warning line, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarning,
		"error":   LevelError,
		"off":     LevelSilent,
		"bogus":   LevelInfo,
	}
	for name, want := range cases {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestRuntimeNoiseSuppression(t *testing.T) {
	buf := captureOutput(t)
	SuppressRuntimeNoise(true)

	w := GetStandardLogWriter(LevelInfo, CategoryTranscription)
	w.Write([]byte("[ctranslate2] [thread 123] [warning] something\nreal line\n"))

	out := buf.String()
	if strings.Contains(out, "ctranslate2") {
		t.Errorf("Runtime noise should be suppressed, got %q", out)
	}
	if !strings.Contains(out, "real line") {
		t.Errorf("Expected regular line to pass through, got %q", out)
	}
}

func TestAppendErrorLog(t *testing.T) {
	captureOutput(t)
	path := filepath.Join(t.TempDir(), "error.log")

	got := AppendErrorLog(path, "Transcription failed", errors.New("cublas missing"))
	if got != path {
		t.Errorf("Expected returned path %s, got %s", path, got)
	}
	AppendErrorLog(path, "Second", nil)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read error log: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "Transcription failed\ncublas missing") {
		t.Errorf("Missing first block in %q", text)
	}
	if !strings.Contains(text, "Second\n<nil>") {
		t.Errorf("Missing second block in %q", text)
	}
}

func TestRecoverReportsPanic(t *testing.T) {
	captureOutput(t)
	path := filepath.Join(t.TempDir(), "error.log")

	var reported error
	func() {
		defer Recover(path, func(err error) { reported = err })
		panic("boom")
	}()

	if reported == nil || !strings.Contains(reported.Error(), "boom") {
		t.Fatalf("Expected panic to be reported, got %v", reported)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read error log: %v", err)
	}
	if !strings.Contains(string(data), "panic: boom") {
		t.Errorf("Expected crash block, got %q", string(data))
	}
}

func TestRecoverWithoutPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error.log")
	called := false
	func() {
		defer Recover(path, func(error) { called = true })
	}()
	if called {
		t.Error("onPanic called without a panic")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Error log should not exist, stat err %v", err)
	}
}
