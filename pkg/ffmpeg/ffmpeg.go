// Package ffmpeg finds, installs and drives the external ffmpeg binary
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
)

// Common error types for the ffmpeg package
var (
	// ErrNotFound indicates ffmpeg is neither on PATH nor next to the executable
	ErrNotFound = errors.New("ffmpeg not found")

	// ErrNotZip indicates the downloaded archive is not a ZIP file
	ErrNotZip = errors.New("downloaded content is not a ZIP archive")

	// ErrBinaryNotInArchive indicates the archive has no bin/ffmpeg entry
	ErrBinaryNotInArchive = errors.New("ffmpeg binary not found in archive")

	// ErrPlatformNotSupported indicates there is no default archive for this OS
	ErrPlatformNotSupported = errors.New("no ffmpeg download known for this platform")

	// ErrExtractFailed indicates ffmpeg could not convert the input
	ErrExtractFailed = errors.New("ffmpeg audio extraction failed")
)

// BinaryName is the ffmpeg file name on this platform
func BinaryName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// Locate returns the ffmpeg on PATH, or the copy installed into baseDir
func Locate(baseDir string) (string, error) {
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path, nil
	}
	local := filepath.Join(baseDir, BinaryName())
	if st, err := os.Stat(local); err == nil && !st.IsDir() {
		return local, nil
	}
	return "", ErrNotFound
}

// Has reports whether ffmpeg can be located
func Has(baseDir string) bool {
	_, err := Locate(baseDir)
	return err == nil
}

// ExtractAudio converts any media file into 16 kHz mono PCM WAV, the format
// the model runtime decodes fastest.
func ExtractAudio(ctx context.Context, ffmpegPath, input, output string) error {
	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-y",
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		output,
	}
	logger.Debug(logger.CategoryFFmpeg, "Executing: %s %v", ffmpegPath, args)

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w for %s: %v: %s", ErrExtractFailed, filepath.Base(input), err, tail(stderr.String(), 400))
	}
	return nil
}

// tail keeps the last n bytes of s, trimmed
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
