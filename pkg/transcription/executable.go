package transcription

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jeff-barlow-spady/mediascribe/pkg/ffmpeg"
	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
)

// ExecutableType represents the flavour of the command line runtime
type ExecutableType int

const (
	ExecutableTypeUnknown ExecutableType = iota
	// ExecutableTypeCTranslate2 is whisper-ctranslate2
	ExecutableTypeCTranslate2
	// ExecutableTypeXXL is the standalone faster-whisper-xxl build
	ExecutableTypeXXL
)

func (t ExecutableType) String() string {
	switch t {
	case ExecutableTypeCTranslate2:
		return "whisper-ctranslate2"
	case ExecutableTypeXXL:
		return "faster-whisper-xxl"
	default:
		return "unknown"
	}
}

// helpTimeout bounds the --help call used to identify an executable
const helpTimeout = 10 * time.Second

// detectExecutableType determines the flavour from the file name, then from --help
func detectExecutableType(execPath string) ExecutableType {
	execName := strings.ToLower(filepath.Base(execPath))

	switch {
	case strings.Contains(execName, "ctranslate2"):
		return ExecutableTypeCTranslate2
	case strings.Contains(execName, "xxl") || strings.Contains(execName, "faster-whisper"):
		return ExecutableTypeXXL
	}

	ctx, cancel := context.WithTimeout(context.Background(), helpTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, execPath, "--help").CombinedOutput()
	if err == nil {
		outputStr := strings.ToLower(string(output))
		switch {
		case strings.Contains(outputStr, "--model_directory"):
			return ExecutableTypeCTranslate2
		case strings.Contains(outputStr, "faster-whisper-xxl") || strings.Contains(outputStr, "--model_dir"):
			return ExecutableTypeXXL
		}
	}

	logger.Info(logger.CategoryTranscription, "Could not determine runtime type for %s, defaulting to whisper-ctranslate2 style", execPath)
	return ExecutableTypeCTranslate2
}

// ExecutableRuntime runs a faster-whisper command line runtime per file
type ExecutableRuntime struct {
	Path    string
	Type    ExecutableType
	TempDir string
}

// NewExecutableRuntime wraps the executable at path, detecting its flavour
func NewExecutableRuntime(path string) (*ExecutableRuntime, error) {
	path, err := ensureExecutablePath(path)
	if err != nil {
		return nil, err
	}
	r := &ExecutableRuntime{Path: path, Type: detectExecutableType(path)}
	logger.Info(logger.CategoryTranscription, "Using %s runtime at %s", r.Type, path)
	return r, nil
}

// String is shown in the status bar
func (r *ExecutableRuntime) String() string {
	return r.Type.String()
}

// buildArgs returns the command line for one transcription run
func buildArgs(execType ExecutableType, req Request, outputDir string) []string {
	vad := "False"
	if req.VADFilter {
		vad = "True"
	}

	args := []string{req.Audio}
	switch execType {
	case ExecutableTypeXXL:
		args = append(args, "--model", req.ModelDir)
	default:
		args = append(args, "--model_directory", req.ModelDir)
	}
	args = append(args,
		"--device", req.Device,
		"--compute_type", req.ComputeType,
		"--vad_filter", vad,
		"--output_dir", outputDir,
		"--output_format", "txt",
		"--verbose", "True",
	)

	if req.Language != "" {
		args = append(args, "--language", req.Language)
	}
	return args
}

// Transcribe implements Runtime
func (r *ExecutableRuntime) Transcribe(ctx context.Context, req Request, onSegment func(Segment)) error {
	if st, err := os.Stat(req.ModelDir); err != nil || !st.IsDir() {
		return fmt.Errorf("%w: %s", ErrModelNotFound, req.ModelDir)
	}

	scratch, err := os.MkdirTemp(r.TempDir, "runtime-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create scratch dir: %v", ErrTranscriptionFailed, err)
	}
	defer os.RemoveAll(scratch)

	args := buildArgs(r.Type, req, scratch)
	logger.Debug(logger.CategoryTranscription, "Executing: %s %v", r.Path, args)

	cmd := exec.CommandContext(ctx, r.Path, args...)
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8", "PYTHONUNBUFFERED=1")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: failed to create stdout pipe: %v", ErrTranscriptionFailed, err)
	}
	stderr := &tailBuffer{limit: 2048}
	cmd.Stderr = io.MultiWriter(stderr, logger.GetStandardLogWriter(logger.LevelDebug, logger.CategoryTranscription))

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: failed to start process: %v", ErrTranscriptionFailed, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		seg, ok := parseSegmentLine(line)
		if !ok {
			logger.Debug(logger.CategoryTranscription, "runtime: %s", line)
			continue
		}
		if onSegment != nil {
			onSegment(seg)
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Drain so the process is not blocked on a full pipe
		io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: process exited with error: %v: %s", ErrTranscriptionFailed, err, stderr.String())
	}
	if scanErr != nil {
		return fmt.Errorf("%w: error reading output: %v", ErrTranscriptionFailed, scanErr)
	}
	return nil
}

// Probe implements Runtime by transcribing one second of silence
func (r *ExecutableRuntime) Probe(ctx context.Context, modelDir, device, computeType string) error {
	dir, err := os.MkdirTemp(r.TempDir, "probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	defer os.RemoveAll(dir)

	silence := filepath.Join(dir, "silence.wav")
	if err := ffmpeg.WriteSilence(silence, time.Second); err != nil {
		return fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	req := Request{Audio: silence, ModelDir: modelDir, Device: device, ComputeType: computeType}
	if err := r.Transcribe(ctx, req, nil); err != nil {
		return fmt.Errorf("%w on %s/%s: %v", ErrProbeFailed, device, computeType, err)
	}
	return nil
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
