package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeff-barlow-spady/mediascribe/config"
	"github.com/jeff-barlow-spady/mediascribe/pkg/ffmpeg"
	"github.com/jeff-barlow-spady/mediascribe/pkg/hardware"
	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
	"github.com/jeff-barlow-spady/mediascribe/pkg/models"
	"github.com/jeff-barlow-spady/mediascribe/pkg/transcription"
)

// ProcessHooks connect a batch run to the caller's UI. All hooks are optional;
// a nil Confirm declines overwriting existing results.
type ProcessHooks struct {
	// Confirm is asked whether existing results for names may be overwritten
	Confirm func(names []string) bool
	// Status receives human readable stage messages
	Status func(message string)
	// Progress receives per-file and per-segment events
	Progress transcription.ProgressFunc
}

// ProcessResult describes a finished batch
type ProcessResult struct {
	Files       int
	Device      string
	ComputeType string
	FellBack    bool
}

func (h ProcessHooks) status(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Info(logger.CategoryApp, "%s", msg)
	if h.Status != nil {
		h.Status(msg)
	}
}

// Process transcribes every supported file of the input folder with the
// selected model. GPU runs are probed first; a failing probe or a failing GPU
// batch falls back to CPU.
func (s *Service) Process(ctx context.Context, hooks ProcessHooks) (ProcessResult, error) {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return ProcessResult{}, ErrBusy
	}
	if s.downloading {
		s.mu.Unlock()
		return ProcessResult{}, models.ErrDownloadInProgress
	}
	s.processing = true
	model := s.model
	settings := s.settings
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	files, err := transcription.ListInputFiles(s.paths.InputDir)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("failed to read input folder: %w", err)
	}
	if len(files) == 0 {
		return ProcessResult{}, ErrNoInputFiles
	}
	hooks.status("Found %d file(s) in %s", len(files), s.paths.InputDir)

	if existing := transcription.ExistingResults(files, s.paths.OutputDir); len(existing) > 0 {
		if hooks.Confirm == nil || !hooks.Confirm(existing) {
			return ProcessResult{}, ErrCancelled
		}
	}

	if st := s.Status(); !st.Ready {
		return ProcessResult{}, fmt.Errorf("%w: %s", ErrNotReady, strings.Join(st.Problems, ", "))
	}

	runtime, err := s.resolveRuntime()
	if err != nil {
		return ProcessResult{}, err
	}
	batch, err := s.newBatch(runtime)
	if err != nil {
		return ProcessResult{}, err
	}

	hooks.status("Initializing model...")
	modelDir := models.Path(s.paths.ModelsDir, model)
	device, compute := hardware.DeviceCPU, hardware.ComputeInt8

	preferred := settings.Device
	if preferred == config.DeviceAuto {
		preferred = config.DeviceCPU
		if s.hw.HasCUDA() {
			preferred = config.DeviceGPU
		}
	}

	result := ProcessResult{Files: len(files)}
	if preferred == config.DeviceGPU {
		hooks.status("Probing GPU runtime...")
		if err := runtime.Probe(ctx, modelDir, hardware.DeviceCUDA, hardware.ComputeFloat16); err != nil {
			logger.Warning(logger.CategoryTranscription, "GPU probe failed: %v", err)
			s.setNote(NoteCPUFallback)
			result.FellBack = true
			hooks.status("GPU unavailable here, fallback to CPU")
		} else {
			device, compute = hardware.DeviceCUDA, hardware.ComputeFloat16
			s.setNote(NoteGPU)
		}
	} else {
		s.setNote(NoteCPU)
	}

	job := transcription.Job{
		Files:       files,
		OutputDir:   s.paths.OutputDir,
		ModelDir:    modelDir,
		Device:      device,
		ComputeType: compute,
		Language:    settings.Language,
		VADFilter:   settings.VADFilter,
	}

	err = s.runRecorded(ctx, batch, job, model.Name, hooks)
	if err != nil && device == hardware.DeviceCUDA && ctx.Err() == nil {
		logger.Warning(logger.CategoryTranscription, "GPU batch failed: %v", err)
		hooks.status("GPU failed in runtime, retrying on CPU...")
		s.setNote(NoteCPUFallbackAfter)
		result.FellBack = true

		job.Device, job.ComputeType = hardware.DeviceCPU, hardware.ComputeInt8
		err = s.runRecorded(ctx, batch, job, model.Name, hooks)
	}
	if err != nil {
		return result, err
	}

	result.Device, result.ComputeType = job.Device, job.ComputeType
	hooks.status("All files processed successfully")
	return result, nil
}

func (s *Service) setNote(note string) {
	s.mu.Lock()
	s.runtimeNote = note
	s.mu.Unlock()
}

// resolveRuntime returns the configured runtime or discovers the executable
func (s *Service) resolveRuntime() (transcription.Runtime, error) {
	s.mu.Lock()
	current, configured := s.runtime, s.settings.RuntimePath
	s.mu.Unlock()
	if current != nil {
		return current, nil
	}

	// Detection runs --help, so it must not hold the lock Status needs
	path, err := transcription.FindExecutable(configured, s.paths.BaseDir)
	if err != nil {
		return nil, err
	}
	runtime, err := transcription.NewExecutableRuntime(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runtime == nil {
		s.runtime = runtime
	}
	return s.runtime, nil
}

// RuntimeName describes the transcription runtime, resolving it if needed
func (s *Service) RuntimeName() string {
	runtime, err := s.resolveRuntime()
	if err != nil {
		return "not found"
	}
	if named, ok := runtime.(fmt.Stringer); ok {
		return named.String()
	}
	return "custom"
}

func (s *Service) newBatch(runtime transcription.Runtime) (*transcription.Batch, error) {
	extract := s.extract
	if extract == nil {
		ffmpegPath, err := ffmpeg.Locate(s.paths.BaseDir)
		if err != nil {
			return nil, err
		}
		extract = func(ctx context.Context, input, output string) error {
			return ffmpeg.ExtractAudio(ctx, ffmpegPath, input, output)
		}
	}
	return &transcription.Batch{Runtime: runtime, Extract: extract, Duration: s.duration}, nil
}

// runRecorded runs the batch and writes one history row per file
func (s *Service) runRecorded(ctx context.Context, batch *transcription.Batch, job transcription.Job, model string, hooks ProcessHooks) error {
	var runID string
	err := batch.Run(ctx, job, func(e transcription.Event) {
		switch e.Kind {
		case transcription.EventFileStart:
			hooks.status("[%d/%d] Processing %s", e.Index, e.Total, e.File)
			runID = s.recordStart(ctx, e.File, model, job.Device)
		case transcription.EventFileDone:
			hooks.status("[%d/%d] Done %s", e.Index, e.Total, e.File)
			s.recordFinish(runID, e.Output, nil)
			runID = ""
		}
		if hooks.Progress != nil {
			hooks.Progress(e)
		}
	})
	if err != nil && runID != "" {
		s.recordFinish(runID, "", err)
	}
	return err
}

func (s *Service) recordStart(ctx context.Context, file, model, device string) string {
	if s.history == nil {
		return ""
	}
	id, err := s.history.Start(ctx, file, model, device)
	if err != nil {
		logger.Warning(logger.CategoryApp, "Cannot record run: %v", err)
		return ""
	}
	return id
}

func (s *Service) recordFinish(id, output string, runErr error) {
	if s.history == nil || id == "" {
		return
	}
	// The run must be closed even when the batch context was cancelled
	if err := s.history.Finish(context.Background(), id, output, runErr); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warning(logger.CategoryApp, "Cannot record run result: %v", err)
	}
}
