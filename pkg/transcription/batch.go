package transcription

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
)

// Progress event kinds
const (
	EventFileStart = "file_start"
	EventSegment   = "segment"
	EventFileDone  = "file_done"
)

// Event reports batch progress. Overall is the completed fraction of the whole batch.
type Event struct {
	Kind    string
	File    string // base name of the media file
	Index   int    // 1-based
	Total   int
	Overall float64
	Output  string // transcript path, set on file_done
}

// ProgressFunc receives batch events
type ProgressFunc func(Event)

// Job is one batch run over a list of media files
type Job struct {
	Files       []string
	OutputDir   string
	ModelDir    string
	Device      string
	ComputeType string
	Language    string
	VADFilter   bool
}

// Batch transcribes files one after another
type Batch struct {
	Runtime Runtime
	// Extract converts a media file into a 16 kHz mono WAV
	Extract func(ctx context.Context, input, output string) error
	// Duration measures an extracted WAV
	Duration func(path string) (time.Duration, error)
	TempDir  string
}

// Run processes job.Files in order and stops at the first failure
func (b *Batch) Run(ctx context.Context, job Job, progress ProgressFunc) error {
	if progress == nil {
		progress = func(Event) {}
	}

	scratch, err := os.MkdirTemp(b.TempDir, "batch-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	total := len(job.Files)
	for i, file := range job.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		index := i + 1
		name := filepath.Base(file)

		progress(Event{Kind: EventFileStart, File: name, Index: index, Total: total, Overall: float64(i) / float64(total)})
		logger.Info(logger.CategoryTranscription, "[%d/%d] %s on %s/%s", index, total, name, job.Device, job.ComputeType)

		output, err := b.runFile(ctx, job, file, scratch, func(seg Segment, duration float64) {
			fileProgress := math.Min(seg.End/duration, 1)
			progress(Event{
				Kind:    EventSegment,
				File:    name,
				Index:   index,
				Total:   total,
				Overall: (float64(i) + fileProgress) / float64(total),
			})
		})
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		progress(Event{Kind: EventFileDone, File: name, Index: index, Total: total, Overall: float64(index) / float64(total), Output: output})
	}
	return nil
}

func (b *Batch) runFile(ctx context.Context, job Job, file, scratch string, onSegment func(Segment, float64)) (string, error) {
	wav := filepath.Join(scratch, "audio.wav")
	defer os.Remove(wav)

	if err := b.Extract(ctx, file, wav); err != nil {
		return "", err
	}

	duration := 1e-6
	if d, err := b.Duration(wav); err != nil {
		logger.Warning(logger.CategoryTranscription, "Cannot measure %s: %v", filepath.Base(file), err)
	} else if d.Seconds() > duration {
		duration = d.Seconds()
	}

	output := ResultPath(job.OutputDir, file)
	partial := output + ".part"
	f, err := os.Create(partial)
	if err != nil {
		return "", fmt.Errorf("failed to create result file: %w", err)
	}
	w := bufio.NewWriter(f)

	var writeErr error
	req := Request{
		Audio:       wav,
		ModelDir:    job.ModelDir,
		Device:      job.Device,
		ComputeType: job.ComputeType,
		Language:    job.Language,
		VADFilter:   job.VADFilter,
	}
	err = b.Runtime.Transcribe(ctx, req, func(seg Segment) {
		if writeErr == nil {
			_, writeErr = fmt.Fprintf(w, "[%ds] %s\n", int(seg.Start), strings.TrimSpace(seg.Text))
		}
		onSegment(seg, duration)
	})
	if err == nil {
		err = writeErr
	}
	if err == nil {
		err = w.Flush()
	}
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partial)
		return "", err
	}

	if err := os.Rename(partial, output); err != nil {
		os.Remove(partial)
		return "", err
	}
	return output, nil
}
