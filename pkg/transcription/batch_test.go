package transcription

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRuntime replays fixed segments for every request
type scriptedRuntime struct {
	segments []Segment
	err      error
	requests []Request
}

func (r *scriptedRuntime) Probe(ctx context.Context, modelDir, device, computeType string) error {
	return r.err
}

func (r *scriptedRuntime) Transcribe(ctx context.Context, req Request, onSegment func(Segment)) error {
	r.requests = append(r.requests, req)
	for _, s := range r.segments {
		onSegment(s)
	}
	return r.err
}

func newTestBatch(t *testing.T, rt Runtime, extracted *[]string) *Batch {
	return &Batch{
		Runtime: rt,
		Extract: func(ctx context.Context, input, output string) error {
			*extracted = append(*extracted, output)
			return os.WriteFile(output, []byte("wav"), 0644)
		},
		Duration: func(string) (time.Duration, error) { return 10 * time.Second, nil },
		TempDir:  t.TempDir(),
	}
}

func TestBatchWritesResultsAndProgress(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	files := []string{filepath.Join(in, "a.mp3"), filepath.Join(in, "b.mp4")}

	rt := &scriptedRuntime{segments: []Segment{
		{Start: 0.4, End: 5, Text: " first "},
		{Start: 5.9, End: 20, Text: "second"},
	}}
	var extracted []string
	b := newTestBatch(t, rt, &extracted)

	var events []Event
	err := b.Run(context.Background(), Job{
		Files: files, OutputDir: out, ModelDir: "/m", Device: "cpu", ComputeType: "int8", VADFilter: true,
	}, func(e Event) { events = append(events, e) })
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "a.mp3.txt"))
	require.NoError(t, err)
	assert.Equal(t, "[0s] first\n[5s] second\n", string(data))
	assert.FileExists(t, filepath.Join(out, "b.mp4.txt"))

	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []string{
		EventFileStart, EventSegment, EventSegment, EventFileDone,
		EventFileStart, EventSegment, EventSegment, EventFileDone,
	}, kinds)

	assert.InDelta(t, 0.25, events[1].Overall, 1e-9)
	assert.InDelta(t, 0.5, events[2].Overall, 1e-9, "segment progress is capped at the file end")
	assert.InDelta(t, 0.5, events[3].Overall, 1e-9)
	assert.Equal(t, filepath.Join(out, "a.mp3.txt"), events[3].Output)
	assert.InDelta(t, 1.0, events[7].Overall, 1e-9)

	require.Len(t, rt.requests, 2)
	assert.Equal(t, "int8", rt.requests[0].ComputeType)
	assert.True(t, rt.requests[0].VADFilter)

	for _, wav := range extracted {
		_, err := os.Stat(wav)
		assert.True(t, os.IsNotExist(err), "temporary audio must be removed")
	}
	leftovers, _ := os.ReadDir(b.TempDir)
	assert.Empty(t, leftovers)
}

func TestBatchStopsOnRuntimeError(t *testing.T) {
	out := t.TempDir()
	rt := &scriptedRuntime{segments: []Segment{{Start: 1, End: 2, Text: "x"}}, err: errors.New("CUDA out of memory")}
	var extracted []string
	b := newTestBatch(t, rt, &extracted)

	err := b.Run(context.Background(), Job{Files: []string{"a.wav", "b.wav"}, OutputDir: out}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.wav")
	assert.Contains(t, err.Error(), "out of memory")
	assert.Len(t, rt.requests, 1)

	entries, _ := os.ReadDir(out)
	assert.Empty(t, entries, "failed transcripts are not left behind")
}

func TestBatchZeroDurationDoesNotDivideByZero(t *testing.T) {
	rt := &scriptedRuntime{segments: []Segment{{Start: 0, End: 3, Text: "x"}}}
	var extracted []string
	b := newTestBatch(t, rt, &extracted)
	b.Duration = func(string) (time.Duration, error) { return 0, errors.New("bad header") }

	var last Event
	err := b.Run(context.Background(), Job{Files: []string{"a.wav"}, OutputDir: t.TempDir()}, func(e Event) {
		if e.Kind == EventSegment {
			last = e
		}
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, last.Overall, 1e-9)
}

func TestBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var extracted []string
	b := newTestBatch(t, &scriptedRuntime{}, &extracted)
	err := b.Run(ctx, Job{Files: []string{"a.wav"}, OutputDir: t.TempDir()}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, extracted)
}
