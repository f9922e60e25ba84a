package transcription

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Segment is one timed piece of recognised speech, times in seconds
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Request describes one runtime invocation
type Request struct {
	Audio       string // 16 kHz mono WAV
	ModelDir    string
	Device      string // "cuda" or "cpu"
	ComputeType string // "float16" or "int8"
	Language    string // empty for auto-detect
	VADFilter   bool
}

// Runtime is the opaque speech-to-text engine
type Runtime interface {
	// Probe loads the model on device with compute type and fails if that is impossible
	Probe(ctx context.Context, modelDir, device, computeType string) error

	// Transcribe streams segments of req.Audio to onSegment in order
	Transcribe(ctx context.Context, req Request, onSegment func(Segment)) error
}

var segmentLine = regexp.MustCompile(`^\s*\[((?:\d+:)?\d{1,2}:\d{2}(?:[.,]\d+)?)\s*-->\s*((?:\d+:)?\d{1,2}:\d{2}(?:[.,]\d+)?)\]\s?(.*)$`)

// parseSegmentLine parses "[mm:ss.mmm --> mm:ss.mmm] text", hours optional
func parseSegmentLine(line string) (Segment, bool) {
	m := segmentLine.FindStringSubmatch(line)
	if m == nil {
		return Segment{}, false
	}
	start, err := parseTimestamp(m[1])
	if err != nil {
		return Segment{}, false
	}
	end, err := parseTimestamp(m[2])
	if err != nil {
		return Segment{}, false
	}
	return Segment{Start: start, End: end, Text: strings.TrimSpace(m[3])}, true
}

// parseTimestamp converts [hh:]mm:ss.fff into seconds
func parseTimestamp(ts string) (float64, error) {
	parts := strings.Split(strings.ReplaceAll(ts, ",", "."), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}

	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("bad timestamp %q: %w", ts, err)
		}
		if i < len(parts)-1 {
			total = (total + v) * 60
		} else {
			total += v
		}
	}
	return total, nil
}
