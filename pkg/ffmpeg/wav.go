package ffmpeg

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleRate of every WAV produced for transcription
const SampleRate = 16000

// WAVDuration reads the duration of a PCM WAV file from its header
func WAVDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%s is not a valid WAV file", path)
	}
	return dec.Duration()
}

// WriteSilence writes a 16 kHz mono 16-bit WAV of the given length
func WriteSilence(path string, length time.Duration) error {
	samples := int(length.Seconds() * SampleRate)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           make([]int, samples),
		SourceBitDepth: 16,
	}
	return writeWAV(path, buf)
}

func writeWAV(path string, buf *audio.IntBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}

	enc := wav.NewEncoder(f, buf.Format.SampleRate, buf.SourceBitDepth, buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return f.Close()
}
