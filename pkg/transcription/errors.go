// Package transcription turns media files into timestamped text
package transcription

import (
	"errors"
)

// Common error types for the transcription package
var (
	// ErrExecutableNotFound indicates that no runtime executable could be found
	ErrExecutableNotFound = errors.New("transcription runtime executable not found")

	// ErrInvalidExecutablePath indicates that the configured executable does not exist or is not valid
	ErrInvalidExecutablePath = errors.New("invalid transcription runtime path")

	// ErrModelNotFound indicates that the model folder does not exist
	ErrModelNotFound = errors.New("model folder not found")

	// ErrTranscriptionFailed indicates that the runtime process failed
	ErrTranscriptionFailed = errors.New("transcription process failed")

	// ErrProbeFailed indicates the runtime could not load the model on the requested device
	ErrProbeFailed = errors.New("runtime probe failed")
)
