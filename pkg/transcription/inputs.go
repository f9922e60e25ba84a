package transcription

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SupportedExtensions are the media types accepted from the input folder
var SupportedExtensions = []string{".mp4", ".mp3", ".wav", ".mkv", ".m4a", ".aac", ".flac", ".ogg"}

// IsSupported reports whether name has a supported media extension
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ListInputFiles returns the supported media files directly inside dir, sorted by name
func ListInputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsSupported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ResultPath is where the transcript of media is written
func ResultPath(outputDir, media string) string {
	return filepath.Join(outputDir, filepath.Base(media)+".txt")
}

// ExistingResults lists the media names whose transcript already exists
func ExistingResults(files []string, outputDir string) []string {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(ResultPath(outputDir, f)); err == nil {
			existing = append(existing, filepath.Base(f))
		}
	}
	return existing
}
