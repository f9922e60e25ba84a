// Package models manages the local speech-to-text model folders
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Common error types for the models package
var (
	// ErrUnknownModel indicates a name that is not in the catalog
	ErrUnknownModel = errors.New("unknown model")

	// ErrModelIncomplete indicates a model folder missing required files
	ErrModelIncomplete = errors.New("model downloaded but appears incomplete")

	// ErrSourceUnavailable indicates the model hub could not be reached
	ErrSourceUnavailable = errors.New("model source unavailable")

	// ErrDownloadInProgress indicates a second concurrent download request
	ErrDownloadInProgress = errors.New("a model download is already running")
)

// Info describes one downloadable model
type Info struct {
	Name        string  // display name, e.g. "Base"
	ID          string  // folder name below the models directory
	Repo        string  // hub repository holding the CTranslate2 weights
	Description string  // speed/accuracy hint
	SizeMB      float64 // rough download size, used to estimate progress
}

// Catalog lists the supported models from fastest to most accurate
var Catalog = []Info{
	{Name: "Tiny", ID: "tiny", Repo: "Systran/faster-whisper-tiny", Description: "Fastest | Low Acc", SizeMB: 80},
	{Name: "Base", ID: "base", Repo: "Systran/faster-whisper-base", Description: "Very Fast | Med Acc", SizeMB: 160},
	{Name: "Small", ID: "small", Repo: "Systran/faster-whisper-small", Description: "Fast | High Acc", SizeMB: 520},
	{Name: "Medium", ID: "medium", Repo: "Systran/faster-whisper-medium", Description: "Slow | Best Acc", SizeMB: 1700},
}

// RequiredFiles must all exist for a model folder to be usable
var RequiredFiles = []string{"config.json", "vocabulary.txt", "model.bin"}

// Lookup finds a catalog entry by display name or folder id, case-insensitively
func Lookup(name string) (Info, error) {
	for _, info := range Catalog {
		if strings.EqualFold(info.Name, name) || strings.EqualFold(info.ID, name) {
			return info, nil
		}
	}
	return Info{}, fmt.Errorf("%w: %s", ErrUnknownModel, name)
}

// Names returns the display names in catalog order
func Names() []string {
	names := make([]string, len(Catalog))
	for i, info := range Catalog {
		names[i] = info.Name
	}
	return names
}

// Path returns the folder holding the model's files
func Path(modelsDir string, info Info) string {
	return filepath.Join(modelsDir, info.ID)
}

// IsReady reports whether every required file is present
func IsReady(modelsDir string, info Info) bool {
	return len(MissingFiles(modelsDir, info)) == 0
}

// MissingFiles lists the required files not found in the model folder
func MissingFiles(modelsDir string, info Info) []string {
	dir := Path(modelsDir, info)
	var missing []string
	for _, name := range RequiredFiles {
		if st, err := os.Stat(filepath.Join(dir, name)); err != nil || st.IsDir() {
			missing = append(missing, name)
		}
	}
	return missing
}

// Status pairs a catalog entry with its local state
type Status struct {
	Info
	Path  string
	Ready bool
}

// List reports the local state of every catalog model
func List(modelsDir string) []Status {
	statuses := make([]Status, 0, len(Catalog))
	for _, info := range Catalog {
		statuses = append(statuses, Status{
			Info:  info,
			Path:  Path(modelsDir, info),
			Ready: IsReady(modelsDir, info),
		})
	}
	return statuses
}

// RepoURL is the human facing page of the model on the hub
func RepoURL(endpoint string, info Info) string {
	return strings.TrimRight(endpoint, "/") + "/" + info.Repo
}

// ManualInstallHelp explains how to install a model by hand
func ManualInstallHelp(modelsDir, endpoint string, info Info) string {
	return fmt.Sprintf("Model: %s\n"+
		"Download from:\n%s\n\n"+
		"How to install:\n"+
		"1) Download repository files (or clone).\n"+
		"2) Put files into folder:\n%s\n"+
		"3) Required files must exist:\n- %s\n"+
		"4) Click 'Refresh Models' in app.",
		info.Name, RepoURL(endpoint, info), Path(modelsDir, info), strings.Join(RequiredFiles, "\n- "))
}
