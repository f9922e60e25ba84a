package transcription

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
)

// executableNames are the runtime binaries searched for, most preferred first
var executableNames = []string{"whisper-ctranslate2", "faster-whisper-xxl", "faster-whisper"}

// FindExecutable resolves the runtime binary. An explicit path wins; then PATH;
// then baseDir and the usual per-user install folders.
func FindExecutable(configured, baseDir string) (string, error) {
	if configured != "" {
		return ensureExecutablePath(configured)
	}

	names := executableNames
	if runtime.GOOS == "windows" {
		names = make([]string, len(executableNames))
		for i, name := range executableNames {
			names[i] = name + ".exe"
		}
	}

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			logger.Info(logger.CategoryTranscription, "Found runtime executable in PATH: %s", path)
			return path, nil
		}
	}

	for _, dir := range searchDirs(baseDir) {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if st, err := os.Stat(path); err == nil && !st.IsDir() && isExecutable(path) {
				logger.Info(logger.CategoryTranscription, "Found runtime executable: %s", path)
				return path, nil
			}
		}
	}

	return "", ErrExecutableNotFound
}

func searchDirs(baseDir string) []string {
	var dirs []string
	if baseDir != "" {
		dirs = append(dirs, baseDir, filepath.Join(baseDir, "runtime"), filepath.Join(baseDir, "Faster-Whisper-XXL"))
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		switch runtime.GOOS {
		case "windows":
			dirs = append(dirs, filepath.Join(homeDir, "AppData", "Local", "Programs", "Python", "Scripts"))
		default:
			dirs = append(dirs, filepath.Join(homeDir, ".local", "bin"))
		}
	}

	switch runtime.GOOS {
	case "windows":
	case "darwin":
		dirs = append(dirs, "/usr/local/bin", "/opt/homebrew/bin")
	default:
		dirs = append(dirs, "/usr/local/bin", "/usr/bin")
	}
	return dirs
}

// isExecutable checks if a file has execute permissions
func isExecutable(path string) bool {
	// On Windows, all files are executable
	if runtime.GOOS == "windows" {
		return true
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return (info.Mode().Perm() & 0111) != 0
}

// ensureExecutablePath validates an explicitly configured executable
func ensureExecutablePath(path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidExecutablePath, path)
	}
	if st.IsDir() || !isExecutable(path) {
		return "", fmt.Errorf("%w: not executable: %s", ErrInvalidExecutablePath, path)
	}
	return path, nil
}
