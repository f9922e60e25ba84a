package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the directory that holds models, inputs and results.
const HomeEnv = "MEDIASCRIBE_HOME"

// AppPaths holds every location the application reads or writes
type AppPaths struct {
	BaseDir      string
	ModelsDir    string
	InputDir     string
	OutputDir    string
	ConfigFile   string // proxy_config.json
	SettingsFile string // settings.yaml
	HistoryFile  string // history.db
	ErrorLog     string // error.log
}

// GetPaths resolves the base directory and makes sure the working folders exist.
// The base directory is $MEDIASCRIBE_HOME when set, otherwise the directory
// holding the executable, so a portable install keeps everything side by side.
func GetPaths() (AppPaths, error) {
	if home := strings.TrimSpace(os.Getenv(HomeEnv)); home != "" {
		return GetPathsAt(home)
	}

	exe, err := os.Executable()
	if err != nil {
		return AppPaths{}, fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return GetPathsAt(filepath.Dir(exe))
}

// GetPathsAt builds the layout below baseDir and creates the working folders
func GetPathsAt(baseDir string) (AppPaths, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return AppPaths{}, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	paths := AppPaths{
		BaseDir:      abs,
		ModelsDir:    filepath.Join(abs, "models"),
		InputDir:     filepath.Join(abs, "input_files"),
		OutputDir:    filepath.Join(abs, "results"),
		ConfigFile:   filepath.Join(abs, "proxy_config.json"),
		SettingsFile: filepath.Join(abs, "settings.yaml"),
		HistoryFile:  filepath.Join(abs, "history.db"),
		ErrorLog:     filepath.Join(abs, "error.log"),
	}

	for _, dir := range []string{paths.ModelsDir, paths.InputDir, paths.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return AppPaths{}, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	return paths, nil
}

// SetupRuntimePaths prepends baseDir to PATH so binaries dropped next to the
// executable (ffmpeg, the model runtime) are found without a system install.
func SetupRuntimePaths(baseDir string) {
	current := os.Getenv("PATH")
	for _, entry := range filepath.SplitList(current) {
		if entry == baseDir {
			return
		}
	}
	if current == "" {
		os.Setenv("PATH", baseDir)
		return
	}
	os.Setenv("PATH", baseDir+string(os.PathListSeparator)+current)
}
