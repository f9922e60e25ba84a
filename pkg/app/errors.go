package app

import (
	"strings"

	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
)

// FixHint maps an error to a one-line suggestion for the user
func FixHint(err error) string {
	if err == nil {
		return ""
	}
	text := strings.ToLower(err.Error())

	switch {
	case strings.Contains(text, "ffmpeg"):
		return "Fix: install FFmpeg and press Refresh."
	case containsAny(text, "cuda", "cublas", "cudnn"):
		return "Fix: switch to CPU mode or update NVIDIA driver/CUDA runtime."
	case containsAny(text, "out of memory", "std::bad_alloc"):
		return "Fix: use smaller model (Tiny/Base) or switch to CPU."
	case containsAny(text, "vocabulary", "config.json", "model.bin"):
		return "Fix: model folder is incomplete. Re-download model or use Manual Model Install."
	case containsAny(text, "permission denied", "access is denied"):
		return "Fix: close apps using files and run app with write access."
	case containsAny(text, "proxy", "socks", "connection"):
		return "Fix: open Proxy settings and run Test Proxy, or disable proxy and retry."
	case strings.Contains(text, "runtime executable not found"):
		return "Fix: install whisper-ctranslate2 (pip install whisper-ctranslate2) or set runtime_path in settings.yaml."
	default:
		return "Fix: check error.log and retry with CPU + Base model."
	}
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// ErrorReport is what the UI shows after a failed operation
type ErrorReport struct {
	Context string
	Err     error
	Hint    string
	LogPath string
}

// Text renders the report for a dialog or terminal
func (r ErrorReport) Text() string {
	return r.Context + "\n\nError: " + r.Err.Error() + "\n\n" + r.Hint + "\n\nFull details saved to:\n" + r.LogPath
}

// ReportError appends err to error.log and returns what the user should see
func (s *Service) ReportError(context string, err error) ErrorReport {
	return ErrorReport{
		Context: context,
		Err:     err,
		Hint:    FixHint(err),
		LogPath: logger.AppendErrorLog(s.paths.ErrorLog, context, err),
	}
}
