package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

// AppendErrorLog appends a timestamped block describing err to the error log
// at path and returns path. Write failures are logged and otherwise ignored so
// that reporting an error never produces a second one.
func AppendErrorLog(path, context string, err error) string {
	detail := "<nil>"
	if err != nil {
		detail = err.Error()
	}
	block := fmt.Sprintf("\n[%s] %s\n%s\n", time.Now().Format("2006-01-02 15:04:05"), context, detail)
	appendToFile(path, block)
	return path
}

// Recover must be deferred directly at the top of a worker goroutine. A panic
// is written with its stack to the error log at path and handed to onPanic as
// an error, and the goroutine returns normally.
func Recover(path string, onPanic func(err error)) {
	r := recover()
	if r == nil {
		return
	}
	WriteCrash(path, r, debug.Stack())
	if onPanic != nil {
		onPanic(fmt.Errorf("unexpected error: %v (details saved to %s)", r, path))
	}
}

// WriteCrash records a recovered panic value and stack trace.
func WriteCrash(path string, value interface{}, stack []byte) {
	block := fmt.Sprintf("\n[%s] panic: %v\n%s\n", time.Now().Format("2006-01-02 15:04:05"), value, stack)
	appendToFile(path, block)
	Error(CategoryApp, "Unexpected error, details saved to %s", path)
}

func appendToFile(path, text string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		Warning(CategorySystem, "Cannot create error log directory: %v", err)
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		Warning(CategorySystem, "Cannot open error log %s: %v", path, err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		Warning(CategorySystem, "Cannot write error log %s: %v", path, err)
	}
}
