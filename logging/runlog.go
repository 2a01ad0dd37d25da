package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultRunLogDir is where per-run log files are created unless configured otherwise.
const DefaultRunLogDir = "/tmp"

var runLog = NewLogger("")

// RunLog is the append-only file that mirrors every log line of one invocation.
type RunLog struct {
	Path string
	file *os.File
	prev io.Writer
}

// RunLogPath returns <dir>/<script>_<YYYYMMDD>_<HHMMSS>_<pid>.log. The script
// name is reduced to its base name without extension.
func RunLogPath(dir, script string, start time.Time, pid int) string {
	base := filepath.Base(script)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := fmt.Sprintf("%s_%s_%d.log", base, start.Format("20060102_150405"), pid)
	return filepath.Join(dir, name)
}

// SetupRunLog opens the run log for this process and mirrors all loggers to
// standard error and the file. On failure output stays on standard error.
func SetupRunLog(dir, script string) (*RunLog, error) {
	if dir == "" {
		dir = DefaultRunLogDir
	}
	path := RunLogPath(dir, script, now(), os.Getpid())

	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		runLog.Error("Failed to open log file %s, using stderr only: %v", path, err)
		return nil, fmt.Errorf("failed to open run log %s: %w", path, err)
	}

	prev := SetOutput(io.MultiWriter(os.Stderr, logFile))
	return &RunLog{Path: path, file: logFile, prev: prev}, nil
}

// Close restores the previous output and closes the file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	SetOutput(r.prev)
	err := r.file.Close()
	r.file = nil
	return err
}
