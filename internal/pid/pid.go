package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/daviscap/internal/errors"
)

const (
	pidFile     = "daviscap.pid"
	pidFilePerm = 0o600
)

// DefaultPath returns the PID file location used when none is configured.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write records the current process ID at path. It fails with
// ErrAlreadyRunning if path names a process that is still alive.
func Write(path string) error {
	errFactory := errors.New()

	if running, pid := alive(path); running {
		return errFactory.WithData(errors.ErrAlreadyRunning, struct {
			Path string
			PID  int
		}{
			Path: path,
			PID:  pid,
		})
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), pidFilePerm); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// alive reports whether the PID stored at path belongs to a live process
// other than this one. Unreadable or stale files count as not running.
func alive(path string) (bool, int) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false, 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}

	// EPERM still proves the process exists.
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM), pid
}

// Remove removes the PID file.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}
