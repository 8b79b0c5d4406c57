// Package lock guards the daemon's local state (the SQLite engram index and
// the calibration JSON files) against a second membria-core process on the
// same machine: both stores assume a single local writer (§5), so a second
// instance must fail fast at startup instead of corrupting them.
package lock

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Lock is a held single-instance lock. Keep it for the process lifetime and
// call Release on shutdown.
type Lock struct {
	file *os.File
	log  *slog.Logger
}

// Acquire takes an exclusive, non-blocking flock on path and records this
// process's PID in the file. When the lock is already held, the error names
// the holding PID (read back from the file) so an operator can tell a stale
// lock from a live second instance.
func Acquire(path string, log *slog.Logger) (*Lock, error) {
	if log == nil {
		log = slog.Default()
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("lock: open %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder := holderPID(f)
		f.Close()
		if holder > 0 {
			return nil, fmt.Errorf("lock: %s held by pid %d: another membria-core instance is running", path, holder)
		}
		return nil, fmt.Errorf("lock: %s: another membria-core instance is running", path)
	}

	pid := os.Getpid()
	if err := stampPID(f, pid); err != nil {
		log.Warn("could not record pid in lock file", "path", path, "error", err)
	}

	log.Info("instance lock acquired", "path", path, "pid", pid)
	return &Lock{file: f, log: log}, nil
}

// Release drops the lock and removes the lock file. Safe on a nil receiver
// and safe to call more than once.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	path := l.file.Name()
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	os.Remove(path)
	l.file = nil
	l.log.Info("instance lock released", "path", path)
}

// holderPID reads the PID the current holder stamped into the lock file,
// or 0 when the file is empty or unreadable.
func holderPID(f *os.File) int {
	if _, err := f.Seek(0, 0); err != nil {
		return 0
	}
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return 0
	}
	return pid
}

func stampPID(f *os.File, pid int) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f, "%d\n", pid)
	return err
}
