package runstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	runLockDirName   = ".run.lock"
	runLockOwnerFile = "owner.json"
)

// RunLock guards an output root so two processes never share working directories.
type RunLock struct {
	lockDir string
}

type runLockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

// LockedError is returned when another process already holds the lock.
type LockedError struct {
	Dir       string
	PID       int
	CreatedAt string
	Hostname  string
}

func (e *LockedError) Error() string {
	if e.PID > 0 && e.CreatedAt != "" {
		return fmt.Sprintf("output directory is locked: %s (pid=%d created_at=%s host=%s)", e.Dir, e.PID, e.CreatedAt, e.Hostname)
	}
	return fmt.Sprintf("output directory is locked: %s", e.Dir)
}

func AcquireRunLock(dir string) (RunLock, error) {
	target := strings.TrimSpace(dir)
	if target == "" {
		return RunLock{}, fmt.Errorf("output directory is required")
	}
	if err := Mkdir(StateDir(target)); err != nil {
		return RunLock{}, err
	}

	lockDir := filepath.Join(StateDir(target), runLockDirName)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			locked := &LockedError{Dir: target}
			var owner runLockOwner
			if readErr := ReadJSON(filepath.Join(lockDir, runLockOwnerFile), &owner); readErr == nil {
				locked.PID = owner.PID
				locked.CreatedAt = owner.CreatedAt
				locked.Hostname = owner.Hostname
			}
			return RunLock{}, locked
		}
		return RunLock{}, fmt.Errorf("acquire run lock for %s: %w", target, err)
	}

	owner := runLockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	if err := WriteJSON(filepath.Join(lockDir, runLockOwnerFile), owner); err != nil {
		_ = os.RemoveAll(lockDir)
		return RunLock{}, fmt.Errorf("write run lock owner for %s: %w", target, err)
	}

	return RunLock{lockDir: lockDir}, nil
}

func (l RunLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, runLockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release run lock %s: %w", l.lockDir, err)
	}
	return nil
}

// BreakRunLock removes a lock left behind by a crashed process.
func BreakRunLock(dir string) error {
	lockDir := filepath.Join(StateDir(strings.TrimSpace(dir)), runLockDirName)
	if err := os.RemoveAll(lockDir); err != nil {
		return fmt.Errorf("remove run lock %s: %w", lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
