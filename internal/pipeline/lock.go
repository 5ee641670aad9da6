package pipeline

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrLocked means another invocation holds the lock file.
var ErrLocked = errors.New("another run is already in progress")

// fileLock is an advisory lock backed by an O_EXCL-created file holding the
// owner pid. It guards against two concurrent invocations hammering the
// same quota and database, not against crashes: a stale file after a crash
// must be removed by the operator.
type fileLock struct {
	path string
}

func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			pid, readErr := os.ReadFile(path)
			if readErr == nil && len(pid) > 0 {
				return nil, fmt.Errorf("%w (pid %s holds %s)", ErrLocked, string(pid), path)
			}
			return nil, fmt.Errorf("%w (%s exists)", ErrLocked, path)
		}
		return nil, fmt.Errorf("create lock file %s: %w", path, err)
	}

	_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write lock file %s: %w", path, errors.Join(werr, cerr))
	}

	return &fileLock{path: path}, nil
}

func (l *fileLock) release() error {
	return os.Remove(l.path)
}
