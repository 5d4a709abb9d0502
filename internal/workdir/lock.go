package workdir

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrLocked is returned when another run holds the working directory.
var ErrLocked = errors.New("working directory is locked by another run")

// Lock guards a working directory for the length of one run.
type Lock struct {
	path  string
	owner string
}

// Acquire creates the lock file exclusively, recording owner and pid.
func (d Dir) Acquire(owner string) (*Lock, error) {
	path := d.LockPath()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			holder, _ := d.LockHolder()
			return nil, fmt.Errorf("%w (held by %s)", ErrLocked, holder)
		}
		return nil, fmt.Errorf("create lock: %w", err)
	}

	_, werr := fmt.Fprintf(f, "%s %d\n", owner, os.Getpid())
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write lock: %w", errors.Join(werr, cerr))
	}
	return &Lock{path: path, owner: owner}, nil
}

// LockHolder returns the contents of an existing lock file.
func (d Dir) LockHolder() (string, error) {
	data, err := os.ReadFile(d.LockPath())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// BreakLock removes a lock left behind by a crashed run.
func (d Dir) BreakLock() error {
	return d.Remove(LockName)
}

// Release removes the lock file if it still belongs to this lock.
func (l *Lock) Release() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !strings.HasPrefix(string(data), l.owner+" ") {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clean removes the snapshot files and, unless keepLock is set, the lock.
// While the lock is held it refuses with ErrLocked unless force is set. It
// returns the names it removed.
func (d Dir) Clean(keepLock, force bool) ([]string, error) {
	if holder, err := d.LockHolder(); err == nil && !force {
		return nil, fmt.Errorf("%w (held by %s)", ErrLocked, holder)
	}

	names := []string{IndexName, SelectionName, ExportName}
	if !keepLock {
		names = append(names, LockName)
	}

	var removed []string
	for _, name := range names {
		if !d.Exists(name) {
			continue
		}
		if err := d.Remove(name); err != nil {
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}
