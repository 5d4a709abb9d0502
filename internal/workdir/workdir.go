package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File names of the handshake contract.
const (
	IndexName     = "index.json"
	SelectionName = "select.json"
	ExportName    = "export.json"
	LockName      = "run.lock"
)

// Dir is the directory shared with the companion importer.
type Dir string

// Ensure returns <dataDir>/<name>, creating it when missing. It never
// removes anything already there.
func Ensure(dataDir, name string) (Dir, error) {
	if dataDir == "" {
		return "", errors.New("data directory not set")
	}
	path := filepath.Join(dataDir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}
	return Dir(path), nil
}

func (d Dir) String() string {
	return string(d)
}

func (d Dir) Path(name string) string {
	return filepath.Join(string(d), name)
}

func (d Dir) IndexPath() string     { return d.Path(IndexName) }
func (d Dir) SelectionPath() string { return d.Path(SelectionName) }
func (d Dir) ExportPath() string    { return d.Path(ExportName) }
func (d Dir) LockPath() string      { return d.Path(LockName) }

// WriteFile replaces name atomically: readers see either the old or the new
// contents, never a partial file.
func (d Dir) WriteFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(string(d), "."+name+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmpName, d.Path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Remove deletes name, ignoring a missing file.
func (d Dir) Remove(name string) error {
	if err := os.Remove(d.Path(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether name is present.
func (d Dir) Exists(name string) bool {
	_, err := os.Stat(d.Path(name))
	return err == nil
}
