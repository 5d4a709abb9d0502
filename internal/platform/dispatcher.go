package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher locates the platform shim in the working directory and runs
// it for one stage at a time.
type Dispatcher struct {
	OS       OS
	ShimName string
	// Timeout bounds a single stage. Zero waits indefinitely.
	Timeout time.Duration
	Logger  zerolog.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func NewDispatcher(shimName string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		OS:       Current(),
		ShimName: shimName,
		Logger:   logger,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// ShimPath is where the shim is expected inside dir.
func (d *Dispatcher) ShimPath(dir string) (string, error) {
	switch d.OS {
	case Windows:
		return filepath.Join(dir, d.ShimName+".exe"), nil
	case Mac:
		return filepath.Join(dir, d.ShimName), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedOS, d.OS)
	}
}

// Resolve returns the shim path after checking it exists and can be run.
func (d *Dispatcher) Resolve(dir string) (string, error) {
	path, err := d.ShimPath(dir)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrImporterNotFound, path)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrImporterNotFound, path, err)
	}

	if !isExecutable(d.OS, info) {
		return "", fmt.Errorf("%w: %s", ErrImporterNotExecutable, path)
	}
	return path, nil
}

func isExecutable(o OS, info os.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	if o == Windows {
		// no permission bits; the .exe extension is what makes it runnable
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// Run invokes the shim for stage with dir as its working directory and
// blocks until it exits. Only success or failure is interpreted.
func (d *Dispatcher) Run(ctx context.Context, stage Stage, dir string) error {
	args, err := stage.Args()
	if err != nil {
		return err
	}

	path, err := d.Resolve(dir)
	if err != nil {
		return err
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	cmd.Stdin = d.Stdin
	cmd.Stdout = d.Stdout
	cmd.Stderr = d.Stderr

	d.Logger.Info().
		Str("stage", string(stage)).
		Str("shim", path).
		Strs("args", args).
		Msg("invoking importer")

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			code = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}

		d.Logger.Warn().
			Str("stage", string(stage)).
			Int("exit_code", code).
			Dur("elapsed", elapsed).
			Err(err).
			Msg("importer failed")
		return &ProcessError{Stage: stage, ExitCode: code, Err: err}
	}

	d.Logger.Info().
		Str("stage", string(stage)).
		Dur("elapsed", elapsed).
		Msg("importer finished")
	return nil
}
