package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Zuo-Peng/zo-export/internal/catalog"
	"github.com/Zuo-Peng/zo-export/internal/config"
	"github.com/Zuo-Peng/zo-export/internal/handshake"
	"github.com/Zuo-Peng/zo-export/internal/log"
	"github.com/Zuo-Peng/zo-export/internal/platform"
	"github.com/Zuo-Peng/zo-export/internal/tui"
	"github.com/Zuo-Peng/zo-export/internal/workdir"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// logFileName receives log output while the progress view owns the terminal.
const logFileName = "zoexport.log"

func exportCmd() *cobra.Command {
	var force, plain, copyKey bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run the export handshake: index, select, export, import",
		Long: `Builds index.json from the Zotero catalog, lets the companion importer pick a
document, writes export.json for it and hands it back to the importer.

On a terminal a progress view is shown and logs go to zoexport.log in the
working directory; use --plain for log output only. The view steps aside
while the importer's select stage runs, so the importer can prompt on the
terminal. The import stage runs without terminal input or output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			repo, err := catalog.OpenSQLite(cfg.DBPath(), cfg.DataDir)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer repo.Close()

			dir, err := workdir.Ensure(cfg.DataDir, cfg.WorkDirName)
			if err != nil {
				return err
			}

			interactive := !plain && term.IsTerminal(int(os.Stdout.Fd()))
			if interactive {
				f, err := os.OpenFile(filepath.Join(dir.String(), logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				log.SetOutput(f)
				defer log.SetOutput(os.Stderr)
			}

			res, err := runExport(cmd.Context(), cfg, repo, force, interactive)
			if err != nil {
				return explain(err)
			}

			fmt.Printf("Exported %q (%d annotations) to the importer.\n", res.Title, res.Annotations)
			if copyKey && res.CitationKey != "" {
				if err := clipboard.WriteAll(res.CitationKey); err != nil {
					fmt.Println(res.CitationKey)
				} else {
					fmt.Printf("Copied to clipboard: %s\n", res.CitationKey)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Break a lock left by an earlier run")
	cmd.Flags().BoolVar(&plain, "plain", false, "No progress view, log to stderr")
	cmd.Flags().BoolVar(&copyKey, "copy-key", false, "Copy the exported document's citation key to the clipboard")

	return cmd
}

func runExport(ctx context.Context, cfg *config.Config, repo catalog.Repository, force, interactive bool) (*handshake.Result, error) {
	session, err := handshake.NewSession(cfg.DataDir, cfg.WorkDirName, log.Logger())
	if err != nil {
		return nil, err
	}
	session.Force = force

	dispatcher := platform.NewDispatcher(cfg.ShimName, session.Logger)
	dispatcher.Timeout = cfg.StageTimeout.Duration

	if !interactive {
		return handshake.RunExport(ctx, session, repo, dispatcher)
	}

	var res *handshake.Result
	steps := make([]string, 0, int(handshake.StateDone)+1)
	for st := handshake.StatePrepare; st <= handshake.StateDone; st++ {
		steps = append(steps, st.String())
	}

	err = tui.RunProgress(ctx, "zoexport "+session.ID.String()[:8], steps,
		func(ctx context.Context, enter func(int), suspend func(func() error) error) error {
			session.OnState = func(st handshake.State) { enter(int(st)) }
			var runErr error
			res, runErr = handshake.RunExport(ctx, session, repo, newAttachedInvoker(dispatcher, suspend))
			return runErr
		})
	return res, err
}

// attachedInvoker runs the select stage, which may prompt, with the
// terminal handed over to the shim. Other stages run without stdio so they
// cannot draw over the progress view.
type attachedInvoker struct {
	attached *platform.Dispatcher
	detached *platform.Dispatcher
	suspend  func(func() error) error
}

func newAttachedInvoker(d *platform.Dispatcher, suspend func(func() error) error) *attachedInvoker {
	detached := *d
	detached.Stdin = nil
	detached.Stdout = io.Discard
	detached.Stderr = io.Discard
	return &attachedInvoker{attached: d, detached: &detached, suspend: suspend}
}

func (a *attachedInvoker) Run(ctx context.Context, stage platform.Stage, dir string) error {
	if stage != platform.StageSelect {
		return a.detached.Run(ctx, stage, dir)
	}
	return a.suspend(func() error {
		return a.attached.Run(ctx, stage, dir)
	})
}

// explain turns a failed run into the message shown to the user. Only a
// missing importer and an unsupported OS get specific wording.
func explain(err error) error {
	var herr *handshake.Error
	if errors.As(err, &herr) {
		log.Error().Str("kind", herr.Kind.String()).Str("state", herr.State.String()).Err(herr.Err).Msg("export failed")
	}

	switch {
	case errors.Is(err, platform.ErrImporterNotFound):
		return fmt.Errorf("the importer is not installed: place the shim in the working directory (%w)", err)
	case errors.Is(err, platform.ErrUnsupportedOS):
		return fmt.Errorf("exporting is only supported on Windows and macOS (%w)", err)
	case errors.Is(err, workdir.ErrLocked):
		return fmt.Errorf("another export is running; use --force or 'zoexport clean --force' if it crashed (%w)", err)
	default:
		return fmt.Errorf("export failed: %w", err)
	}
}
