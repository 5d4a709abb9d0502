package main

import (
	"errors"
	"fmt"

	"github.com/Zuo-Peng/zo-export/internal/workdir"
	"github.com/spf13/cobra"
)

func cleanCmd() *cobra.Command {
	var keepLock, force bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove snapshot files and a stale run lock from the working directory",
		Long: `Removes index.json, select.json, export.json and run.lock. While run.lock is
held nothing is removed; pass --force once you are sure the run that took it
has crashed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir, err := workdir.Ensure(cfg.DataDir, cfg.WorkDirName)
			if err != nil {
				return err
			}

			removed, err := dir.Clean(keepLock, force)
			for _, name := range removed {
				fmt.Printf("  removed %s\n", dir.Path(name))
			}
			if errors.Is(err, workdir.ErrLocked) {
				return fmt.Errorf("an export may be running; use --force if it crashed (%w)", err)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Done. %d files removed from %s\n", len(removed), dir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepLock, "keep-lock", false, "Leave run.lock in place")
	cmd.Flags().BoolVar(&force, "force", false, "Clean even while run.lock is held")

	return cmd
}
