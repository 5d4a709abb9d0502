package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Zuo-Peng/zo-export/internal/catalog"
	"github.com/Zuo-Peng/zo-export/internal/handshake"
	"github.com/Zuo-Peng/zo-export/internal/workdir"
	"github.com/spf13/cobra"
)

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build index.json from the Zotero catalog without running the importer",
		Args:  cobra.NoArgs,
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

			fmt.Fprintf(os.Stderr, "Reading catalog...\n")
			fmt.Fprintf(os.Stderr, "  Database: %s\n", cfg.DBPath())

			stats, err := handshake.WriteIndexLocked(cmd.Context(), dir, repo)
			if errors.Is(err, workdir.ErrLocked) {
				return fmt.Errorf("an export is running, index.json was left alone (%w)", err)
			}
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			fmt.Fprintf(os.Stderr, "  Wrote %s\n", dir.IndexPath())
			return nil
		},
	}
}
