package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Zuo-Peng/zo-export/internal/catalog"
	"github.com/Zuo-Peng/zo-export/internal/config"
	"github.com/Zuo-Peng/zo-export/internal/log"
	"github.com/Zuo-Peng/zo-export/internal/platform"
	"github.com/Zuo-Peng/zo-export/internal/tui"
	"github.com/Zuo-Peng/zo-export/internal/workdir"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, catalog, working directory and importer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			w := os.Stdout

			tui.Section(w, "Config")
			if home, err := os.UserHomeDir(); err == nil {
				checkFile(filepath.Join(config.Dir(home), "config.toml"), "Config file")
			}
			tui.Field(w, "Work dir name", cfg.WorkDirName)
			tui.Field(w, "Shim name", cfg.ShimName)
			tui.Field(w, "Log level", cfg.LogLevel)
			if cfg.StageTimeout.Duration > 0 {
				tui.Field(w, "Stage timeout", cfg.StageTimeout.Duration)
			}

			fmt.Fprintln(w)
			tui.Section(w, "Zotero")
			checkDir("Data dir", cfg.DataDir)

			repo, err := catalog.OpenSQLite(cfg.DBPath(), cfg.DataDir)
			if err != nil {
				tui.Check(w, "Database", cfg.DBPath(), tui.StatusFail, err.Error())
			} else {
				defer repo.Close()
				tui.Check(w, "Database", cfg.DBPath(), tui.StatusOK, "")

				libs, err := repo.ListLibraries(cmd.Context())
				if err != nil {
					tui.Check(w, "Libraries", "-", tui.StatusFail, err.Error())
				}
				for _, lib := range libs {
					items, err := repo.ListItems(cmd.Context(), lib.ID)
					if err != nil {
						tui.Check(w, lib.Name, "-", tui.StatusFail, err.Error())
						continue
					}
					docs := 0
					for _, it := range items {
						if catalog.IsDocument(it.Kind) {
							docs++
						}
					}
					tui.Field(w, fmt.Sprintf("Library %d", lib.ID), fmt.Sprintf("%s: %d documents of %d items", lib.Name, docs, len(items)))
				}
			}

			fmt.Fprintln(w)
			tui.Section(w, "Importer")
			osKind := platform.Current()
			if osKind.Supported() {
				tui.Check(w, "Platform", osKind.String(), tui.StatusOK, "")
			} else {
				tui.Check(w, "Platform", osKind.String(), tui.StatusFail, "no importer for this platform")
			}

			dir, err := workdir.Ensure(cfg.DataDir, cfg.WorkDirName)
			if err != nil {
				tui.Check(w, "Working dir", filepath.Join(cfg.DataDir, cfg.WorkDirName), tui.StatusFail, err.Error())
				return nil
			}
			checkDir("Working dir", dir.String())

			d := platform.NewDispatcher(cfg.ShimName, log.Logger())
			shim, _ := d.ShimPath(dir.String())
			switch _, err := d.Resolve(dir.String()); {
			case err == nil:
				tui.Check(w, "Shim", shim, tui.StatusOK, "")
			case errors.Is(err, platform.ErrUnsupportedOS):
				tui.Check(w, "Shim", "-", tui.StatusWarn, "not checked")
			case errors.Is(err, platform.ErrImporterNotExecutable):
				tui.Check(w, "Shim", shim, tui.StatusFail, "not executable")
			default:
				tui.Check(w, "Shim", shim, tui.StatusFail, "not found")
			}

			if holder, err := dir.LockHolder(); err == nil {
				tui.Check(w, "Lock", holder, tui.StatusWarn, "run 'zoexport clean --force' if no export is running")
			} else {
				tui.Check(w, "Lock", "free", tui.StatusOK, "")
			}
			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		tui.Check(os.Stdout, name, path, tui.StatusFail, "not found")
	} else if !info.IsDir() {
		tui.Check(os.Stdout, name, path, tui.StatusFail, "not a directory")
	} else {
		tui.Check(os.Stdout, name, path, tui.StatusOK, "")
	}
}

func checkFile(path, name string) {
	if _, err := os.Stat(path); err != nil {
		tui.Check(os.Stdout, name, path, tui.StatusWarn, "not found, using defaults")
	} else {
		tui.Check(os.Stdout, name, path, tui.StatusOK, "")
	}
}
