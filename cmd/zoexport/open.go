package main

import (
	"fmt"

	"github.com/Zuo-Peng/zo-export/internal/open"
	"github.com/Zuo-Peng/zo-export/internal/snapshot"
	"github.com/Zuo-Peng/zo-export/internal/workdir"
	"github.com/spf13/cobra"
)

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open [annotationKey]",
		Short: "Open the last exported PDF, at an annotation's page if given",
		Long:  "Uses $" + open.ViewerEnv + " when set, otherwise the system PDF handler.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir, err := workdir.Ensure(cfg.DataDir, cfg.WorkDirName)
			if err != nil {
				return err
			}

			exp, err := snapshot.ReadExport(dir.ExportPath())
			if err != nil {
				return fmt.Errorf("no export to open: %w", err)
			}

			page := 0
			if len(args) == 1 {
				found := false
				for _, a := range exp.Data.Annotations {
					if a.Key == args[0] {
						page = a.Page
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("annotation not found: %s", args[0])
				}
			}

			return open.PDF(exp.Data.Source.Path, page)
		},
	}
}
