package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Zuo-Peng/zo-export/internal/snapshot"
	"github.com/Zuo-Peng/zo-export/internal/tui"
	"github.com/Zuo-Peng/zo-export/internal/workdir"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	sColorReset = "\033[0m"
	sColorGreen = "\033[1;32m"
	sColorDim   = "\033[2m"
)

func colorizeKind(kind snapshot.AnnotationKind) string {
	if kind == snapshot.KindHighlight {
		return sColorGreen + string(kind) + sColorReset
	}
	return sColorDim + string(kind) + sColorReset
}

func annotationsCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "annotations",
		Short: "Browse the annotations of the last export",
		Long: `Reads export.json from the working directory. On a terminal this opens a
browser with a filter and a preview; Enter copies the annotation text.
Piped output is TSV:
  key, kind, page, colour, text, comment`,
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

			exp, err := snapshot.ReadExport(dir.ExportPath())
			if err != nil {
				return fmt.Errorf("no export to show, run 'zoexport export' first: %w", err)
			}

			if kind != "" {
				kept := exp.Data.Annotations[:0:0]
				for _, a := range exp.Data.Annotations {
					if strings.EqualFold(string(a.Kind), kind) {
						kept = append(kept, a)
					}
				}
				exp.Data.Annotations = kept
			}

			// Interactive browser when stdout is a terminal; TSV for pipes
			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Browse(exp)
			}

			if len(exp.Data.Annotations) == 0 {
				fmt.Fprintln(os.Stderr, "No annotations.")
				return nil
			}
			for _, a := range exp.Data.Annotations {
				fmt.Printf("%s\t%s\t%d\t%s\t%s\t%s\n",
					a.Key,
					colorizeKind(a.Kind),
					a.Page,
					a.Colour,
					tsvField(a.Text),
					tsvField(a.Comment),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only show annotations of this kind (Highlight/Unknown)")

	return cmd
}

func tsvField(s *string) string {
	if s == nil {
		return "-"
	}
	v := strings.ReplaceAll(*s, "\t", " ")
	return strings.ReplaceAll(v, "\n", " ")
}
