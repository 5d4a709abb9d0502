package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Zuo-Peng/zo-export/internal/snapshot"
	"github.com/Zuo-Peng/zo-export/internal/tui"
	"github.com/Zuo-Peng/zo-export/internal/workdir"
	"github.com/spf13/cobra"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Summarise the snapshot files in the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir, err := workdir.Ensure(cfg.DataDir, cfg.WorkDirName)
			if err != nil {
				return err
			}
			w := os.Stdout

			tui.Section(w, "Working directory")
			tui.Field(w, "Path", dir)
			if holder, err := dir.LockHolder(); err == nil {
				tui.Check(w, "Lock", holder, tui.StatusWarn, "run in progress or stale")
			}

			fmt.Fprintln(w)
			tui.Section(w, workdir.IndexName)
			if idx, ok := readOrReport(w, dir, workdir.IndexName, snapshot.ReadIndex); ok {
				tui.Field(w, "Version", idx.Version)
				for _, lib := range idx.Data.Libraries {
					tui.Field(w, fmt.Sprintf("Library %d", lib.ID),
						fmt.Sprintf("%s: %d documents, %d collections", lib.Name, len(lib.Documents), countCollections(lib.Collections)))
				}
			}

			fmt.Fprintln(w)
			tui.Section(w, workdir.SelectionName)
			if sel, ok := readOrReport(w, dir, workdir.SelectionName, snapshot.ReadSelection); ok {
				tui.Field(w, "Version", sel.Version)
				if sel.Selection != nil {
					tui.Field(w, "Library", sel.Selection.LibraryID)
					tui.Field(w, "Document", sel.Selection.DocumentID)
				} else {
					tui.Field(w, "Selection", "none")
				}
			}

			fmt.Fprintln(w)
			tui.Section(w, workdir.ExportName)
			if exp, ok := readOrReport(w, dir, workdir.ExportName, snapshot.ReadExport); ok {
				src := exp.Data.Source
				tui.Field(w, "Version", exp.Version)
				tui.Field(w, "Document", fmt.Sprintf("%d %s (%s)", src.ID, src.Key, src.Kind))
				tui.Field(w, "Title", src.Title)
				tui.Field(w, "Authors", authorList(src.Authors))
				tui.Field(w, "Path", src.Path)
				tui.Field(w, "Annotations", kindCounts(exp.Data.Annotations))
			}
			return nil
		},
	}
}

func readOrReport[T any](w *os.File, dir workdir.Dir, name string, read func(string) (*T, error)) (*T, bool) {
	if !dir.Exists(name) {
		tui.Field(w, "Status", "not present")
		return nil, false
	}
	v, err := read(dir.Path(name))
	if err != nil {
		tui.Check(w, "Status", name, tui.StatusFail, err.Error())
		return nil, false
	}
	return v, true
}

func countCollections(cols []snapshot.Collection) int {
	n := len(cols)
	for _, c := range cols {
		n += countCollections(c.Collections)
	}
	return n
}

func authorList(authors []snapshot.Author) string {
	if len(authors) == 0 {
		return "-"
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name.String())
	}
	return strings.Join(names, "; ")
}

func kindCounts(anns []snapshot.Annotation) string {
	if len(anns) == 0 {
		return "0"
	}
	counts := map[snapshot.AnnotationKind]int{}
	for _, a := range anns {
		counts[a.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[snapshot.AnnotationKind(k)]))
	}
	return fmt.Sprintf("%d (%s)", len(anns), strings.Join(parts, " "))
}
