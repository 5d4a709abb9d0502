// Package handshake runs the file-based export protocol with the companion
// importer: index, select, validate, export, import.
package handshake

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zuo-Peng/zo-export/internal/catalog"
	"github.com/Zuo-Peng/zo-export/internal/export"
	"github.com/Zuo-Peng/zo-export/internal/index"
	"github.com/Zuo-Peng/zo-export/internal/platform"
	"github.com/Zuo-Peng/zo-export/internal/snapshot"
	"github.com/Zuo-Peng/zo-export/internal/workdir"
	"github.com/google/uuid"
)

// Invoker runs one companion stage inside dir. *platform.Dispatcher
// implements it.
type Invoker interface {
	Run(ctx context.Context, stage platform.Stage, dir string) error
}

var _ Invoker = (*platform.Dispatcher)(nil)

// Result describes a completed run.
type Result struct {
	RunID       uuid.UUID
	State       State
	Selection   snapshot.Selection
	Index       index.Stats
	Title       string
	CitationKey string
	Annotations int
}

// RunExport drives one run from index to import. Stages are strictly
// sequential; the first failure ends the run and is returned as *Error.
func RunExport(ctx context.Context, s *Session, repo catalog.Repository, inv Invoker) (*Result, error) {
	log := s.Logger
	res := &Result{RunID: s.ID, State: StatePrepare}

	s.enter(StatePrepare)
	if s.Force {
		if holder, err := s.Dir.LockHolder(); err == nil {
			log.Warn().Str("holder", holder).Msg("breaking existing lock")
		}
		if err := s.Dir.BreakLock(); err != nil {
			return res, fail(KindWorkDir, StatePrepare, err)
		}
	}
	lock, err := s.Dir.Acquire(s.ID.String())
	if err != nil {
		if errors.Is(err, workdir.ErrLocked) {
			return res, fail(KindRunInProgress, StatePrepare, err)
		}
		return res, fail(KindWorkDir, StatePrepare, err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn().Err(err).Msg("release lock")
		}
	}()

	log.Info().Str("dir", s.Dir.String()).Msg("export started")

	// BuildIndex
	res.State = StateBuildIndex
	s.enter(res.State)
	stats, err := WriteIndex(ctx, s.Dir, repo)
	if err != nil {
		if errors.Is(err, catalog.ErrMalformedCreator) {
			log.Error().Err(err).Msg("malformed creator in catalog")
		}
		return res, err
	}
	res.Index = stats
	log.Info().Str("stats", stats.String()).Msg("index written")

	// InvokeSelect
	res.State = StateInvokeSelect
	s.enter(res.State)
	if err := s.Dir.Remove(workdir.SelectionName); err != nil {
		return res, fail(KindWorkDir, res.State, fmt.Errorf("remove stale selection: %w", err))
	}
	if err := inv.Run(ctx, platform.StageSelect, s.Dir.String()); err != nil {
		return res, fail(KindSelect, res.State, err)
	}

	// ReadSelection
	res.State = StateReadSelection
	s.enter(res.State)
	sel, err := snapshot.ReadSelection(s.Dir.SelectionPath())
	if err != nil {
		return res, fail(KindSelectionUnreadable, res.State, err)
	}

	// ValidateSelection
	res.State = StateValidateSelection
	s.enter(res.State)
	if sel.Version != s.APIVersion {
		return res, fail(KindUnsupportedAPIVersion, res.State,
			fmt.Errorf("selection version %d, want %d", sel.Version, s.APIVersion))
	}
	if sel.Selection == nil {
		return res, fail(KindSelectionUnreadable, res.State, errors.New("selection missing"))
	}
	res.Selection = *sel.Selection

	doc, err := repo.GetItem(ctx, sel.Selection.DocumentID)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			return res, fail(KindBadDocumentType, res.State, err)
		}
		// the catalog itself failed; the selection may be fine
		return res, fail(KindCatalog, res.State, err)
	}
	if !catalog.IsDocument(doc.Kind) {
		return res, fail(KindBadDocumentType, res.State,
			fmt.Errorf("item %d has kind %q", doc.ID, doc.Kind))
	}
	if doc.LibraryID != sel.Selection.LibraryID {
		log.Warn().
			Int64("selected_library", sel.Selection.LibraryID).
			Int64("document_library", doc.LibraryID).
			Int64("document", doc.ID).
			Msg("selection library does not match document")
	}
	log.Info().Int64("document", doc.ID).Str("kind", doc.Kind).Msg("selection accepted")

	// BuildExport
	res.State = StateBuildExport
	s.enter(res.State)
	exp, err := export.Build(ctx, repo, doc.ID, export.Options{KindPolicy: s.KindPolicy})
	if err != nil {
		return res, fail(KindExportUnavailable, res.State, err)
	}
	if exp == nil {
		return res, fail(KindExportUnavailable, res.State,
			fmt.Errorf("document %d has no exportable attachment", doc.ID))
	}
	res.Title = exp.Data.Source.Title
	res.CitationKey = exp.Data.Source.CitationKey
	res.Annotations = len(exp.Data.Annotations)

	// WriteExport
	res.State = StateWriteExport
	s.enter(res.State)
	if err := writeSnapshot(s.Dir, workdir.ExportName, exp, true); err != nil {
		return res, fail(KindWorkDir, res.State, err)
	}
	log.Info().Int("annotations", res.Annotations).Msg("export written")

	// InvokeImport
	res.State = StateInvokeImport
	s.enter(res.State)
	if err := inv.Run(ctx, platform.StageImport, s.Dir.String()); err != nil {
		return res, fail(KindImport, res.State, err)
	}

	res.State = StateDone
	s.enter(res.State)
	log.Info().Msg("export finished")
	return res, nil
}

// WriteIndex builds the index and writes it without running any stage.
func WriteIndex(ctx context.Context, dir workdir.Dir, repo catalog.Repository) (index.Stats, error) {
	idx, stats, err := index.Build(ctx, repo)
	if err != nil {
		return stats, fail(KindBuildIndex, StateBuildIndex, err)
	}
	if err := writeSnapshot(dir, workdir.IndexName, idx, false); err != nil {
		return stats, fail(KindBuildIndex, StateBuildIndex, err)
	}
	return stats, nil
}

// WriteIndexLocked is WriteIndex under the run lock, for refreshing
// index.json outside an export run. It refuses while a run holds the lock.
func WriteIndexLocked(ctx context.Context, dir workdir.Dir, repo catalog.Repository) (stats index.Stats, err error) {
	lock, err := dir.Acquire("index-" + uuid.NewString())
	if err != nil {
		if errors.Is(err, workdir.ErrLocked) {
			return stats, fail(KindRunInProgress, StatePrepare, err)
		}
		return stats, fail(KindWorkDir, StatePrepare, err)
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil && err == nil {
			err = fail(KindWorkDir, StateBuildIndex, rerr)
		}
	}()

	return WriteIndex(ctx, dir, repo)
}

func writeSnapshot(dir workdir.Dir, name string, v any, pretty bool) error {
	data, err := snapshot.Encode(v, pretty)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return dir.WriteFile(name, data)
}
