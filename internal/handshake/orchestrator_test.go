package handshake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Zuo-Peng/zo-export/internal/catalog"
	"github.com/Zuo-Peng/zo-export/internal/platform"
	"github.com/Zuo-Peng/zo-export/internal/snapshot"
	"github.com/Zuo-Peng/zo-export/internal/workdir"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

// fakeInvoker plays the companion: the select stage writes reply, the
// import stage records that it ran.
type fakeInvoker struct {
	reply     string
	selectErr error
	importErr error
	stages    []platform.Stage
}

func (f *fakeInvoker) Run(ctx context.Context, stage platform.Stage, dir string) error {
	f.stages = append(f.stages, stage)
	switch stage {
	case platform.StageSelect:
		if f.selectErr != nil {
			return f.selectErr
		}
		if f.reply != "" {
			return os.WriteFile(filepath.Join(dir, workdir.SelectionName), []byte(f.reply), 0o644)
		}
	case platform.StageImport:
		return f.importErr
	}
	return nil
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(t.TempDir(), "zo_import", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func testRepo(t *testing.T) *catalog.Memory {
	t.Helper()
	pdf := filepath.Join(t.TempDir(), "a.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	return &catalog.Memory{
		Libraries: []catalog.Library{{ID: 1, Name: "My Library"}},
		Items: []catalog.Item{
			{ID: 5, Key: "DOC00005", LibraryID: 1, Kind: "journalArticle", DisplayTitle: "Paper A",
				CollectionIDs: []int64{3}, DateAdded: ts, DateModified: ts},
			{ID: 6, Key: "DOC00006", LibraryID: 1, Kind: "book", DisplayTitle: "Bare Book", DateAdded: ts, DateModified: ts},
			{ID: 7, Key: "NOTE0007", LibraryID: 1, Kind: "note", DateAdded: ts, DateModified: ts},
		},
		Collections: map[int64][]catalog.Collection{
			1: {{ID: 3, Name: "Papers", ItemIDs: []int64{5}}},
		},
		Attachments: []catalog.Attachment{
			{ID: 50, Key: "ATT00050", ParentID: 5, ContentType: "application/pdf", Path: pdf},
		},
		Annotations: map[int64][]catalog.Annotation{
			50: {{ID: 500, Key: "ANN00500", Type: catalog.AnnotationHighlight, Text: "hi", Color: "#ff0000", PageLabel: "2"}},
		},
	}
}

func requireKind(t *testing.T, err error, kind Kind, state State) *Error {
	t.Helper()
	var herr *Error
	if !errors.As(err, &herr) {
		t.Fatalf("err = %v (%T), want *handshake.Error", err, err)
	}
	if herr.Kind != kind || herr.State != state {
		t.Fatalf("got %s at %s, want %s at %s (%v)", herr.Kind, herr.State, kind, state, herr.Err)
	}
	return herr
}

func TestRunExportSuccess(t *testing.T) {
	s := newTestSession(t)
	var states []State
	s.OnState = func(st State) { states = append(states, st) }

	inv := &fakeInvoker{reply: `{"version":1,"selection":{"library_id":1,"document_id":5}}`}
	res, err := RunExport(context.Background(), s, testRepo(t), inv)
	if err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	if res.State != StateDone || res.Annotations != 1 || res.Title != "Paper A" {
		t.Errorf("result = %+v", res)
	}
	if res.Index.Documents != 2 || res.Index.Skipped != 1 {
		t.Errorf("index stats = %s", res.Index)
	}

	wantStates := []State{
		StatePrepare, StateBuildIndex, StateInvokeSelect, StateReadSelection,
		StateValidateSelection, StateBuildExport, StateWriteExport, StateInvokeImport, StateDone,
	}
	if diff := cmp.Diff(wantStates, states); diff != "" {
		t.Errorf("states (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]platform.Stage{platform.StageSelect, platform.StageImport}, inv.stages); diff != "" {
		t.Errorf("stages (-want +got):\n%s", diff)
	}

	idx, err := snapshot.ReadIndex(s.Dir.IndexPath())
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if len(idx.Data.Libraries) != 1 || len(idx.Data.Libraries[0].Documents) != 2 {
		t.Errorf("index = %+v", idx.Data)
	}

	exp, err := snapshot.ReadExport(s.Dir.ExportPath())
	if err != nil {
		t.Fatalf("ReadExport: %v", err)
	}
	if exp.Version != 1 || exp.Data.Source.ID != 5 || exp.Data.Annotations[0].Page != 2 {
		t.Errorf("export = %+v", exp.Data)
	}

	if s.Dir.Exists(workdir.LockName) {
		t.Error("lock not released")
	}
}

func TestRunExportRejectsVersion(t *testing.T) {
	s := newTestSession(t)
	inv := &fakeInvoker{reply: `{"version":2,"selection":{"library_id":1,"document_id":5}}`}

	_, err := RunExport(context.Background(), s, testRepo(t), inv)
	requireKind(t, err, KindUnsupportedAPIVersion, StateValidateSelection)

	if s.Dir.Exists(workdir.ExportName) {
		t.Error("export.json written after version rejection")
	}
	if len(inv.stages) != 1 {
		t.Errorf("stages = %v, want select only", inv.stages)
	}
}

func TestRunExportMissingShim(t *testing.T) {
	s := newTestSession(t)
	d := &platform.Dispatcher{OS: platform.Mac, ShimName: "shim", Logger: zerolog.Nop()}

	_, err := RunExport(context.Background(), s, testRepo(t), d)
	requireKind(t, err, KindSelect, StateInvokeSelect)
	if !errors.Is(err, platform.ErrImporterNotFound) {
		t.Errorf("err = %v, want ErrImporterNotFound in chain", err)
	}
	if !s.Dir.Exists(workdir.IndexName) {
		t.Error("index.json should be written before the select stage")
	}
}

func TestRunExportUnsupportedOS(t *testing.T) {
	s := newTestSession(t)
	d := &platform.Dispatcher{OS: platform.Linux, ShimName: "shim", Logger: zerolog.Nop()}

	_, err := RunExport(context.Background(), s, testRepo(t), d)
	requireKind(t, err, KindSelect, StateInvokeSelect)
	if !errors.Is(err, platform.ErrUnsupportedOS) {
		t.Errorf("err = %v, want ErrUnsupportedOS in chain", err)
	}
}

func TestRunExportNoAttachments(t *testing.T) {
	s := newTestSession(t)
	inv := &fakeInvoker{reply: `{"version":1,"selection":{"library_id":1,"document_id":6}}`}

	_, err := RunExport(context.Background(), s, testRepo(t), inv)
	requireKind(t, err, KindExportUnavailable, StateBuildExport)

	for _, st := range inv.stages {
		if st == platform.StageImport {
			t.Error("import stage invoked without an export")
		}
	}
	if s.Dir.Exists(workdir.ExportName) {
		t.Error("export.json written")
	}
}

func TestRunExportFailures(t *testing.T) {
	tests := []struct {
		name  string
		inv   *fakeInvoker
		kind  Kind
		state State
	}{
		{"select fails", &fakeInvoker{selectErr: errors.New("boom")}, KindSelect, StateInvokeSelect},
		{"no reply", &fakeInvoker{}, KindSelectionUnreadable, StateReadSelection},
		{"garbage reply", &fakeInvoker{reply: "{not json"}, KindSelectionUnreadable, StateReadSelection},
		{"null selection", &fakeInvoker{reply: `{"version":1,"selection":null}`}, KindSelectionUnreadable, StateValidateSelection},
		{"unknown document", &fakeInvoker{reply: `{"version":1,"selection":{"library_id":1,"document_id":99}}`}, KindBadDocumentType, StateValidateSelection},
		{"note selected", &fakeInvoker{reply: `{"version":1,"selection":{"library_id":1,"document_id":7}}`}, KindBadDocumentType, StateValidateSelection},
		{"import fails", &fakeInvoker{
			reply:     `{"version":1,"selection":{"library_id":1,"document_id":5}}`,
			importErr: &platform.ProcessError{Stage: platform.StageImport, ExitCode: 2},
		}, KindImport, StateInvokeImport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			_, err := RunExport(context.Background(), s, testRepo(t), tt.inv)
			requireKind(t, err, tt.kind, tt.state)
			if s.Dir.Exists(workdir.LockName) {
				t.Error("lock not released after failure")
			}
		})
	}
}

func TestRunExportRejectsKindDespitePDF(t *testing.T) {
	for _, kind := range []string{"note", "artwork"} {
		t.Run(kind, func(t *testing.T) {
			repo := testRepo(t)
			pdf := repo.Attachments[0].Path
			ts := repo.Items[0].DateAdded
			repo.Items = append(repo.Items, catalog.Item{
				ID: 8, Key: "ITEM0008", LibraryID: 1, Kind: kind, DisplayTitle: "Not a document",
				DateAdded: ts, DateModified: ts,
			})
			repo.Attachments = append(repo.Attachments, catalog.Attachment{
				ID: 80, Key: "ATT00080", ParentID: 8, ContentType: "application/pdf", Path: pdf,
			})
			repo.Annotations[80] = []catalog.Annotation{{ID: 800, Key: "ANN00800", Type: catalog.AnnotationHighlight, Text: "x"}}

			s := newTestSession(t)
			inv := &fakeInvoker{reply: `{"version":1,"selection":{"library_id":1,"document_id":8}}`}
			_, err := RunExport(context.Background(), s, repo, inv)
			requireKind(t, err, KindBadDocumentType, StateValidateSelection)

			if s.Dir.Exists(workdir.ExportName) {
				t.Error("export.json written for a rejected kind")
			}
			if len(inv.stages) != 1 {
				t.Errorf("stages = %v, want select only", inv.stages)
			}
		})
	}
}

// brokenItems fails GetItem the way a damaged or busy catalog would.
type brokenItems struct {
	*catalog.Memory
	err error
}

func (b brokenItems) GetItem(ctx context.Context, id int64) (*catalog.Item, error) {
	return nil, b.err
}

func TestRunExportCatalogFailureAtValidation(t *testing.T) {
	s := newTestSession(t)
	cause := errors.New("disk I/O error")
	repo := brokenItems{Memory: testRepo(t), err: cause}

	inv := &fakeInvoker{reply: `{"version":1,"selection":{"library_id":1,"document_id":5}}`}
	_, err := RunExport(context.Background(), s, repo, inv)
	requireKind(t, err, KindCatalog, StateValidateSelection)
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want cause in chain", err)
	}
}

func TestRunExportMalformedCreator(t *testing.T) {
	s := newTestSession(t)
	repo := testRepo(t)
	repo.Items[0].Creators = []catalog.Creator{{Role: "author"}}

	inv := &fakeInvoker{}
	_, err := RunExport(context.Background(), s, repo, inv)
	requireKind(t, err, KindBuildIndex, StateBuildIndex)
	if !errors.Is(err, catalog.ErrMalformedCreator) {
		t.Errorf("err = %v, want ErrMalformedCreator in chain", err)
	}
	if len(inv.stages) != 0 {
		t.Errorf("stages run after index failure: %v", inv.stages)
	}
}

func TestRunExportIgnoresStaleSelection(t *testing.T) {
	s := newTestSession(t)
	stale := []byte(`{"version":1,"selection":{"library_id":1,"document_id":5}}`)
	if err := s.Dir.WriteFile(workdir.SelectionName, stale); err != nil {
		t.Fatal(err)
	}

	// companion exits cleanly without writing a reply
	_, err := RunExport(context.Background(), s, testRepo(t), &fakeInvoker{})
	requireKind(t, err, KindSelectionUnreadable, StateReadSelection)
}

func TestRunExportLibraryMismatchIsNotFatal(t *testing.T) {
	s := newTestSession(t)
	inv := &fakeInvoker{reply: `{"version":1,"selection":{"library_id":42,"document_id":5}}`}

	res, err := RunExport(context.Background(), s, testRepo(t), inv)
	if err != nil {
		t.Fatalf("RunExport: %v", err)
	}
	if res.Selection.LibraryID != 42 || res.State != StateDone {
		t.Errorf("result = %+v", res)
	}
}

func TestRunExportLock(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Dir.Acquire("someone-else"); err != nil {
		t.Fatal(err)
	}

	inv := &fakeInvoker{reply: `{"version":1,"selection":{"library_id":1,"document_id":5}}`}
	_, err := RunExport(context.Background(), s, testRepo(t), inv)
	requireKind(t, err, KindRunInProgress, StatePrepare)
	if !errors.Is(err, workdir.ErrLocked) {
		t.Errorf("err = %v, want ErrLocked in chain", err)
	}
	if len(inv.stages) != 0 {
		t.Errorf("stages run while locked: %v", inv.stages)
	}

	s.Force = true
	if _, err := RunExport(context.Background(), s, testRepo(t), inv); err != nil {
		t.Fatalf("forced RunExport: %v", err)
	}
}

func TestWriteIndexLocked(t *testing.T) {
	s := newTestSession(t)
	l, err := s.Dir.Acquire("running-export")
	if err != nil {
		t.Fatal(err)
	}

	_, err = WriteIndexLocked(context.Background(), s.Dir, testRepo(t))
	requireKind(t, err, KindRunInProgress, StatePrepare)
	if s.Dir.Exists(workdir.IndexName) {
		t.Error("index.json written while another run holds the lock")
	}

	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	stats, err := WriteIndexLocked(context.Background(), s.Dir, testRepo(t))
	if err != nil {
		t.Fatalf("WriteIndexLocked: %v", err)
	}
	if stats.Documents != 2 || !s.Dir.Exists(workdir.IndexName) {
		t.Errorf("stats = %s", stats)
	}
	if s.Dir.Exists(workdir.LockName) {
		t.Error("lock not released")
	}
}

func TestNewSessionWorkDirError(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewSession(blocker, "zo_import", zerolog.Nop())
	requireKind(t, err, KindWorkDir, StatePrepare)
}

func TestKindAndStateNames(t *testing.T) {
	if KindUnsupportedAPIVersion.String() != "UnsupportedApiVersion" {
		t.Errorf("kind name = %s", KindUnsupportedAPIVersion)
	}
	if KindCatalog.String() != "CatalogError" {
		t.Errorf("kind name = %s", KindCatalog)
	}
	if Kind(99).String() != "Kind(99)" {
		t.Errorf("unknown kind = %s", Kind(99))
	}
	if StateValidateSelection.String() != "ValidateSelection" || State(42).String() != "Invalid" {
		t.Error("unexpected state names")
	}
	if !StateDone.Terminal() || StateInvokeImport.Terminal() {
		t.Error("unexpected Terminal result")
	}
}
