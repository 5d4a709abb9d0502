package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var (
	added    = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	modified = time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
)

func strPtr(s string) *string { return &s }

func sampleIndex() *Index {
	return NewIndex([]Library{{
		ID:   1,
		Name: "My Library",
		Documents: []Document{{
			ID:            10,
			Title:         "Paper A",
			Authors:       []Author{FullAuthor("Ada", "Lovelace"), CombinedAuthor("ACME Corp")},
			CollectionIDs: []int64{100},
			DateAdded:     added,
			DateModified:  modified,
		}},
		Collections: []Collection{{
			ID:          100,
			Name:        "Papers",
			Collections: []Collection{{ID: 101, Name: "Sub", Collections: []Collection{}, DocumentIDs: []int64{}}},
			DocumentIDs: []int64{10},
		}},
	}})
}

func sampleExport() *Export {
	return NewExport(Source{
		Library:      1,
		ID:           10,
		Key:          "AAAA1111",
		Kind:         "journalArticle",
		Title:        "Paper A",
		Note:         strPtr("abstract"),
		Date:         "March 2020",
		Authors:      []Author{FullAuthor("Ada", "Lovelace")},
		Tags:         Tags([]string{"ml"}),
		DateAdded:    added,
		DateModified: modified,
		Path:         "/data/storage/ATT12345/paper.pdf",
	}, []Annotation{
		{
			Key:          "ANN1",
			Kind:         KindHighlight,
			Page:         5,
			Text:         strPtr("quoted"),
			Colour:       "#ffd400",
			DateAdded:    added,
			DateModified: modified,
			Tags:         []Tag{},
		},
		{
			Key:          "ANN2",
			Kind:         KindUnknown,
			Page:         6,
			Comment:      strPtr("note to self"),
			Colour:       "#5fb236",
			DateAdded:    added,
			DateModified: modified,
			Tags:         Tags([]string{"todo"}),
		},
	})
}

func roundTrip[T any](t *testing.T, v *T, pretty bool) *T {
	t.Helper()
	data, err := Encode(v, pretty)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, data)
	}
	return &out
}

func TestRoundTrip(t *testing.T) {
	opts := cmpopts.EquateEmpty()

	idx := sampleIndex()
	if diff := cmp.Diff(idx, roundTrip(t, idx, false), opts); diff != "" {
		t.Errorf("index round trip (-want +got):\n%s", diff)
	}

	sel := &SelectionFile{Version: 1, Selection: &Selection{LibraryID: 1, DocumentID: 5}}
	if diff := cmp.Diff(sel, roundTrip(t, sel, false), opts); diff != "" {
		t.Errorf("selection round trip (-want +got):\n%s", diff)
	}

	exp := sampleExport()
	if diff := cmp.Diff(exp, roundTrip(t, exp, true), opts); diff != "" {
		t.Errorf("export round trip (-want +got):\n%s", diff)
	}
}

func TestIndexWireShape(t *testing.T) {
	data, err := Encode(sampleIndex(), false)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)

	for _, want := range []string{
		`{"version":1,"data":{"libraries":[{"id":1,"name":"My Library","documents":[`,
		`"authors":[{"name":{"format":"full","value":{"first":"Ada","last":"Lovelace"}}},{"name":{"format":"combined","value":"ACME Corp"}}]`,
		`"date_added":"2024-01-02T03:04:05Z"`,
		`{"id":101,"name":"Sub","collections":[],"document_ids":[]}`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("encoded index missing %s\ngot: %s", want, s)
		}
	}
}

func TestEmptyIndexHasArray(t *testing.T) {
	data, err := Encode(NewIndex(nil), false)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"version":1,"data":{"libraries":[]}}` {
		t.Errorf("got %s", got)
	}
}

func TestExportOptionalFields(t *testing.T) {
	data, err := Encode(sampleExport(), true)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)

	if !strings.Contains(s, "\n\t\"version\": 1,") {
		t.Errorf("export is not tab-indented:\n%s", s)
	}
	if strings.Contains(s, `"url"`) || strings.Contains(s, `"citation_key"`) {
		t.Errorf("absent optional source fields were written:\n%s", s)
	}
	if strings.Count(s, `"text"`) != 1 || strings.Count(s, `"comment"`) != 1 {
		t.Errorf("optional annotation fields should appear once each:\n%s", s)
	}
}

func TestAuthorNameRejectsUnknownFormat(t *testing.T) {
	tests := []string{
		`{"name":{"format":"initials","value":"A.L."}}`,
		`{"name":{"format":"combined","value":{"first":"A","last":"L"}}}`,
		`{"name":{"format":"full","value":"Ada Lovelace"}}`,
	}
	for _, in := range tests {
		var a Author
		if err := json.Unmarshal([]byte(in), &a); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", in)
		}
	}

	if _, err := json.Marshal(Author{}); err == nil {
		t.Error("Marshal of zero Author should fail")
	}
}

func TestReadSelection(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadSelection(filepath.Join(dir, "select.json")); !errors.Is(err, ErrUnreadable) {
		t.Errorf("missing file: err = %v, want ErrUnreadable", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSelection(bad); !errors.Is(err, ErrUnreadable) {
		t.Errorf("bad json: err = %v, want ErrUnreadable", err)
	}

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{"version":2,"selection":{"library_id":1,"document_id":5}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	sel, err := ReadSelection(good)
	if err != nil {
		t.Fatalf("ReadSelection: %v", err)
	}
	if sel.Version != 2 || sel.Selection == nil || sel.Selection.DocumentID != 5 {
		t.Errorf("unexpected selection %+v", sel)
	}
}
