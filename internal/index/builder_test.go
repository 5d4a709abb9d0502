package index

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/Zuo-Peng/zo-export/internal/catalog"
	"github.com/Zuo-Peng/zo-export/internal/snapshot"
	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func article(id, lib int64, short, display string, cols ...int64) catalog.Item {
	return catalog.Item{
		ID:            id,
		Key:           fmt.Sprintf("KEY%05d", id),
		LibraryID:     lib,
		Kind:          "journalArticle",
		ShortTitle:    short,
		DisplayTitle:  display,
		CollectionIDs: cols,
		DateAdded:     t0,
		DateModified:  t0,
	}
}

func TestBuildSingleCollectionScenario(t *testing.T) {
	repo := &catalog.Memory{
		Libraries: []catalog.Library{{ID: 1, Name: "My Library"}},
		Items:     []catalog.Item{article(7, 1, "", "Paper A", 3)},
		Collections: map[int64][]catalog.Collection{
			1: {{ID: 3, Name: "Papers", ItemIDs: []int64{7}}},
		},
	}

	idx, stats, err := Build(context.Background(), repo)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := snapshot.NewIndex([]snapshot.Library{{
		ID:   1,
		Name: "My Library",
		Documents: []snapshot.Document{{
			ID:            7,
			Title:         "Paper A",
			Authors:       []snapshot.Author{},
			CollectionIDs: []int64{3},
			DateAdded:     t0,
			DateModified:  t0,
		}},
		Collections: []snapshot.Collection{{
			ID:          3,
			Name:        "Papers",
			Collections: []snapshot.Collection{},
			DocumentIDs: []int64{7},
		}},
	}})
	if diff := cmp.Diff(want, idx); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}

	if stats.String() != "libraries=1 documents=1 collections=1 skipped=0" {
		t.Errorf("stats = %s", stats)
	}
}

func TestBuildFiltersKinds(t *testing.T) {
	note := article(2, 1, "", "a note", 10)
	note.Kind = "note"
	letter := article(3, 1, "", "a letter", 10)
	letter.Kind = "letter"
	book := article(4, 1, "", "a book", 10)
	book.Kind = "book"

	repo := &catalog.Memory{
		Libraries: []catalog.Library{{ID: 1, Name: "L"}},
		Items:     []catalog.Item{note, letter, book},
		Collections: map[int64][]catalog.Collection{
			1: {{ID: 10, Name: "All", ItemIDs: []int64{2, 3, 4}}},
		},
	}

	idx, stats, err := Build(context.Background(), repo)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	lib := idx.Data.Libraries[0]
	if len(lib.Documents) != 1 || lib.Documents[0].ID != 4 {
		t.Errorf("documents = %+v, want only the book", lib.Documents)
	}
	if diff := cmp.Diff([]int64{4}, lib.Collections[0].DocumentIDs); diff != "" {
		t.Errorf("collection document ids (-want +got):\n%s", diff)
	}
	if stats.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", stats.Skipped)
	}
}

func TestTitlePrecedence(t *testing.T) {
	tests := []struct {
		short, display, want string
	}{
		{"Short", "Long Display", "Short"},
		{"", "Long Display", "Long Display"},
		{"", "", ""},
	}
	for _, tt := range tests {
		got := Title(catalog.Item{ShortTitle: tt.short, DisplayTitle: tt.display})
		if got != tt.want {
			t.Errorf("Title(%q, %q) = %q, want %q", tt.short, tt.display, got, tt.want)
		}
	}
}

func TestAuthors(t *testing.T) {
	creators := []catalog.Creator{
		{Role: "editor", Name: catalog.StringPtr("Ed")},
		{Role: "author", FirstName: catalog.StringPtr("Ada"), LastName: catalog.StringPtr("Lovelace")},
		{Role: "author", Name: catalog.StringPtr("ACME Corp")},
		// editors are never inspected, so a malformed one is harmless
		{Role: "editor"},
	}

	got, err := Authors(creators)
	if err != nil {
		t.Fatalf("Authors: %v", err)
	}
	want := []snapshot.Author{
		snapshot.FullAuthor("Ada", "Lovelace"),
		snapshot.CombinedAuthor("ACME Corp"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("authors (-want +got):\n%s", diff)
	}

	_, err = Authors([]catalog.Creator{{Role: "author", FirstName: catalog.StringPtr("Only")}})
	if !errors.Is(err, catalog.ErrMalformedCreator) {
		t.Errorf("err = %v, want ErrMalformedCreator", err)
	}
}

func TestBuildAbortsOnMalformedCreator(t *testing.T) {
	bad := article(2, 1, "", "B")
	bad.Creators = []catalog.Creator{{Role: "author"}}

	repo := &catalog.Memory{
		Libraries: []catalog.Library{{ID: 1, Name: "L"}},
		Items:     []catalog.Item{article(1, 1, "", "A"), bad},
	}

	idx, _, err := Build(context.Background(), repo)
	if !errors.Is(err, catalog.ErrMalformedCreator) {
		t.Fatalf("err = %v, want ErrMalformedCreator", err)
	}
	if idx != nil {
		t.Error("partial index returned")
	}
}

// nestedRepo builds a chain of depth collections, each holding one document,
// plus a sibling under the root holding every document.
func nestedRepo(depth int) *catalog.Memory {
	repo := &catalog.Memory{
		Libraries:   []catalog.Library{{ID: 1, Name: "L"}},
		Collections: map[int64][]catalog.Collection{},
	}

	all := catalog.Collection{ID: 1000, Name: "All", ParentID: 100}
	for i := 0; i < depth; i++ {
		colID := int64(100 + i)
		docID := int64(i + 1)

		var parent int64
		if i > 0 {
			parent = colID - 1
		}
		repo.Collections[1] = append(repo.Collections[1], catalog.Collection{
			ID: colID, Name: fmt.Sprintf("level %d", i), ParentID: parent, ItemIDs: []int64{docID},
		})
		repo.Items = append(repo.Items, article(docID, 1, "", fmt.Sprintf("doc %d", i), colID, all.ID))
		all.ItemIDs = append(all.ItemIDs, docID)
	}
	repo.Collections[1] = append(repo.Collections[1], all)
	return repo
}

func walk(cols []snapshot.Collection, fn func(snapshot.Collection)) {
	for _, c := range cols {
		fn(c)
		walk(c.Collections, fn)
	}
}

func TestBuildNestedCollections(t *testing.T) {
	for _, depth := range []int{1, 3, 8} {
		repo := nestedRepo(depth)

		idx, _, err := Build(context.Background(), repo)
		if err != nil {
			t.Fatalf("depth %d: Build: %v", depth, err)
		}

		seen := map[int64]int{}
		containing := map[int64][]int64{}
		walk(idx.Data.Libraries[0].Collections, func(c snapshot.Collection) {
			seen[c.ID]++
			for _, d := range c.DocumentIDs {
				containing[d] = append(containing[d], c.ID)
			}
		})

		for _, c := range repo.Collections[1] {
			if seen[c.ID] != 1 {
				t.Errorf("depth %d: collection %d appears %d times", depth, c.ID, seen[c.ID])
			}
		}
		if len(seen) != len(repo.Collections[1]) {
			t.Errorf("depth %d: tree has %d collections, want %d", depth, len(seen), len(repo.Collections[1]))
		}

		for _, it := range repo.Items {
			want := []int64{}
			for _, c := range repo.Collections[1] {
				for _, id := range c.ItemIDs {
					if id == it.ID {
						want = append(want, c.ID)
					}
				}
			}
			got := containing[it.ID]
			if diff := cmp.Diff(sorted(want), sorted(got)); diff != "" {
				t.Errorf("depth %d: doc %d containing collections (-want +got):\n%s", depth, it.ID, diff)
			}
		}
	}
}

func sorted(ids []int64) []int64 {
	out := append([]int64{}, ids...)
	slices.Sort(out)
	return out
}

func TestBuildDetectsCycles(t *testing.T) {
	tests := []struct {
		name string
		cols []catalog.Collection
	}{
		{"self parent", []catalog.Collection{{ID: 1, Name: "a", ParentID: 1}}},
		{"two cycle", []catalog.Collection{
			{ID: 1, Name: "root"},
			{ID: 2, Name: "a", ParentID: 3},
			{ID: 3, Name: "b", ParentID: 2},
		}},
		{"dangling parent", []catalog.Collection{{ID: 2, Name: "a", ParentID: 99}}},
		{"duplicate", []catalog.Collection{{ID: 1, Name: "a"}, {ID: 1, Name: "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &catalog.Memory{
				Libraries:   []catalog.Library{{ID: 1, Name: "L"}},
				Collections: map[int64][]catalog.Collection{1: tt.cols},
			}
			if _, _, err := Build(context.Background(), repo); !errors.Is(err, ErrCollectionCycle) {
				t.Errorf("err = %v, want ErrCollectionCycle", err)
			}
		})
	}
}

func TestBuildEmptyRepository(t *testing.T) {
	idx, stats, err := Build(context.Background(), &catalog.Memory{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Version != snapshot.APIVersion || len(idx.Data.Libraries) != 0 || idx.Data.Libraries == nil {
		t.Errorf("unexpected empty index %+v", idx)
	}
	if stats.Libraries != 0 {
		t.Errorf("stats = %s", stats)
	}
}
