package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zuo-Peng/zo-export/internal/catalog"
	"github.com/Zuo-Peng/zo-export/internal/snapshot"
)

// ErrCollectionCycle is returned when the collection parent links do not
// form a finite tree.
var ErrCollectionCycle = errors.New("collection hierarchy is not a tree")

type Stats struct {
	Libraries   int
	Documents   int
	Collections int
	Skipped     int // items excluded by kind
}

func (s Stats) String() string {
	return fmt.Sprintf("libraries=%d documents=%d collections=%d skipped=%d",
		s.Libraries, s.Documents, s.Collections, s.Skipped)
}

// Build walks every library of repo into an index snapshot. Any error
// aborts the whole build; no partial index is returned.
func Build(ctx context.Context, repo catalog.Repository) (*snapshot.Index, Stats, error) {
	var stats Stats

	libs, err := repo.ListLibraries(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("list libraries: %w", err)
	}

	out := make([]snapshot.Library, 0, len(libs))
	for _, lib := range libs {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		node, err := buildLibrary(ctx, repo, lib, &stats)
		if err != nil {
			return nil, stats, fmt.Errorf("library %d (%s): %w", lib.ID, lib.Name, err)
		}
		out = append(out, node)
		stats.Libraries++
	}

	return snapshot.NewIndex(out), stats, nil
}

func buildLibrary(ctx context.Context, repo catalog.Repository, lib catalog.Library, stats *Stats) (snapshot.Library, error) {
	items, err := repo.ListItems(ctx, lib.ID)
	if err != nil {
		return snapshot.Library{}, err
	}

	docs := make([]snapshot.Document, 0, len(items))
	docIDs := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if !catalog.IsDocument(it.Kind) {
			stats.Skipped++
			continue
		}

		doc, err := buildDocument(it)
		if err != nil {
			return snapshot.Library{}, err
		}
		docs = append(docs, doc)
		docIDs[it.ID] = struct{}{}
	}
	stats.Documents += len(docs)

	cols, err := repo.GetCollections(ctx, lib.ID)
	if err != nil {
		return snapshot.Library{}, err
	}
	tree, err := buildCollections(cols, docIDs)
	if err != nil {
		return snapshot.Library{}, err
	}
	stats.Collections += len(cols)

	return snapshot.Library{
		ID:          lib.ID,
		Name:        lib.Name,
		Documents:   docs,
		Collections: tree,
	}, nil
}

func buildDocument(it catalog.Item) (snapshot.Document, error) {
	authors, err := Authors(it.Creators)
	if err != nil {
		return snapshot.Document{}, fmt.Errorf("item %d: %w", it.ID, err)
	}

	collectionIDs := make([]int64, 0, len(it.CollectionIDs))
	collectionIDs = append(collectionIDs, it.CollectionIDs...)

	return snapshot.Document{
		ID:            it.ID,
		Title:         Title(it),
		Authors:       authors,
		CollectionIDs: collectionIDs,
		DateAdded:     it.DateAdded.UTC(),
		DateModified:  it.DateModified.UTC(),
	}, nil
}

// buildCollections turns parent links into a tree. Roots keep repository
// order; so do children under each parent.
func buildCollections(cols []catalog.Collection, docIDs map[int64]struct{}) ([]snapshot.Collection, error) {
	byID := make(map[int64]catalog.Collection, len(cols))
	children := make(map[int64][]int64)
	var roots []int64

	for _, c := range cols {
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("%w: collection %d listed twice", ErrCollectionCycle, c.ID)
		}
		byID[c.ID] = c
	}
	for _, c := range cols {
		switch {
		case c.ParentID == 0:
			roots = append(roots, c.ID)
		case c.ParentID == c.ID:
			return nil, fmt.Errorf("%w: collection %d is its own parent", ErrCollectionCycle, c.ID)
		default:
			if _, ok := byID[c.ParentID]; !ok {
				return nil, fmt.Errorf("%w: collection %d has unknown parent %d", ErrCollectionCycle, c.ID, c.ParentID)
			}
			children[c.ParentID] = append(children[c.ParentID], c.ID)
		}
	}

	visited := make(map[int64]struct{}, len(cols))
	var build func(id int64) (snapshot.Collection, error)
	build = func(id int64) (snapshot.Collection, error) {
		if _, seen := visited[id]; seen {
			return snapshot.Collection{}, fmt.Errorf("%w: collection %d reached twice", ErrCollectionCycle, id)
		}
		visited[id] = struct{}{}

		c := byID[id]
		node := snapshot.Collection{
			ID:          c.ID,
			Name:        c.Name,
			Collections: make([]snapshot.Collection, 0, len(children[id])),
			DocumentIDs: make([]int64, 0, len(c.ItemIDs)),
		}
		for _, itemID := range c.ItemIDs {
			if _, ok := docIDs[itemID]; ok {
				node.DocumentIDs = append(node.DocumentIDs, itemID)
			}
		}
		for _, childID := range children[id] {
			child, err := build(childID)
			if err != nil {
				return snapshot.Collection{}, err
			}
			node.Collections = append(node.Collections, child)
		}
		return node, nil
	}

	tree := make([]snapshot.Collection, 0, len(roots))
	for _, id := range roots {
		node, err := build(id)
		if err != nil {
			return nil, err
		}
		tree = append(tree, node)
	}

	if len(visited) != len(byID) {
		return nil, fmt.Errorf("%w: %d collections unreachable from any root", ErrCollectionCycle, len(byID)-len(visited))
	}
	return tree, nil
}
