package catalog

import (
	"context"
	"fmt"
)

// Memory is a Repository over plain slices, for tests and fixtures.
type Memory struct {
	Libraries   []Library
	Items       []Item
	Collections map[int64][]Collection // by library id
	Attachments []Attachment
	Annotations map[int64][]Annotation // by attachment id
}

var _ Repository = (*Memory)(nil)

func (m *Memory) ListLibraries(ctx context.Context) ([]Library, error) {
	return append([]Library(nil), m.Libraries...), nil
}

func (m *Memory) ListItems(ctx context.Context, libraryID int64) ([]Item, error) {
	var items []Item
	for _, it := range m.Items {
		if it.LibraryID == libraryID {
			items = append(items, it)
		}
	}
	return items, nil
}

func (m *Memory) GetItem(ctx context.Context, id int64) (*Item, error) {
	for i := range m.Items {
		if m.Items[i].ID == id {
			it := m.Items[i]
			return &it, nil
		}
	}
	return nil, fmt.Errorf("item %d: %w", id, ErrItemNotFound)
}

func (m *Memory) GetCollections(ctx context.Context, libraryID int64) ([]Collection, error) {
	return append([]Collection(nil), m.Collections[libraryID]...), nil
}

func (m *Memory) GetAttachments(ctx context.Context, parentID int64) ([]Attachment, error) {
	var out []Attachment
	for _, a := range m.Attachments {
		if a.ParentID == parentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) GetAnnotations(ctx context.Context, attachmentID int64) ([]Annotation, error) {
	return append([]Annotation(nil), m.Annotations[attachmentID]...), nil
}
