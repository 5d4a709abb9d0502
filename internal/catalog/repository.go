package catalog

import (
	"context"
	"errors"
)

var (
	// ErrItemNotFound is returned by GetItem for an unknown id.
	ErrItemNotFound = errors.New("item not found")

	// ErrMalformedCreator marks a creator with neither a combined name nor
	// a first/last pair.
	ErrMalformedCreator = errors.New("malformed creator record")
)

// Repository is the read-only view of the host library the exporter
// depends on. Implementations return records in the host's order.
type Repository interface {
	ListLibraries(ctx context.Context) ([]Library, error)
	ListItems(ctx context.Context, libraryID int64) ([]Item, error)
	GetItem(ctx context.Context, id int64) (*Item, error)
	GetCollections(ctx context.Context, libraryID int64) ([]Collection, error)
	GetAttachments(ctx context.Context, parentID int64) ([]Attachment, error)
	GetAnnotations(ctx context.Context, attachmentID int64) ([]Annotation, error)
}

// DocumentKinds are the item types treated as documents, both for the index
// and for validating a selection.
var DocumentKinds = []string{
	"document",
	"blogPost",
	"book",
	"bookSection",
	"journalArticle",
	"magazineArticle",
	"manuscript",
	"newspaperArticle",
	"preprint",
	"presentation",
	"report",
	"thesis",
	"webpage",
}

var documentKindSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(DocumentKinds))
	for _, k := range DocumentKinds {
		m[k] = struct{}{}
	}
	return m
}()

func IsDocument(kind string) bool {
	_, ok := documentKindSet[kind]
	return ok
}
