// Package export turns one catalog document and its first attachment into
// the export snapshot handed to the companion importer.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Zuo-Peng/zo-export/internal/catalog"
	"github.com/Zuo-Peng/zo-export/internal/index"
	"github.com/Zuo-Peng/zo-export/internal/snapshot"
)

// KindPolicy maps a host annotation type to its wire kind.
type KindPolicy func(catalog.AnnotationType) snapshot.AnnotationKind

// DefaultKindPolicy keeps highlights and reports everything else as Unknown.
func DefaultKindPolicy(t catalog.AnnotationType) snapshot.AnnotationKind {
	if t == catalog.AnnotationHighlight {
		return snapshot.KindHighlight
	}
	return snapshot.KindUnknown
}

type Options struct {
	KindPolicy KindPolicy
}

// Build assembles the export for documentID. A nil snapshot with a nil
// error means the document has nothing exportable: no attachment, a first
// attachment that is not a readable PDF, or a parent that cannot be found.
func Build(ctx context.Context, repo catalog.Repository, documentID int64, opts Options) (*snapshot.Export, error) {
	policy := opts.KindPolicy
	if policy == nil {
		policy = DefaultKindPolicy
	}

	atts, err := repo.GetAttachments(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("attachments of %d: %w", documentID, err)
	}
	if len(atts) == 0 {
		return nil, nil
	}

	// only the first attachment is considered
	att := atts[0]
	if !att.IsPDF() || att.Path == "" || !readableFile(att.Path) {
		return nil, nil
	}

	parentID := att.ParentID
	if parentID == 0 {
		parentID = documentID
	}
	parent, err := repo.GetItem(ctx, parentID)
	if errors.Is(err, catalog.ErrItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parent of attachment %d: %w", att.ID, err)
	}

	src, err := buildSource(*parent, att.Path)
	if err != nil {
		return nil, err
	}

	anns, err := repo.GetAnnotations(ctx, att.ID)
	if err != nil {
		return nil, fmt.Errorf("annotations of %d: %w", att.ID, err)
	}

	out := make([]snapshot.Annotation, 0, len(anns))
	for _, a := range anns {
		out = append(out, buildAnnotation(a, policy))
	}

	return snapshot.NewExport(src, out), nil
}

func buildSource(it catalog.Item, path string) (snapshot.Source, error) {
	authors, err := index.Authors(it.Creators)
	if err != nil {
		return snapshot.Source{}, fmt.Errorf("item %d: %w", it.ID, err)
	}

	return snapshot.Source{
		Library:      it.LibraryID,
		ID:           it.ID,
		Key:          it.Key,
		Kind:         it.Kind,
		Title:        index.Title(it),
		Note:         optional(it.AbstractNote),
		Date:         it.Date,
		URL:          optional(it.URL),
		Authors:      authors,
		Tags:         snapshot.Tags(it.Tags),
		DateAdded:    it.DateAdded.UTC(),
		DateModified: it.DateModified.UTC(),
		Path:         path,
		CitationKey:  it.CitationKey,
	}, nil
}

func buildAnnotation(a catalog.Annotation, policy KindPolicy) snapshot.Annotation {
	return snapshot.Annotation{
		Key:          a.Key,
		Kind:         policy(a.Type),
		Page:         Page(a.PageLabel, a.Position),
		Text:         optional(a.Text),
		Comment:      optional(a.Comment),
		Colour:       a.Color,
		DateAdded:    a.DateAdded.UTC(),
		DateModified: a.DateModified.UTC(),
		Tags:         snapshot.Tags(a.Tags),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func readableFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	return err == nil && info.Mode().IsRegular()
}
