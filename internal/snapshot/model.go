// Package snapshot defines the versioned JSON files exchanged with the
// companion importer: index.json, select.json and export.json.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"
)

// APIVersion is the protocol revision written into every file and required
// of the companion's reply.
const APIVersion = 1

type Index struct {
	Version int       `json:"version"`
	Data    IndexData `json:"data"`
}

type IndexData struct {
	Libraries []Library `json:"libraries"`
}

func NewIndex(libraries []Library) *Index {
	if libraries == nil {
		libraries = []Library{}
	}
	return &Index{Version: APIVersion, Data: IndexData{Libraries: libraries}}
}

type Library struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Documents   []Document   `json:"documents"`
	Collections []Collection `json:"collections"`
}

type Collection struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Collections []Collection `json:"collections"`
	DocumentIDs []int64      `json:"document_ids"`
}

type Document struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Authors       []Author  `json:"authors"`
	CollectionIDs []int64   `json:"collection_ids"`
	DateAdded     time.Time `json:"date_added"`
	DateModified  time.Time `json:"date_modified"`
}

type Author struct {
	Name AuthorName `json:"name"`
}

type NameFormat string

const (
	FormatCombined NameFormat = "combined"
	FormatFull     NameFormat = "full"
)

// AuthorName is a tagged union: exactly one of Combined or Full is
// meaningful, selected by Format.
type AuthorName struct {
	Format   NameFormat
	Combined string
	Full     FullName
}

type FullName struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

func CombinedAuthor(name string) Author {
	return Author{Name: AuthorName{Format: FormatCombined, Combined: name}}
}

func FullAuthor(first, last string) Author {
	return Author{Name: AuthorName{Format: FormatFull, Full: FullName{First: first, Last: last}}}
}

func (n AuthorName) String() string {
	if n.Format == FormatFull {
		return n.Full.First + " " + n.Full.Last
	}
	return n.Combined
}

func (n AuthorName) MarshalJSON() ([]byte, error) {
	switch n.Format {
	case FormatCombined:
		return json.Marshal(struct {
			Format NameFormat `json:"format"`
			Value  string     `json:"value"`
		}{n.Format, n.Combined})
	case FormatFull:
		return json.Marshal(struct {
			Format NameFormat `json:"format"`
			Value  FullName   `json:"value"`
		}{n.Format, n.Full})
	default:
		return nil, fmt.Errorf("author name: unknown format %q", n.Format)
	}
}

func (n *AuthorName) UnmarshalJSON(data []byte) error {
	var raw struct {
		Format NameFormat      `json:"format"`
		Value  json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Format {
	case FormatCombined:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("author name: combined value: %w", err)
		}
		*n = AuthorName{Format: FormatCombined, Combined: s}
	case FormatFull:
		var full FullName
		if err := json.Unmarshal(raw.Value, &full); err != nil {
			return fmt.Errorf("author name: full value: %w", err)
		}
		*n = AuthorName{Format: FormatFull, Full: full}
	default:
		return fmt.Errorf("author name: unknown format %q", raw.Format)
	}
	return nil
}

// SelectionFile is the companion's reply to the select stage.
type SelectionFile struct {
	Version   int        `json:"version"`
	Selection *Selection `json:"selection"`
}

type Selection struct {
	LibraryID  int64 `json:"library_id"`
	DocumentID int64 `json:"document_id"`
}

type Export struct {
	Version int        `json:"version"`
	Data    ExportData `json:"data"`
}

type ExportData struct {
	Source      Source       `json:"source"`
	Annotations []Annotation `json:"annotations"`
}

func NewExport(source Source, annotations []Annotation) *Export {
	if annotations == nil {
		annotations = []Annotation{}
	}
	return &Export{
		Version: APIVersion,
		Data:    ExportData{Source: source, Annotations: annotations},
	}
}

type Source struct {
	Library      int64     `json:"library"`
	ID           int64     `json:"id"`
	Key          string    `json:"key"`
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	Note         *string   `json:"note,omitempty"`
	Date         string    `json:"date"`
	URL          *string   `json:"url,omitempty"`
	Authors      []Author  `json:"authors"`
	Tags         []Tag     `json:"tags"`
	DateAdded    time.Time `json:"date_added"`
	DateModified time.Time `json:"date_modified"`
	Path         string    `json:"path"`
	CitationKey  string    `json:"citation_key,omitempty"`
}

// AnnotationKind is the kind written on the wire. Only Highlight is
// modelled; every other host kind is reported as Unknown.
type AnnotationKind string

const (
	KindHighlight AnnotationKind = "Highlight"
	KindUnknown   AnnotationKind = "Unknown"
)

type Annotation struct {
	Key          string         `json:"key"`
	Kind         AnnotationKind `json:"kind"`
	Page         int            `json:"page"`
	Text         *string        `json:"text,omitempty"`
	Comment      *string        `json:"comment,omitempty"`
	Colour       string         `json:"colour"`
	DateAdded    time.Time      `json:"date_added"`
	DateModified time.Time      `json:"date_modified"`
	Tags         []Tag          `json:"tags"`
}

type Tag struct {
	Name string `json:"name"`
}

// Tags maps tag names to wire tags, never returning nil.
func Tags(names []string) []Tag {
	out := make([]Tag, 0, len(names))
	for _, n := range names {
		out = append(out, Tag{Name: n})
	}
	return out
}
