package catalog

import "time"

type Library struct {
	ID   int64
	Name string
}

// Item is one catalog entry. DisplayTitle is the host's computed title,
// ShortTitle the optional alternate one.
type Item struct {
	ID            int64
	Key           string
	LibraryID     int64
	Kind          string // host item type name, e.g. "journalArticle"
	ShortTitle    string
	DisplayTitle  string
	AbstractNote  string
	Date          string
	URL           string
	CitationKey   string
	Creators      []Creator
	CollectionIDs []int64
	Tags          []string
	DateAdded     time.Time
	DateModified  time.Time
}

// Creator carries either a combined single-field name or a first/last
// pair. Nil means the field is absent in the host record.
type Creator struct {
	Role      string // "author", "editor", ...
	Name      *string
	FirstName *string
	LastName  *string
}

type Collection struct {
	ID       int64
	Name     string
	ParentID int64 // 0 for top-level collections
	ItemIDs  []int64
}

type Attachment struct {
	ID          int64
	Key         string
	ParentID    int64 // 0 for standalone attachments
	ContentType string
	Path        string // absolute file path, "" when it cannot be resolved
}

func (a Attachment) IsPDF() bool {
	return a.ContentType == "application/pdf"
}

type Annotation struct {
	ID           int64
	Key          string
	Type         AnnotationType
	Text         string
	Comment      string
	Color        string
	PageLabel    string
	Position     string // raw position JSON
	DateAdded    time.Time
	DateModified time.Time
	Tags         []string
}

// AnnotationType is the host's annotation kind. The set is open: unknown
// values pass through untouched.
type AnnotationType string

const (
	AnnotationHighlight AnnotationType = "highlight"
	AnnotationUnderline AnnotationType = "underline"
	AnnotationNote      AnnotationType = "note"
	AnnotationText      AnnotationType = "text"
	AnnotationImage     AnnotationType = "image"
	AnnotationInk       AnnotationType = "ink"
)

// StringPtr is shorthand for building Creator values.
func StringPtr(s string) *string {
	return &s
}
