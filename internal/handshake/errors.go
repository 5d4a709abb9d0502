package handshake

import "fmt"

// Kind classifies a failed run. Callers switch on it to decide what to
// tell the user.
type Kind int

const (
	KindUnknown Kind = iota
	KindWorkDir
	KindRunInProgress
	KindBuildIndex
	KindSelect
	KindSelectionUnreadable
	KindUnsupportedAPIVersion
	KindBadDocumentType
	KindExportUnavailable
	KindImport
	KindCatalog
)

var kindNames = map[Kind]string{
	KindUnknown:               "Unknown",
	KindWorkDir:               "WorkDirError",
	KindRunInProgress:         "RunInProgress",
	KindBuildIndex:            "BuildIndexError",
	KindSelect:                "SelectError",
	KindSelectionUnreadable:   "SelectionUnreadable",
	KindUnsupportedAPIVersion: "UnsupportedApiVersion",
	KindBadDocumentType:       "BadDocumentType",
	KindExportUnavailable:     "ExportUnavailable",
	KindImport:                "ImportError",
	KindCatalog:               "CatalogError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the terminal failure of a run. State is where the run stopped.
// Dispatcher sentinels such as platform.ErrImporterNotFound stay reachable
// through errors.Is.
type Error struct {
	Kind  Kind
	State State
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s at %s", e.Kind, e.State)
	}
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.State, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(kind Kind, state State, err error) *Error {
	return &Error{Kind: kind, State: state, Err: err}
}
