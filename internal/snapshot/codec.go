package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrUnreadable marks a snapshot file that is missing or is not valid JSON
// of the expected shape.
var ErrUnreadable = errors.New("snapshot unreadable")

// Encode serialises v. Pretty output is tab-indented.
func Encode(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "\t")
	}
	return json.Marshal(v)
}

// ReadSelection reads the companion's reply. The version is not checked
// here; callers compare it against APIVersion.
func ReadSelection(path string) (*SelectionFile, error) {
	return readJSON[SelectionFile](path)
}

func ReadIndex(path string) (*Index, error) {
	return readJSON[Index](path)
}

func ReadExport(path string) (*Export, error) {
	return readJSON[Export](path)
}

func readJSON[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	return &v, nil
}
