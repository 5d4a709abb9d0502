package index

import (
	"fmt"

	"github.com/Zuo-Peng/zo-export/internal/catalog"
	"github.com/Zuo-Peng/zo-export/internal/snapshot"
)

// Title returns the short title when set, otherwise the display title.
func Title(it catalog.Item) string {
	if it.ShortTitle != "" {
		return it.ShortTitle
	}
	return it.DisplayTitle
}

// Authors keeps creators with the author role, in order. A creator with
// neither a combined name nor a first/last pair fails with
// catalog.ErrMalformedCreator.
func Authors(creators []catalog.Creator) ([]snapshot.Author, error) {
	out := make([]snapshot.Author, 0, len(creators))
	for i, c := range creators {
		if c.Role != "author" {
			continue
		}
		switch {
		case c.Name != nil:
			out = append(out, snapshot.CombinedAuthor(*c.Name))
		case c.FirstName != nil && c.LastName != nil:
			out = append(out, snapshot.FullAuthor(*c.FirstName, *c.LastName))
		default:
			return nil, fmt.Errorf("creator %d: %w", i, catalog.ErrMalformedCreator)
		}
	}
	return out, nil
}
