package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Zotero stores timestamps as UTC in this layout.
const sqlTimeLayout = "2006-01-02 15:04:05"

// Zotero attachment link modes.
const (
	linkImportedFile = 0
	linkImportedURL  = 1
	linkLinkedFile   = 2
)

var annotationTypes = map[int]AnnotationType{
	1: AnnotationHighlight,
	2: AnnotationNote,
	3: AnnotationImage,
	4: AnnotationInk,
	5: AnnotationUnderline,
	6: AnnotationText,
}

// SQLite reads a Zotero data directory's zotero.sqlite.
type SQLite struct {
	db      *sql.DB
	dataDir string
}

var _ Repository = (*SQLite)(nil)

// OpenSQLite opens dbPath read-only. The database is opened immutable so a
// running Zotero holding its lock does not block the export.
func OpenSQLite(dbPath, dataDir string) (*SQLite, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("catalog db: %w", err)
	}

	db, err := sql.Open("sqlite", readOnlyDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open catalog db: %w", err)
	}

	return &SQLite{db: db, dataDir: dataDir}, nil
}

func readOnlyDSN(path string) string {
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro&immutable=1"}
	return u.String()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) ListLibraries(ctx context.Context) ([]Library, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.libraryID, l.type, COALESCE(g.name, '')
		FROM libraries l
		LEFT JOIN groups g ON g.libraryID = l.libraryID
		WHERE l.type IN ('user', 'group')
		ORDER BY l.libraryID`)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	defer rows.Close()

	var libs []Library
	for rows.Next() {
		var lib Library
		var typ, groupName string
		if err := rows.Scan(&lib.ID, &typ, &groupName); err != nil {
			return nil, err
		}
		lib.Name = groupName
		if typ == "user" {
			lib.Name = "My Library"
		}
		libs = append(libs, lib)
	}
	return libs, rows.Err()
}

func (s *SQLite) ListItems(ctx context.Context, libraryID int64) ([]Item, error) {
	items, err := s.loadItems(ctx, "i.libraryID = ?", libraryID)
	if err != nil {
		return nil, fmt.Errorf("list items of library %d: %w", libraryID, err)
	}
	return items, nil
}

func (s *SQLite) GetItem(ctx context.Context, id int64) (*Item, error) {
	items, err := s.loadItems(ctx, "i.itemID = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("item %d: %w", id, ErrItemNotFound)
	}
	return &items[0], nil
}

// loadItems loads regular items matching filter (a condition on alias i)
// together with their fields, creators, collections and tags.
func (s *SQLite) loadItems(ctx context.Context, filter string, arg any) ([]Item, error) {
	live := " AND i.itemID NOT IN (SELECT itemID FROM deletedItems)"

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.itemID, i.key, i.libraryID, t.typeName, i.dateAdded, i.dateModified
		FROM items i
		JOIN itemTypes t ON t.itemTypeID = i.itemTypeID
		WHERE `+filter+live+`
		  AND t.typeName NOT IN ('attachment', 'note', 'annotation')
		ORDER BY i.itemID`, arg)
	if err != nil {
		return nil, err
	}

	var items []Item
	index := make(map[int64]int)
	for rows.Next() {
		var it Item
		var added, modified string
		if err := rows.Scan(&it.ID, &it.Key, &it.LibraryID, &it.Kind, &added, &modified); err != nil {
			rows.Close()
			return nil, err
		}
		if it.DateAdded, err = parseSQLTime(added); err != nil {
			rows.Close()
			return nil, fmt.Errorf("item %d dateAdded: %w", it.ID, err)
		}
		if it.DateModified, err = parseSQLTime(modified); err != nil {
			rows.Close()
			return nil, fmt.Errorf("item %d dateModified: %w", it.ID, err)
		}
		it.Creators = []Creator{}
		it.CollectionIDs = []int64{}
		it.Tags = []string{}
		index[it.ID] = len(items)
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	if err := s.loadFields(ctx, filter, arg, items, index); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if err := s.loadCreators(ctx, filter, arg, items, index); err != nil {
		return nil, fmt.Errorf("creators: %w", err)
	}
	if err := s.loadItemCollections(ctx, filter, arg, items, index); err != nil {
		return nil, fmt.Errorf("collections: %w", err)
	}
	if err := s.loadTags(ctx, filter, arg, items, index); err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}
	return items, nil
}

func (s *SQLite) loadFields(ctx context.Context, filter string, arg any, items []Item, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.itemID, f.fieldName, v.value
		FROM itemData d
		JOIN fields f ON f.fieldID = d.fieldID
		JOIN itemDataValues v ON v.valueID = d.valueID
		JOIN items i ON i.itemID = d.itemID
		WHERE `+filter+`
		  AND f.fieldName IN ('title', 'shortTitle', 'abstractNote', 'date', 'url', 'citationKey')`, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		var value sql.NullString
		if err := rows.Scan(&id, &name, &value); err != nil {
			return err
		}
		pos, ok := index[id]
		if !ok {
			continue
		}
		it := &items[pos]
		switch name {
		case "title":
			it.DisplayTitle = value.String
		case "shortTitle":
			it.ShortTitle = value.String
		case "abstractNote":
			it.AbstractNote = value.String
		case "date":
			it.Date = multipartToStr(value.String)
		case "url":
			it.URL = value.String
		case "citationKey":
			it.CitationKey = value.String
		}
	}
	return rows.Err()
}

func (s *SQLite) loadCreators(ctx context.Context, filter string, arg any, items []Item, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ic.itemID, ct.creatorType, c.firstName, c.lastName, COALESCE(c.fieldMode, 0)
		FROM itemCreators ic
		JOIN creators c ON c.creatorID = ic.creatorID
		JOIN creatorTypes ct ON ct.creatorTypeID = ic.creatorTypeID
		JOIN items i ON i.itemID = ic.itemID
		WHERE `+filter+`
		ORDER BY ic.itemID, ic.orderIndex`, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var role string
		var first, last sql.NullString
		var fieldMode int
		if err := rows.Scan(&id, &role, &first, &last, &fieldMode); err != nil {
			return err
		}
		pos, ok := index[id]
		if !ok {
			continue
		}

		c := Creator{Role: role}
		if fieldMode == 1 {
			// single-field creators keep the whole name in lastName
			c.Name = nullPtr(last)
		} else {
			c.FirstName = nullPtr(first)
			c.LastName = nullPtr(last)
		}
		items[pos].Creators = append(items[pos].Creators, c)
	}
	return rows.Err()
}

func (s *SQLite) loadItemCollections(ctx context.Context, filter string, arg any, items []Item, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.itemID, ci.collectionID
		FROM collectionItems ci
		JOIN items i ON i.itemID = ci.itemID
		WHERE `+filter+`
		  AND ci.collectionID NOT IN (SELECT collectionID FROM deletedCollections)
		ORDER BY ci.itemID, ci.collectionID`, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, collectionID int64
		if err := rows.Scan(&id, &collectionID); err != nil {
			return err
		}
		if pos, ok := index[id]; ok {
			items[pos].CollectionIDs = append(items[pos].CollectionIDs, collectionID)
		}
	}
	return rows.Err()
}

func (s *SQLite) loadTags(ctx context.Context, filter string, arg any, items []Item, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT it.itemID, t.name
		FROM itemTags it
		JOIN tags t ON t.tagID = it.tagID
		JOIN items i ON i.itemID = it.itemID
		WHERE `+filter+`
		ORDER BY it.itemID, t.name`, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		if pos, ok := index[id]; ok {
			items[pos].Tags = append(items[pos].Tags, name)
		}
	}
	return rows.Err()
}

func (s *SQLite) GetCollections(ctx context.Context, libraryID int64) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collectionID, collectionName, COALESCE(parentCollectionID, 0)
		FROM collections
		WHERE libraryID = ?
		  AND collectionID NOT IN (SELECT collectionID FROM deletedCollections)
		ORDER BY collectionName COLLATE NOCASE, collectionID`, libraryID)
	if err != nil {
		return nil, fmt.Errorf("list collections of library %d: %w", libraryID, err)
	}

	var cols []Collection
	index := make(map[int64]int)
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			rows.Close()
			return nil, err
		}
		c.ItemIDs = []int64{}
		index[c.ID] = len(cols)
		cols = append(cols, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT ci.collectionID, ci.itemID
		FROM collectionItems ci
		JOIN collections c ON c.collectionID = ci.collectionID
		WHERE c.libraryID = ?
		  AND ci.itemID NOT IN (SELECT itemID FROM deletedItems)
		ORDER BY ci.collectionID, ci.orderIndex, ci.itemID`, libraryID)
	if err != nil {
		return nil, fmt.Errorf("list collection items of library %d: %w", libraryID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var collectionID, itemID int64
		if err := rows.Scan(&collectionID, &itemID); err != nil {
			return nil, err
		}
		if pos, ok := index[collectionID]; ok {
			cols[pos].ItemIDs = append(cols[pos].ItemIDs, itemID)
		}
	}
	return cols, rows.Err()
}

// GetAttachments returns the attachments of parentID, oldest first.
func (s *SQLite) GetAttachments(ctx context.Context, parentID int64) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.itemID, i.key, COALESCE(a.parentItemID, 0), COALESCE(a.contentType, ''),
		       a.linkMode, COALESCE(a.path, '')
		FROM itemAttachments a
		JOIN items i ON i.itemID = a.itemID
		WHERE a.parentItemID = ?
		  AND i.itemID NOT IN (SELECT itemID FROM deletedItems)
		ORDER BY i.dateAdded, i.itemID`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list attachments of item %d: %w", parentID, err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var a Attachment
		var linkMode int
		var rawPath string
		if err := rows.Scan(&a.ID, &a.Key, &a.ParentID, &a.ContentType, &linkMode, &rawPath); err != nil {
			return nil, err
		}
		a.Path = s.resolveAttachmentPath(a.Key, linkMode, rawPath)
		out = append(out, a)
	}
	return out, rows.Err()
}

// resolveAttachmentPath maps a stored attachment path to a file-system path.
// Paths relative to the user's base attachment directory cannot be resolved
// from the database alone and yield "".
func (s *SQLite) resolveAttachmentPath(key string, linkMode int, raw string) string {
	switch linkMode {
	case linkImportedFile, linkImportedURL:
		name, ok := strings.CutPrefix(raw, "storage:")
		if !ok || name == "" {
			return ""
		}
		return filepath.Join(s.dataDir, "storage", key, filepath.FromSlash(name))
	case linkLinkedFile:
		if raw == "" || strings.HasPrefix(raw, "attachments:") {
			return ""
		}
		return raw
	default:
		return ""
	}
}

func (s *SQLite) GetAnnotations(ctx context.Context, attachmentID int64) ([]Annotation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.itemID, i.key, a.type, COALESCE(a.text, ''), COALESCE(a.comment, ''),
		       COALESCE(a.color, ''), COALESCE(a.pageLabel, ''), COALESCE(a.position, ''),
		       i.dateAdded, i.dateModified
		FROM itemAnnotations a
		JOIN items i ON i.itemID = a.itemID
		WHERE a.parentItemID = ?
		  AND i.itemID NOT IN (SELECT itemID FROM deletedItems)
		ORDER BY a.sortIndex, i.itemID`, attachmentID)
	if err != nil {
		return nil, fmt.Errorf("list annotations of attachment %d: %w", attachmentID, err)
	}

	var out []Annotation
	index := make(map[int64]int)
	for rows.Next() {
		var a Annotation
		var typ int
		var added, modified string
		if err := rows.Scan(&a.ID, &a.Key, &typ, &a.Text, &a.Comment, &a.Color, &a.PageLabel, &a.Position, &added, &modified); err != nil {
			rows.Close()
			return nil, err
		}
		a.Type = annotationTypes[typ]
		if a.Type == "" {
			a.Type = AnnotationType(fmt.Sprintf("type%d", typ))
		}
		if a.DateAdded, err = parseSQLTime(added); err != nil {
			rows.Close()
			return nil, fmt.Errorf("annotation %d dateAdded: %w", a.ID, err)
		}
		if a.DateModified, err = parseSQLTime(modified); err != nil {
			rows.Close()
			return nil, fmt.Errorf("annotation %d dateModified: %w", a.ID, err)
		}
		a.Tags = []string{}
		index[a.ID] = len(out)
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT it.itemID, t.name
		FROM itemTags it
		JOIN tags t ON t.tagID = it.tagID
		JOIN itemAnnotations a ON a.itemID = it.itemID
		WHERE a.parentItemID = ?
		ORDER BY it.itemID, t.name`, attachmentID)
	if err != nil {
		return nil, fmt.Errorf("list annotation tags of attachment %d: %w", attachmentID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		if pos, ok := index[id]; ok {
			out[pos].Tags = append(out[pos].Tags, name)
		}
	}
	return out, rows.Err()
}

func parseSQLTime(s string) (time.Time, error) {
	return time.ParseInLocation(sqlTimeLayout, s, time.UTC)
}

// multipartToStr strips the "YYYY-MM-DD " sortable prefix Zotero stores in
// front of the user-entered date.
func multipartToStr(v string) string {
	if len(v) > 11 && v[4] == '-' && v[7] == '-' && v[10] == ' ' {
		return v[11:]
	}
	return v
}

func nullPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
