package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
)

// PageID is the dump-assigned page identifier. Zero is reserved for "none".
type PageID uint32

// None is the reserved null PageID.
const None PageID = 0

var (
	// ErrIncomplete means the index directory has no build_complete
	// marker: a build either never ran or died partway through.
	ErrIncomplete = errors.New("index is incomplete, run `wikipath index` first")

	// ErrUnknownTitle means a queried title resolves to no page.
	ErrUnknownTitle = errors.New("unknown title")
)

const dbFile = "index.db"

// Store is the embedded page/redirect/metadata database backing an index
// directory. Open it with Create for an exclusive build, or Open for
// shared read-only queries.
type Store struct {
	db       *sql.DB
	dir      string
	writable bool
}

// Create opens dir for a fresh build, clearing any previous index files.
func Create(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	path := filepath.Join(dir, dbFile)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to clear previous index: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	// Bulk-load pragmas. Durability mid-build does not matter: a crashed
	// build has no build_complete marker and gets rebuilt from scratch.
	pragmas := `
		PRAGMA journal_mode = OFF;
		PRAGMA synchronous = OFF;
		PRAGMA temp_store = MEMORY;
		PRAGMA cache_size = 100000;
	`
	if _, err := db.Exec(pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	// Writes from one goroutine only; a single connection keeps the
	// prepared statements and the OFF-journal pragmas on the same handle.
	db.SetMaxOpenConns(1)
	return &Store{db: db, dir: dir, writable: true}, nil
}

// Open opens an existing index read-only. Fails with ErrIncomplete when
// the build_complete marker is missing.
func Open(dir string) (*Store, error) {
	path := filepath.Join(dir, dbFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIncomplete
		}
		return nil, err
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	s := &Store{db: db, dir: dir}
	done, err := s.Complete()
	if err != nil {
		db.Close()
		return nil, err
	}
	if !done {
		db.Close()
		return nil, ErrIncomplete
	}
	return s, nil
}

// Dir returns the index directory the store lives in.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a batch transaction for the ingest stages.
func (s *Store) Begin() (*sql.Tx, error) {
	return s.db.Begin()
}

// SavePage records both directions of the interner mapping. The returned
// flag reports whether an existing row had to be replaced; the dump is
// authoritative, so the later row wins.
func (s *Store) SavePage(tx *sql.Tx, id PageID, ns int32, title []byte, isRedirect bool) (replaced bool, err error) {
	_, err = tx.Exec(
		"INSERT INTO pages (id, ns, title, is_redirect) VALUES (?, ?, ?, ?)",
		int64(id), ns, title, boolInt(isRedirect),
	)
	if err == nil {
		return false, nil
	}
	var serr sqlite3.Error
	if !errors.As(err, &serr) || serr.Code != sqlite3.ErrConstraint {
		return false, fmt.Errorf("failed to save page %d: %w", id, err)
	}
	// Either the id or the (ns,title) key collided. Drop both stale rows
	// so neither direction of the mapping can disagree.
	if _, err := tx.Exec("DELETE FROM pages WHERE id = ? OR (ns = ? AND title = ?)", int64(id), ns, title); err != nil {
		return false, fmt.Errorf("failed to replace page %d: %w", id, err)
	}
	if _, err := tx.Exec(
		"INSERT INTO pages (id, ns, title, is_redirect) VALUES (?, ?, ?, ?)",
		int64(id), ns, title, boolInt(isRedirect),
	); err != nil {
		return false, fmt.Errorf("failed to replace page %d: %w", id, err)
	}
	return true, nil
}

// SaveRedirect records one entry of the materialized terminal-redirect map.
func (s *Store) SaveRedirect(tx *sql.Tx, from, to PageID) error {
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO redirects (id, target) VALUES (?, ?)",
		int64(from), int64(to),
	); err != nil {
		return fmt.Errorf("failed to save redirect %d -> %d: %w", from, to, err)
	}
	return nil
}

// LookupPage is the forward interner lookup.
func (s *Store) LookupPage(ns int32, title []byte) (id PageID, isRedirect bool, found bool, err error) {
	var rawID int64
	var redirect int
	err = s.db.QueryRow(
		"SELECT id, is_redirect FROM pages WHERE ns = ? AND title = ?",
		ns, title,
	).Scan(&rawID, &redirect)
	if err == sql.ErrNoRows {
		return None, false, false, nil
	}
	if err != nil {
		return None, false, false, err
	}
	return PageID(rawID), redirect != 0, true, nil
}

// LookupTitle is the reverse interner lookup.
func (s *Store) LookupTitle(id PageID) (ns int32, title []byte, found bool, err error) {
	err = s.db.QueryRow(
		"SELECT ns, title FROM pages WHERE id = ?",
		int64(id),
	).Scan(&ns, &title)
	if err == sql.ErrNoRows {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return ns, title, true, nil
}

// RedirectTarget returns the terminal page a redirect points at.
func (s *Store) RedirectTarget(id PageID) (PageID, bool, error) {
	var target int64
	err := s.db.QueryRow("SELECT target FROM redirects WHERE id = ?", int64(id)).Scan(&target)
	if err == sql.ErrNoRows {
		return None, false, nil
	}
	if err != nil {
		return None, false, err
	}
	return PageID(target), true, nil
}

// Resolve maps a (namespace,title) key to its terminal page. A redirect is
// followed through the materialized map in a single hop; a redirect whose
// target was dropped resolves to nothing.
func (s *Store) Resolve(ns int32, title []byte) (PageID, bool, error) {
	id, isRedirect, found, err := s.LookupPage(ns, title)
	if err != nil || !found {
		return None, false, err
	}
	if !isRedirect {
		return id, true, nil
	}
	target, ok, err := s.RedirectTarget(id)
	if err != nil || !ok {
		return None, false, err
	}
	return target, true, nil
}

// TitleMatch is one row of a title search.
type TitleMatch struct {
	ID         PageID
	Namespace  int32
	Title      []byte
	IsRedirect bool
}

// SearchTitles runs a SQL LIKE pattern over the stored titles.
func (s *Store) SearchTitles(pattern string, limit int) ([]TitleMatch, error) {
	rows, err := s.db.Query(
		"SELECT id, ns, title, is_redirect FROM pages WHERE CAST(title AS TEXT) LIKE ? ORDER BY id LIMIT ?",
		pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search titles: %w", err)
	}
	defer rows.Close()

	var matches []TitleMatch
	for rows.Next() {
		var m TitleMatch
		var rawID int64
		var redirect int
		if err := rows.Scan(&rawID, &m.Namespace, &m.Title, &redirect); err != nil {
			return nil, err
		}
		m.ID = PageID(rawID)
		m.IsRedirect = redirect != 0
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// MaxPageID returns the highest page id in the interner.
func (s *Store) MaxPageID() (PageID, error) {
	var max sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(id) FROM pages").Scan(&max); err != nil {
		return None, err
	}
	if !max.Valid {
		return None, nil
	}
	return PageID(max.Int64), nil
}

// PageCount returns the number of interned pages.
func (s *Store) PageCount() (int64, error) {
	var n int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&n)
	return n, err
}

func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	return err
}

func (s *Store) GetMeta(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// MarkComplete stamps the index as queryable. Must be the last write of a
// build.
func (s *Store) MarkComplete() error {
	return s.SetMeta(metaComplete, "1")
}

// Complete reports whether the build_complete marker is present.
func (s *Store) Complete() (bool, error) {
	_, found, err := s.GetMeta(metaComplete)
	return found, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
