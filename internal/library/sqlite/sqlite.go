// Package sqlite stores library records in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dgallion1/corpusload/internal/library"
)

// Store implements library.Sink and library.Reader.
type Store struct {
	db *sql.DB
}

var (
	_ library.Sink   = (*Store)(nil)
	_ library.Reader = (*Store)(nil)
)

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS indexes (
	title TEXT PRIMARY KEY,
	categories TEXT NOT NULL,
	levels TEXT NOT NULL,
	schema_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS versions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	version_title TEXT,
	version_source TEXT,
	language TEXT,
	chapter TEXT NOT NULL,
	content_hash TEXT,
	import_id TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_versions_title ON versions(title);

CREATE TABLE IF NOT EXISTS terms (
	scheme TEXT NOT NULL,
	name TEXT NOT NULL,
	title TEXT,
	he_title TEXT,
	PRIMARY KEY(scheme, name)
);

CREATE TABLE IF NOT EXISTS categories (
	position INTEGER NOT NULL,
	path TEXT PRIMARY KEY,
	title TEXT,
	he_title TEXT
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// ReplaceIndex deletes the index with the same title and writes idx.
func (s *Store) ReplaceIndex(ctx context.Context, idx library.Index) error {
	cats, err := json.Marshal(nonNil(idx.Categories))
	if err != nil {
		return err
	}
	levels, err := json.Marshal(nonNil(idx.Levels))
	if err != nil {
		return err
	}
	schema, err := json.Marshal(idx.Schema)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM indexes WHERE title=?`, idx.Title); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO indexes (title, categories, levels, schema_json) VALUES (?, ?, ?, ?)`,
		idx.Title, string(cats), string(levels), string(schema),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceVersion deletes every version of v.Title and writes v.
func (s *Store) ReplaceVersion(ctx context.Context, v library.Version) error {
	chapter, err := json.Marshal(v.Chapter)
	if err != nil {
		return fmt.Errorf("marshal chapter: %w", err)
	}
	created := v.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM versions WHERE title=?`, v.Title); err != nil {
		return err
	}
	const stmt = `
INSERT INTO versions (title, version_title, version_source, language, chapter, content_hash, import_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`
	if _, err := tx.ExecContext(ctx, stmt,
		v.Title, v.VersionTitle, v.VersionSource, v.Language, string(chapter),
		v.ContentHash, v.ImportID, created.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceTerms deletes every term of scheme and writes terms.
func (s *Store) ReplaceTerms(ctx context.Context, scheme string, terms []library.Term) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM terms WHERE scheme=?`, scheme); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO terms (scheme, name, title, he_title) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range terms {
		if t.Name == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, scheme, t.Name, t.Title, t.HeTitle); err != nil {
			return fmt.Errorf("insert term %q: %w", t.Name, err)
		}
	}
	return tx.Commit()
}

// ReplaceCategories deletes the whole taxonomy and writes cats in order.
func (s *Store) ReplaceCategories(ctx context.Context, cats []library.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO categories (position, path, title, he_title) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range cats {
		if len(c.Path) == 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, i, joinPath(c.Path), c.Title, c.HeTitle); err != nil {
			return fmt.Errorf("insert category %v: %w", c.Path, err)
		}
	}
	return tx.Commit()
}

// DeleteIndex removes the index titled title. Missing titles are not an error.
func (s *Store) DeleteIndex(ctx context.Context, title string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM indexes WHERE title=?`, title)
	return err
}

// DeleteVersions removes every version of title.
func (s *Store) DeleteVersions(ctx context.Context, title string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM versions WHERE title=?`, title)
	return err
}

func (s *Store) ListIndexes(ctx context.Context) ([]library.Index, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title, categories, levels, schema_json FROM indexes ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.Index
	for rows.Next() {
		idx, err := scanIndex(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

func (s *Store) GetIndex(ctx context.Context, title string) (library.Index, error) {
	row := s.db.QueryRowContext(ctx, `SELECT title, categories, levels, schema_json FROM indexes WHERE title=?`, title)
	idx, err := scanIndex(row)
	if errors.Is(err, sql.ErrNoRows) {
		return library.Index{}, fmt.Errorf("index %q: %w", title, library.ErrNotFound)
	}
	return idx, err
}

// GetVersion returns the most recently written version of title.
func (s *Store) GetVersion(ctx context.Context, title string) (library.Version, error) {
	const q = `
SELECT title, version_title, version_source, language, chapter, content_hash, import_id, created_at
FROM versions WHERE title=? ORDER BY id DESC LIMIT 1
`
	var v library.Version
	var chapter, created string
	var vt, vs, lang, hash, importID sql.NullString
	err := s.db.QueryRowContext(ctx, q, title).Scan(&v.Title, &vt, &vs, &lang, &chapter, &hash, &importID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return library.Version{}, fmt.Errorf("version %q: %w", title, library.ErrNotFound)
	}
	if err != nil {
		return library.Version{}, err
	}
	v.VersionTitle, v.VersionSource, v.Language = vt.String, vs.String, lang.String
	v.ContentHash, v.ImportID = hash.String, importID.String
	if err := json.Unmarshal([]byte(chapter), &v.Chapter); err != nil {
		return library.Version{}, fmt.Errorf("decode chapter: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		v.CreatedAt = t
	}
	return v, nil
}

func (s *Store) ListTerms(ctx context.Context, scheme string) ([]library.Term, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, title, he_title FROM terms WHERE scheme=? ORDER BY rowid`, scheme)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.Term
	for rows.Next() {
		t := library.Term{Scheme: scheme}
		var title, he sql.NullString
		if err := rows.Scan(&t.Name, &title, &he); err != nil {
			return nil, err
		}
		t.Title, t.HeTitle = title.String, he.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context) ([]library.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, title, he_title FROM categories ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.Category
	for rows.Next() {
		var path string
		var title, he sql.NullString
		if err := rows.Scan(&path, &title, &he); err != nil {
			return nil, err
		}
		out = append(out, library.Category{Path: splitPath(path), Title: title.String, HeTitle: he.String})
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIndex(row scanner) (library.Index, error) {
	var idx library.Index
	var cats, levels, schema string
	if err := row.Scan(&idx.Title, &cats, &levels, &schema); err != nil {
		return library.Index{}, err
	}
	if err := json.Unmarshal([]byte(cats), &idx.Categories); err != nil {
		return library.Index{}, fmt.Errorf("decode categories: %w", err)
	}
	if err := json.Unmarshal([]byte(levels), &idx.Levels); err != nil {
		return library.Index{}, fmt.Errorf("decode levels: %w", err)
	}
	if err := json.Unmarshal([]byte(schema), &idx.Schema); err != nil {
		return library.Index{}, fmt.Errorf("decode schema: %w", err)
	}
	return idx, nil
}

// Category paths are stored joined by a unit separator, which never occurs
// in a category name.
const pathSep = "\x1f"

func joinPath(p []string) string  { return strings.Join(p, pathSep) }
func splitPath(s string) []string { return strings.Split(s, pathSep) }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
