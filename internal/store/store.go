package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MetaLastSync is the meta key holding the time of the last completed sync.
const MetaLastSync = "last_sync"

// ErrNotSynced is returned when the cache has never completed a sync.
var ErrNotSynced = errors.New("gist cache has never been synced\nRun 'gistfinder --sync' first")

// Store provides persistence for gist file listings and their code.
type Store interface {
	// ReplaceList drops the list table and rewrites it with entries.
	ReplaceList(entries []GistFileEntry) error
	// ListEntries returns every list row.
	ListEntries() ([]GistFileEntry, error)
	// CodeURLs returns the file URLs that have code stored.
	CodeURLs() ([]string, error)
	// InsertCode stores the content for one file URL.
	InsertCode(b CodeBlob) error
	// DeleteCode removes the code rows for the given file URLs.
	DeleteCode(urls []string) error
	// JoinedFiles returns list rows that have code, ordered by file name
	// (case-insensitive) then description.
	JoinedFiles() ([]JoinedFile, error)
	// GetMeta returns a metadata value by key, or "" if not set.
	GetMeta(key string) (string, error)
	// SetMeta sets a metadata key-value pair.
	SetMeta(key, value string) error
	// LastSync returns the time of the last completed sync, or ErrNotSynced.
	LastSync() (time.Time, error)
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db     *sql.DB
	tables Tables
}

// Open creates or opens a SQLite database at the given path and initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	return OpenWithTables(dbPath, DefaultTables)
}

// OpenWithTables is Open with explicit table names.
func OpenWithTables(dbPath string, tables Tables) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db, tables); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db, tables: tables}, nil
}

// Remove deletes the database file at dbPath along with its WAL side files.
// Missing files are not an error.
func Remove(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

func (s *SQLiteStore) ReplaceList(entries []GistFileEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS " + s.tables.List); err != nil {
		return fmt.Errorf("drop list table: %w", err)
	}
	if _, err := tx.Exec(s.tables.listTableDDL()); err != nil {
		return fmt.Errorf("create list table: %w", err)
	}

	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s (gist_id, file_name, description, language, file_url, size, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		s.tables.List,
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.Exec(e.GistID, e.FileName, e.Description, e.Language, e.FileURL, e.Size, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert %s: %w", e.FileURL, err)
		}
	}

	if _, err := tx.Exec(s.tables.listIndexDDL()); err != nil {
		return fmt.Errorf("index list table: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListEntries() ([]GistFileEntry, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		"SELECT gist_id, file_name, description, language, file_url, size, created_at, updated_at FROM %s ORDER BY rowid",
		s.tables.List,
	))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []GistFileEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) CodeURLs() ([]string, error) {
	rows, err := s.db.Query(fmt.Sprintf("SELECT file_url FROM %s ORDER BY file_url", s.tables.Code))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (s *SQLiteStore) InsertCode(b CodeBlob) error {
	_, err := s.db.Exec(
		fmt.Sprintf("INSERT INTO %s (file_url, code) VALUES (?, ?) ON CONFLICT(file_url) DO NOTHING", s.tables.Code),
		b.FileURL, b.Code,
	)
	return err
}

func (s *SQLiteStore) DeleteCode(urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf("DELETE FROM %s WHERE file_url = ?", s.tables.Code))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range urls {
		if _, err := stmt.Exec(u); err != nil {
			return fmt.Errorf("delete code %s: %w", u, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) JoinedFiles() ([]JoinedFile, error) {
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT l.gist_id, l.file_name, l.description, l.language, l.file_url, l.size,
		       l.created_at, l.updated_at, c.code
		FROM %s AS l
		JOIN %s AS c ON c.file_url = l.file_url
		ORDER BY l.file_name COLLATE NOCASE ASC, l.description ASC
	`, s.tables.List, s.tables.Code))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []JoinedFile
	for rows.Next() {
		var f JoinedFile
		var created, updated sql.NullTime
		err := rows.Scan(
			&f.GistID, &f.FileName, &f.Description, &f.Language, &f.FileURL, &f.Size,
			&created, &updated, &f.Code,
		)
		if err != nil {
			return nil, err
		}
		f.CreatedAt = created.Time
		f.UpdatedAt = updated.Time
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE key = ?", s.tables.Meta), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		fmt.Sprintf("INSERT INTO %s (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", s.tables.Meta),
		key, value,
	)
	return err
}

func (s *SQLiteStore) LastSync() (time.Time, error) {
	v, err := s.GetMeta(MetaLastSync)
	if err != nil {
		return time.Time{}, err
	}
	if strings.TrimSpace(v) == "" {
		return time.Time{}, ErrNotSynced
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", MetaLastSync, err)
	}
	return t, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (GistFileEntry, error) {
	var (
		e                GistFileEntry
		created, updated sql.NullTime
	)
	if err := row.Scan(&e.GistID, &e.FileName, &e.Description, &e.Language, &e.FileURL, &e.Size, &created, &updated); err != nil {
		return GistFileEntry{}, err
	}
	e.CreatedAt = created.Time
	e.UpdatedAt = updated.Time
	return e, nil
}
