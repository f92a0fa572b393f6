package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with panotour-specific helpers.
type DB struct {
	*sql.DB
	mu   sync.RWMutex
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
//
// hotspot_documents is the server side of the document endpoint: one
// JSON payload per folder, replaced wholesale on every write.
// kv_store is the local fallback backend, keyed hotspots:<folder> and
// photoOrder:<folder>.
const schema = `
CREATE TABLE IF NOT EXISTS hotspot_documents (
    folder TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    last_updated DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS kv_store (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_documents_updated ON hotspot_documents(last_updated);
`

// GetKV returns the value stored under key, or ("", false) when the key
// is absent.
func (d *DB) GetKV(key string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var value string
	err := d.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading key %s: %w", key, err)
	}
	return value, true, nil
}

// SetKV stores value under key, replacing any previous value.
func (d *DB) SetKV(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.Exec(
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

// GetDocument returns the hotspot document payload for a folder, or
// ("", false) when no document has been written yet.
func (d *DB) GetDocument(folder string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var payload string
	err := d.QueryRow(`SELECT payload FROM hotspot_documents WHERE folder = ?`, folder).Scan(&payload)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading document %s: %w", folder, err)
	}
	return payload, true, nil
}

// SetDocument replaces the hotspot document for a folder wholesale.
func (d *DB) SetDocument(folder, payload string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.Exec(
		`INSERT INTO hotspot_documents (folder, payload, last_updated) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(folder) DO UPDATE SET payload=excluded.payload, last_updated=excluded.last_updated`,
		folder, payload,
	)
	if err != nil {
		return fmt.Errorf("writing document %s: %w", folder, err)
	}
	return nil
}

// ListDocumentFolders returns every folder with a stored document.
func (d *DB) ListDocumentFolders() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.Query(`SELECT folder FROM hotspot_documents ORDER BY folder`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var folders []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scanning folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}
