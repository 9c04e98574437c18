// ABOUTME: SQLite-indexed library of named graph snapshots stored as JSON files.
// ABOUTME: The index is a rebuildable cache over the snapshot files, never the source of truth.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/2389-research/nodegraph/graph"
)

// Entry is a row from the library index for list queries.
type Entry struct {
	Name      string
	SID       string
	NodeCount int
	EdgeCount int
	UpdatedAt string
}

// Library stores named graph snapshots as JSON files in one directory, with
// a SQLite index for fast list queries. The index mirrors the files and can
// always be rebuilt from them.
type Library struct {
	dir string
	db  *sql.DB
}

// OpenLibrary opens or creates a snapshot library rooted at dir.
func OpenLibrary(dir string) (*Library, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open library index: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS graphs (
		name       TEXT PRIMARY KEY,
		sid        TEXT NOT NULL,
		node_count INTEGER NOT NULL,
		edge_count INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create library schema: %w", err)
	}
	return &Library{dir: dir, db: db}, nil
}

// Close closes the index database.
func (l *Library) Close() error {
	return l.db.Close()
}

// Save writes the snapshot under name and upserts the index row.
func (l *Library) Save(name string, snap *graph.Snapshot) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := Save(l.path(name), snap); err != nil {
		return err
	}
	return l.index(name, snap)
}

// Load reads the snapshot stored under name.
func (l *Library) Load(name string) (*graph.Snapshot, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	return Load(l.path(name))
}

// Delete removes the snapshot file and its index row. Deleting a missing
// name is not an error.
func (l *Library) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.Remove(l.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	if _, err := l.db.Exec("DELETE FROM graphs WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete index row: %w", err)
	}
	return nil
}

// List returns all indexed snapshots ordered by name.
func (l *Library) List() ([]Entry, error) {
	rows, err := l.db.Query(
		"SELECT name, sid, node_count, edge_count, updated_at FROM graphs ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.SID, &e.NodeCount, &e.EdgeCount, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan graph row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graph rows: %w", err)
	}
	return entries, nil
}

// Rebuild drops the index and reconstructs it from the snapshot files on
// disk. Unreadable files are skipped; the files win over the index.
func (l *Library) Rebuild() error {
	if _, err := l.db.Exec("DELETE FROM graphs"); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	matches, err := filepath.Glob(filepath.Join(l.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("scan library dir: %w", err)
	}
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		snap, err := Load(path)
		if err != nil {
			continue
		}
		if err := l.index(name, snap); err != nil {
			return err
		}
	}
	return nil
}

func (l *Library) index(name string, snap *graph.Snapshot) error {
	_, err := l.db.Exec(`
		INSERT INTO graphs (name, sid, node_count, edge_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			sid = excluded.sid,
			node_count = excluded.node_count,
			edge_count = excluded.edge_count,
			updated_at = excluded.updated_at`,
		name, snap.SID, len(snap.Nodes), len(snap.Edges),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("index snapshot %q: %w", name, err)
	}
	return nil
}

func (l *Library) path(name string) string {
	return filepath.Join(l.dir, name+".json")
}

// validName rejects names that would escape the library directory.
func validName(name string) error {
	if name == "" {
		return fmt.Errorf("library name is required")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("invalid library name %q", name)
	}
	return nil
}
