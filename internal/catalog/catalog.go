// Package catalog persists the image catalog in SQLite: per-list image
// tables with usage counters, activity flags, and cached colour results.
package catalog

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DB wraps the SQLite connection shared by all file lists.
type DB struct {
	conn *sql.DB
	log  hclog.Logger
}

// Open opens (or creates) the catalog database and applies migrations.
func Open(path string, logger hclog.Logger) (*DB, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps each pick's read-modify-write from
	// interleaving with another pick's normalization pass.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn, log: logger}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate brings the schema up to the current version.
func (db *DB) migrate() error {
	version, err := db.schemaVersion()
	if err != nil {
		return err
	}
	if version < 1 {
		db.log.Info("applying schema migration", "version", 1)
		_, err := db.conn.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER);
			INSERT INTO schema_version (version) VALUES (1);
			CREATE TABLE IF NOT EXISTS file_lists (
				name     TEXT UNIQUE,
				table_id TEXT
			);`)
		if err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) schemaVersion() (int, error) {
	var exists int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name = 'schema_version'`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}
	var version int
	if err := db.conn.QueryRow(`SELECT version FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

// FileLists returns the display names of all known file lists.
func (db *DB) FileLists() ([]string, error) {
	rows, err := db.conn.Query(`SELECT name FROM file_lists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query file lists: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

var tableSlugPattern = regexp.MustCompile(`[^a-z_]`)

// OpenList returns a Store bound to the named file list, creating its image
// table on first use.
func (db *DB) OpenList(name string) (*Store, error) {
	var tableID string
	err := db.conn.QueryRow(`SELECT table_id FROM file_lists WHERE name = ?`, name).Scan(&tableID)
	switch {
	case err == sql.ErrNoRows:
		tableID, err = db.createImagesTable(name)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up file list: %w", err)
	}
	return &Store{db: db, tableID: tableID, listName: name, log: db.log.Named("catalog")}, nil
}

// createImagesTable registers a new file list and creates its image table.
// The table name combines a sanitised slug with a random suffix so renamed
// lists never collide.
func (db *DB) createImagesTable(name string) (string, error) {
	slug := tableSlugPattern.ReplaceAllString(strings.ReplaceAll(strings.ToLower(name), " ", "_"), "")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	tableID := fmt.Sprintf("images_%s_%s", slug, suffix)

	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO file_lists (name, table_id) VALUES (?, ?)`, name, tableID); err != nil {
		return "", fmt.Errorf("failed to register file list: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filepath TEXT UNIQUE,
			times_used INTEGER DEFAULT 0,
			total_times_used INTEGER DEFAULT 0,
			active BOOLEAN DEFAULT TRUE,
			is_directory BOOLEAN DEFAULT FALSE,
			include_subdirectories BOOLEAN DEFAULT FALSE,
			ephemeral BOOLEAN DEFAULT FALSE,
			hidden BOOLEAN DEFAULT FALSE,
			color_cache TEXT DEFAULT NULL
		)`, tableID)); err != nil {
		return "", fmt.Errorf("failed to create image table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	db.log.Info("created image table", "list", name, "table", tableID)
	return tableID, nil
}
