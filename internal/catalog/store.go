package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/wallshift/wallshift/internal/pixels"
	"github.com/wallshift/wallshift/internal/selection"
)

// Store exposes one file list's image table.
type Store struct {
	db       *DB
	tableID  string
	listName string
	log      hclog.Logger

	// rng overrides the selection engine's random source in tests.
	rng *rand.Rand
}

// ListName returns the display name of the file list.
func (s *Store) ListName() string {
	return s.listName
}

// Folder describes a followed directory record.
type Folder struct {
	Path                  string
	IncludeSubdirectories bool
}

// AddImages registers image files, unhiding any that were hidden before.
// Ephemeral records are the ones auto-registered from followed folders;
// they get culled when the folder is unfollowed.
func (s *Store) AddImages(paths []string, ephemeral bool) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (filepath, ephemeral)
		VALUES (?, ?)
		ON CONFLICT(filepath) DO UPDATE SET hidden = FALSE`, s.tableID))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range paths {
		if _, err := stmt.Exec(normalizePath(p), ephemeral); err != nil {
			return fmt.Errorf("failed to add image %s: %w", p, err)
		}
	}
	return tx.Commit()
}

// AddDirectory registers a followed directory.
func (s *Store) AddDirectory(path string, includeSubdirectories bool) error {
	_, err := s.db.conn.Exec(fmt.Sprintf(`
		INSERT INTO %s (filepath, is_directory, include_subdirectories)
		VALUES (?, TRUE, ?)
		ON CONFLICT(filepath) DO NOTHING`, s.tableID),
		normalizePath(path), includeSubdirectories)
	if err != nil {
		return fmt.Errorf("failed to add directory: %w", err)
	}
	return nil
}

// HideImages flags the given filepaths as hidden so they drop out of
// selection without losing their usage history.
func (s *Store) HideImages(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = normalizePath(p)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(paths)), ",")
	_, err := s.db.conn.Exec(fmt.Sprintf(`
		UPDATE %s SET hidden = TRUE WHERE filepath IN (%s)`, s.tableID, placeholders), args...)
	if err != nil {
		return fmt.Errorf("failed to hide images: %w", err)
	}
	return nil
}

// SetActive toggles a record's active flag.
func (s *Store) SetActive(path string, active bool) error {
	res, err := s.db.conn.Exec(fmt.Sprintf(`
		UPDATE %s SET active = ? WHERE filepath = ?`, s.tableID),
		active, normalizePath(path))
	if err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.log.Error("no such image to update", "filepath", path)
	}
	return nil
}

// Delete removes a record entirely.
func (s *Store) Delete(path string) error {
	res, err := s.db.conn.Exec(fmt.Sprintf(`
		DELETE FROM %s WHERE filepath = ?`, s.tableID), normalizePath(path))
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.log.Error("no such image to delete", "filepath", path)
	}
	return nil
}

// RemoveEphemeralInFolder deletes ephemeral image records under a folder,
// used when a followed folder is removed.
func (s *Store) RemoveEphemeralInFolder(dir string) error {
	_, err := s.db.conn.Exec(fmt.Sprintf(`
		DELETE FROM %s
		WHERE filepath LIKE ?
		  AND is_directory = FALSE
		  AND ephemeral = TRUE`, s.tableID), normalizePath(dir)+"%")
	if err != nil {
		return fmt.Errorf("failed to remove ephemeral images: %w", err)
	}
	return nil
}

const recordColumns = "id, filepath, active, is_directory, hidden, times_used, total_times_used"

// ListEligible returns all records eligible for selection.
func (s *Store) ListEligible() ([]selection.ImageRecord, error) {
	return s.queryRecords(s.db.conn, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE active = TRUE AND is_directory = FALSE AND hidden = FALSE`,
		recordColumns, s.tableID))
}

// ListAll returns every non-directory record, hidden ones included.
func (s *Store) ListAll() ([]selection.ImageRecord, error) {
	return s.queryRecords(s.db.conn, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE is_directory = FALSE ORDER BY filepath`,
		recordColumns, s.tableID))
}

// ActiveCount returns how many records are currently eligible.
func (s *Store) ActiveCount() (int, error) {
	var n int
	err := s.db.conn.QueryRow(fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE active = TRUE AND is_directory = FALSE AND hidden = FALSE`, s.tableID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active images: %w", err)
	}
	return n, nil
}

// ActiveFolders returns the followed directories.
func (s *Store) ActiveFolders() ([]Folder, error) {
	rows, err := s.db.conn.Query(fmt.Sprintf(`
		SELECT filepath, include_subdirectories FROM %s
		WHERE active = TRUE AND is_directory = TRUE AND hidden = FALSE`, s.tableID))
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.Path, &f.IncludeSubdirectories); err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func (s *Store) queryRecords(q querier, query string, args ...any) ([]selection.ImageRecord, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []selection.ImageRecord
	for rows.Next() {
		var r selection.ImageRecord
		if err := rows.Scan(&r.ID, &r.Filepath, &r.Active, &r.IsDirectory, &r.Hidden,
			&r.TimesUsed, &r.TotalTimesUsed); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Pick selects the next image filepath. The record read, the counter
// increment, and the normalization pass all run in one transaction so
// concurrent picks cannot interleave their bookkeeping.
func (s *Store) Pick(strategy selection.Strategy, increment bool) (string, error) {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	records, err := s.queryRecords(tx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE active = TRUE AND is_directory = FALSE AND hidden = FALSE`,
		recordColumns, s.tableID))
	if err != nil {
		return "", err
	}

	engine := selection.NewEngine(s.rng)
	filepath, err := engine.Pick(strategy, records, increment)
	if err != nil {
		return "", err
	}

	if increment {
		if _, err := tx.Exec(fmt.Sprintf(`
			UPDATE %s
			SET times_used = times_used + 1,
			    total_times_used = total_times_used + 1
			WHERE filepath = ?`, s.tableID), filepath); err != nil {
			return "", fmt.Errorf("failed to increment usage: %w", err)
		}
	}

	// Normalization runs on every pick, preview or not, so times_used
	// stays bounded. Hidden records are included on purpose; see
	// selection.Normalize.
	if _, err := tx.Exec(fmt.Sprintf(`
		WITH least_used AS (
			SELECT MIN(times_used) AS m
			FROM %s
			WHERE is_directory = FALSE AND active = TRUE
		)
		UPDATE %s
		SET times_used = times_used - (SELECT m FROM least_used)
		WHERE is_directory = FALSE AND active = TRUE`, s.tableID, s.tableID)); err != nil {
		return "", fmt.Errorf("failed to normalize usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	s.log.Debug("picked image", "strategy", string(strategy), "filepath", filepath, "increment", increment)
	return filepath, nil
}

// CachedColors returns the cached ranked colours for an image, or nil when
// nothing is cached.
func (s *Store) CachedColors(path string) ([]pixels.Pixel, error) {
	var cache sql.NullString
	err := s.db.conn.QueryRow(fmt.Sprintf(`
		SELECT color_cache FROM %s WHERE filepath = ?`, s.tableID),
		normalizePath(path)).Scan(&cache)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read colour cache: %w", err)
	}
	if !cache.Valid {
		return nil, nil
	}
	var colors []pixels.Pixel
	if err := json.Unmarshal([]byte(cache.String), &colors); err != nil {
		return nil, fmt.Errorf("failed to decode colour cache: %w", err)
	}
	return colors, nil
}

// SetCachedColors stores the ranked colours for an image.
func (s *Store) SetCachedColors(path string, colors []pixels.Pixel) error {
	data, err := json.Marshal(colors)
	if err != nil {
		return err
	}
	res, err := s.db.conn.Exec(fmt.Sprintf(`
		UPDATE %s SET color_cache = ? WHERE filepath = ?`, s.tableID),
		string(data), normalizePath(path))
	if err != nil {
		return fmt.Errorf("failed to write colour cache: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.log.Error("no such image to cache colours for", "filepath", path)
	}
	return nil
}

// normalizePath keeps filepaths in forward-slash form so lookups match
// regardless of how the caller spelled them.
func normalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
