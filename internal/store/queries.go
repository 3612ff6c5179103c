package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blackwell-systems/projclean/internal/cleaner"
)

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Scan operations

// InsertScan stores a scan result and all of its matches in one transaction.
func (s *Store) InsertScan(res *cleaner.ScanResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO scans (id, root, scanned_at, match_count, total_bytes, warning_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		res.ID(),
		res.Root(),
		formatTime(res.ScannedAt()),
		res.Len(),
		res.TotalBytes(),
		len(res.Warnings()),
	)
	if err != nil {
		return wrapErr(err, "failed to insert scan %s", res.ID())
	}

	stmt, err := tx.Prepare(`
		INSERT INTO scan_matches (scan_id, seq, path, rel_path, kind, size_bytes, rule_pattern, rule_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare match insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range res.Matches() {
		if _, err := stmt.Exec(res.ID(), i, m.Path, m.RelPath, string(m.Kind), m.Size, m.Rule.Pattern, string(m.Rule.Kind)); err != nil {
			return fmt.Errorf("failed to insert match %s: %w", m.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}
	return nil
}

const scanColumns = `id, root, scanned_at, match_count, total_bytes, warning_count`

func scanRecordFrom(row interface{ Scan(...any) error }) (*ScanRecord, error) {
	var rec ScanRecord
	var scannedAt string
	if err := row.Scan(&rec.ID, &rec.Root, &scannedAt, &rec.MatchCount, &rec.TotalBytes, &rec.WarningCount); err != nil {
		return nil, err
	}
	t, err := parseTime(scannedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scanned_at for %s: %w", rec.ID, err)
	}
	rec.ScannedAt = t
	return &rec, nil
}

// GetScan retrieves a scan summary by id.
func (s *Store) GetScan(id string) (*ScanRecord, error) {
	row := s.db.QueryRow(`SELECT `+scanColumns+` FROM scans WHERE id = ?`, id)
	rec, err := scanRecordFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get scan %s", id)
	}
	return rec, nil
}

// LatestScan returns the most recent scan of root.
func (s *Store) LatestScan(root string) (*ScanRecord, error) {
	row := s.db.QueryRow(`
		SELECT `+scanColumns+` FROM scans
		WHERE root = ?
		ORDER BY scanned_at DESC
		LIMIT 1
	`, root)
	rec, err := scanRecordFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no scan of %s: %w", root, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get latest scan of %s", root)
	}
	return rec, nil
}

// ListScans returns scans newest first. A limit <= 0 returns all.
func (s *Store) ListScans(limit int) ([]*ScanRecord, error) {
	query := `SELECT ` + scanColumns + ` FROM scans ORDER BY scanned_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapErr(err, "failed to list scans")
	}
	defer rows.Close()

	var scans []*ScanRecord
	for rows.Next() {
		rec, err := scanRecordFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scans: %w", err)
	}
	return scans, nil
}

// GetScanMatches returns the matches of a scan in traversal order.
func (s *Store) GetScanMatches(scanID string) ([]*MatchRecord, error) {
	rows, err := s.db.Query(`
		SELECT scan_id, seq, path, rel_path, kind, size_bytes, rule_pattern, rule_kind
		FROM scan_matches
		WHERE scan_id = ?
		ORDER BY seq
	`, scanID)
	if err != nil {
		return nil, wrapErr(err, "failed to get matches for scan %s", scanID)
	}
	defer rows.Close()

	var matches []*MatchRecord
	for rows.Next() {
		var m MatchRecord
		if err := rows.Scan(&m.ScanID, &m.Seq, &m.Path, &m.RelPath, &m.Kind, &m.SizeBytes, &m.RulePattern, &m.RuleKind); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

// Clean operations

// InsertClean stores a clean report and its entries, returning the new clean
// id. A manifestID of 0 means the clean did not go through the trash.
func (s *Store) InsertClean(report *cleaner.CleanReport, manifestID int64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var manifest sql.NullInt64
	if manifestID > 0 {
		manifest = sql.NullInt64{Int64: manifestID, Valid: true}
	}

	result, err := tx.Exec(`
		INSERT INTO cleans
		(scan_id, root, started_at, finished_at, dry_run, canceled, succeeded, failed, skipped, bytes_freed, manifest_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ScanID(),
		report.Root(),
		formatTime(report.StartedAt()),
		formatTime(report.FinishedAt()),
		report.DryRun(),
		report.Canceled(),
		len(report.Succeeded()),
		len(report.Failed()),
		len(report.Skipped()),
		report.BytesFreed(),
		manifest,
	)
	if err != nil {
		return 0, wrapErr(err, "failed to insert clean for scan %s", report.ScanID())
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get clean id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO clean_entries (clean_id, path, status, size_bytes, freed_bytes, error_kind, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range report.Entries() {
		var kind, msg sql.NullString
		if e.Err != nil {
			kind = sql.NullString{String: string(e.ErrorKind()), Valid: true}
			msg = sql.NullString{String: e.Err.Error(), Valid: true}
		}
		if _, err := stmt.Exec(id, e.Path, string(e.Status), e.Size, e.Freed, kind, msg); err != nil {
			return 0, fmt.Errorf("failed to insert entry %s: %w", e.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit clean: %w", err)
	}
	return id, nil
}

const cleanColumns = `id, scan_id, root, started_at, finished_at, dry_run, canceled, succeeded, failed, skipped, bytes_freed, manifest_id`

func cleanRecordFrom(row interface{ Scan(...any) error }) (*CleanRecord, error) {
	var rec CleanRecord
	var started, finished string
	var manifest sql.NullInt64
	err := row.Scan(&rec.ID, &rec.ScanID, &rec.Root, &started, &finished,
		&rec.DryRun, &rec.Canceled, &rec.Succeeded, &rec.Failed, &rec.Skipped,
		&rec.BytesFreed, &manifest)
	if err != nil {
		return nil, err
	}
	if rec.StartedAt, err = parseTime(started); err != nil {
		return nil, fmt.Errorf("failed to parse started_at for clean %d: %w", rec.ID, err)
	}
	if rec.FinishedAt, err = parseTime(finished); err != nil {
		return nil, fmt.Errorf("failed to parse finished_at for clean %d: %w", rec.ID, err)
	}
	if manifest.Valid {
		rec.ManifestID = manifest.Int64
	}
	return &rec, nil
}

// GetClean retrieves a clean by id.
func (s *Store) GetClean(id int64) (*CleanRecord, error) {
	row := s.db.QueryRow(`SELECT `+cleanColumns+` FROM cleans WHERE id = ?`, id)
	rec, err := cleanRecordFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("clean %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get clean %d", id)
	}
	return rec, nil
}

// ListCleans returns cleans newest first. A limit <= 0 returns all.
func (s *Store) ListCleans(limit int) ([]*CleanRecord, error) {
	query := `SELECT ` + cleanColumns + ` FROM cleans ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapErr(err, "failed to list cleans")
	}
	defer rows.Close()

	var cleans []*CleanRecord
	for rows.Next() {
		rec, err := cleanRecordFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		cleans = append(cleans, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cleans: %w", err)
	}
	return cleans, nil
}

// GetCleanEntries returns the per-path outcomes of a clean.
func (s *Store) GetCleanEntries(cleanID int64) ([]*CleanEntryRecord, error) {
	rows, err := s.db.Query(`
		SELECT clean_id, path, status, size_bytes, freed_bytes, error_kind, error
		FROM clean_entries
		WHERE clean_id = ?
		ORDER BY rowid
	`, cleanID)
	if err != nil {
		return nil, wrapErr(err, "failed to get entries for clean %d", cleanID)
	}
	defer rows.Close()

	var entries []*CleanEntryRecord
	for rows.Next() {
		var e CleanEntryRecord
		var kind, msg sql.NullString
		if err := rows.Scan(&e.CleanID, &e.Path, &e.Status, &e.SizeBytes, &e.FreedBytes, &kind, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		e.ErrorKind = kind.String
		e.Error = msg.String
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

// TotalFreed aggregates all cleans that were not dry runs.
func (s *Store) TotalFreed() (*Totals, error) {
	var totals Totals
	var first, last sql.NullString
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(bytes_freed), 0), COALESCE(SUM(failed), 0),
		       MIN(started_at), MAX(started_at)
		FROM cleans
		WHERE dry_run = 0
	`).Scan(&totals.Cleans, &totals.BytesFreed, &totals.Failed, &first, &last)
	if err != nil {
		return nil, wrapErr(err, "failed to compute totals")
	}
	if first.Valid {
		if totals.FirstClean, err = parseTime(first.String); err != nil {
			return nil, fmt.Errorf("failed to parse first clean time: %w", err)
		}
	}
	if last.Valid {
		if totals.LastClean, err = parseTime(last.String); err != nil {
			return nil, fmt.Errorf("failed to parse last clean time: %w", err)
		}
	}
	return &totals, nil
}

// Manifest operations

// InsertManifest stores a new trash manifest and returns its id.
func (s *Store) InsertManifest(m *Manifest) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO manifests (created_at, root, reason, entry_count, total_bytes, trash_dir)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		formatTime(m.CreatedAt),
		m.Root,
		m.Reason,
		m.EntryCount,
		m.TotalBytes,
		m.TrashDir,
	)
	if err != nil {
		return 0, wrapErr(err, "failed to insert manifest")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get manifest id: %w", err)
	}
	return id, nil
}

// UpdateManifestTotals records how many entries a manifest ended up with.
func (s *Store) UpdateManifestTotals(id int64, entries int, bytes int64) error {
	return s.updateManifest(id, `UPDATE manifests SET entry_count = ?, total_bytes = ? WHERE id = ?`, entries, bytes, id)
}

// MarkManifestRestored records that a manifest's entries were moved back.
func (s *Store) MarkManifestRestored(id int64, at time.Time) error {
	return s.updateManifest(id, `UPDATE manifests SET restored_at = ? WHERE id = ?`, formatTime(at), id)
}

// MarkManifestPurged records that a manifest's trash directory was removed.
func (s *Store) MarkManifestPurged(id int64, at time.Time) error {
	return s.updateManifest(id, `UPDATE manifests SET purged_at = ? WHERE id = ?`, formatTime(at), id)
}

func (s *Store) updateManifest(id int64, query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return wrapErr(err, "failed to update manifest %d", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("manifest %d: %w", id, ErrNotFound)
	}
	return nil
}

const manifestColumns = `id, created_at, root, reason, entry_count, total_bytes, trash_dir, restored_at, purged_at`

func manifestFrom(row interface{ Scan(...any) error }) (*Manifest, error) {
	var m Manifest
	var created string
	var reason, restored, purged sql.NullString
	err := row.Scan(&m.ID, &created, &m.Root, &reason, &m.EntryCount, &m.TotalBytes, &m.TrashDir, &restored, &purged)
	if err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for manifest %d: %w", m.ID, err)
	}
	m.Reason = reason.String
	if restored.Valid {
		t, err := parseTime(restored.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse restored_at for manifest %d: %w", m.ID, err)
		}
		m.RestoredAt = &t
	}
	if purged.Valid {
		t, err := parseTime(purged.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse purged_at for manifest %d: %w", m.ID, err)
		}
		m.PurgedAt = &t
	}
	return &m, nil
}

// GetManifest retrieves a manifest by id.
func (s *Store) GetManifest(id int64) (*Manifest, error) {
	row := s.db.QueryRow(`SELECT `+manifestColumns+` FROM manifests WHERE id = ?`, id)
	m, err := manifestFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("manifest %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get manifest %d", id)
	}
	return m, nil
}

// ListManifests returns all manifests newest first.
func (s *Store) ListManifests() ([]*Manifest, error) {
	rows, err := s.db.Query(`SELECT ` + manifestColumns + ` FROM manifests ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, wrapErr(err, "failed to list manifests")
	}
	defer rows.Close()

	var manifests []*Manifest
	for rows.Next() {
		m, err := manifestFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		manifests = append(manifests, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating manifests: %w", err)
	}
	return manifests, nil
}
