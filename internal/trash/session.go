package trash

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/store"
)

// Session receives the paths of one clean. It implements cleaner.Deleter
// and is safe for use by the engine's worker pool.
type Session struct {
	m      *Manager
	id     int64
	scanID string
	root   string
	dir    string
	reason string

	mu    sync.Mutex
	moved map[string]string // original path -> stored path relative to dir
}

var _ cleaner.Deleter = (*Session)(nil)

// Begin creates the trash directory and manifest record for a clean of res.
func (m *Manager) Begin(res *cleaner.ScanResult, reason string) (*Session, error) {
	dir := filepath.Join(m.trashDir, res.ID())
	if err := os.MkdirAll(filepath.Join(dir, filesDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trash directory: %w", err)
	}

	id, err := m.store.InsertManifest(&store.Manifest{
		CreatedAt: m.now(),
		Root:      res.Root(),
		Reason:    reason,
		TrashDir:  dir,
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to insert manifest into database: %w", err)
	}

	m.logger.Infof("trash session %d for scan %s in %s", id, res.ID(), dir)
	return &Session{
		m:      m,
		id:     id,
		scanID: res.ID(),
		root:   res.Root(),
		dir:    dir,
		reason: reason,
		moved:  make(map[string]string),
	}, nil
}

// ID returns the manifest id, the handle passed to Restore.
func (s *Session) ID() int64 { return s.id }

// Dir returns the session's trash directory.
func (s *Session) Dir() string { return s.dir }

// RemoveAll moves path into the trash directory, keeping its position
// relative to the scan root.
func (s *Session) RemoveAll(path string) error {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &os.PathError{Op: "trash", Path: path, Err: ErrOutsideRoot}
	}

	stored := filepath.Join(filesDir, rel)
	dest := filepath.Join(s.dir, stored)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	placed, err := move(path, dest)
	if placed {
		// A copy whose original could not be removed is still manifested,
		// so whatever was already deleted can be restored.
		s.mu.Lock()
		s.moved[path] = stored
		s.mu.Unlock()
	}
	return err
}

// Finish writes manifest.json for every entry that has a copy in the trash,
// including failed entries whose copy landed, and records the totals. A session with nothing moved removes its directory.
func (s *Session) Finish(report *cleaner.CleanReport) (*ManifestData, error) {
	data := &ManifestData{
		ID:        s.id,
		ScanID:    s.scanID,
		CreatedAt: s.m.now(),
		Reason:    s.reason,
		Root:      s.root,
	}

	s.mu.Lock()
	var total int64
	for _, e := range report.Entries() {
		stored, ok := s.moved[e.Path]
		if !ok {
			continue
		}
		data.Entries = append(data.Entries, &EntryData{
			Original: e.Path,
			Stored:   stored,
			Kind:     string(e.Kind),
			Size:     e.Size,
			Rule:     e.Rule.String(),
		})
		total += e.Size
	}
	s.mu.Unlock()

	if err := s.m.store.UpdateManifestTotals(s.id, len(data.Entries), total); err != nil {
		return nil, fmt.Errorf("failed to update manifest totals: %w", err)
	}

	if len(data.Entries) == 0 {
		if err := os.RemoveAll(s.dir); err != nil {
			return nil, fmt.Errorf("failed to remove empty trash directory: %w", err)
		}
		if err := s.m.store.MarkManifestPurged(s.id, s.m.now()); err != nil {
			return nil, fmt.Errorf("failed to mark manifest purged: %w", err)
		}
		return data, nil
	}

	if err := writeManifest(filepath.Join(s.dir, manifestFile), data); err != nil {
		return nil, err
	}
	s.m.logger.Infof("trash session %d: %d entries, %d bytes", s.id, len(data.Entries), total)
	return data, nil
}

// Discard abandons a session whose clean never ran.
func (s *Session) Discard() error {
	s.mu.Lock()
	n := len(s.moved)
	s.mu.Unlock()
	if n > 0 {
		return fmt.Errorf("trash session %d already holds %d entries", s.id, n)
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove trash directory: %w", err)
	}
	return s.m.store.MarkManifestPurged(s.id, s.m.now())
}
