package trash

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/projclean/internal/store"
)

// Restore moves every entry of manifest id back to its original path. An
// entry whose original path exists again is left in the trash and reported
// as a failure; the rest are still restored. The manifest is marked restored
// only when every entry made it back.
func (m *Manager) Restore(id int64) (*RestoreResult, error) {
	manifest, err := m.store.GetManifest(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	if manifest.RestoredAt != nil {
		return nil, fmt.Errorf("manifest %d: %w", id, ErrAlreadyRestored)
	}
	if manifest.PurgedAt != nil {
		return nil, fmt.Errorf("manifest %d: %w", id, ErrPurged)
	}

	data, err := loadManifest(filepath.Join(manifest.TrashDir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest file: %w", err)
	}

	result := &RestoreResult{}
	for _, entry := range data.Entries {
		if err := restoreEntry(manifest.TrashDir, entry); err != nil {
			result.Failed = append(result.Failed, RestoreFailure{Path: entry.Original, Err: err})
			m.logger.Warnf("failed to restore %s: %v", entry.Original, err)
			continue
		}
		result.Restored = append(result.Restored, entry.Original)
	}

	if len(result.Failed) > 0 {
		return result, fmt.Errorf("restored %d/%d entries, %d failures",
			len(result.Restored), len(data.Entries), len(result.Failed))
	}

	if err := m.store.MarkManifestRestored(id, m.now()); err != nil {
		return result, fmt.Errorf("failed to mark manifest restored: %w", err)
	}
	if err := os.RemoveAll(manifest.TrashDir); err != nil {
		m.logger.Warnf("failed to remove trash directory %s: %v", manifest.TrashDir, err)
	}
	m.logger.Infof("restored manifest %d: %d entries", id, len(result.Restored))
	return result, nil
}

func restoreEntry(trashDir string, entry *EntryData) error {
	if _, err := os.Lstat(entry.Original); err == nil {
		return fmt.Errorf("%s already exists: %w", entry.Original, os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	src := filepath.Join(trashDir, entry.Stored)
	if _, err := os.Lstat(src); err != nil {
		return fmt.Errorf("trashed copy missing: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(entry.Original), 0755); err != nil {
		return err
	}
	_, err := move(src, entry.Original)
	return err
}

// Load returns the manifest.json contents for manifest id.
func (m *Manager) Load(id int64) (*ManifestData, error) {
	manifest, err := m.store.GetManifest(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	return loadManifest(filepath.Join(manifest.TrashDir, manifestFile))
}

// List returns all manifests from the database.
func (m *Manager) List() ([]*store.Manifest, error) {
	manifests, err := m.store.ListManifests()
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}
	return manifests, nil
}

// Latest returns the newest manifest that can still be restored.
func (m *Manager) Latest() (*store.Manifest, error) {
	manifests, err := m.List()
	if err != nil {
		return nil, err
	}
	for _, mf := range manifests {
		if mf.RestoredAt == nil && mf.PurgedAt == nil && mf.EntryCount > 0 {
			return mf, nil
		}
	}
	return nil, fmt.Errorf("no restorable trash: %w", store.ErrNotFound)
}

// Purge removes trash directories older than maxAge. Restored and purged
// manifests are skipped. Database rows are kept as an audit log.
func (m *Manager) Purge(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	manifests, err := m.List()
	if err != nil {
		return 0, err
	}

	cutoff := m.now().Add(-maxAge)
	purged := 0
	for _, mf := range manifests {
		if mf.RestoredAt != nil || mf.PurgedAt != nil || !mf.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(mf.TrashDir); err != nil {
			return purged, fmt.Errorf("failed to delete trash directory %s: %w", mf.TrashDir, err)
		}
		if err := m.store.MarkManifestPurged(mf.ID, m.now()); err != nil {
			return purged, fmt.Errorf("failed to mark manifest %d purged: %w", mf.ID, err)
		}
		purged++
	}
	if purged > 0 {
		m.logger.Infof("purged %d trash directories older than %s", purged, maxAge)
	}
	return purged, nil
}
