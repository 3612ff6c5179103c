// Package trash moves cleaned paths into a per-clean directory instead of
// deleting them, so a clean can be undone.
package trash

import (
	"errors"
	"time"

	"github.com/blackwell-systems/projclean/internal/logging"
	"github.com/blackwell-systems/projclean/internal/store"
)

// DefaultMaxAge is how long trashed entries are kept before Purge removes them.
const DefaultMaxAge = 30 * 24 * time.Hour

const (
	manifestFile = "manifest.json"
	filesDir     = "files"
)

var (
	// ErrAlreadyRestored is returned when restoring a manifest twice.
	ErrAlreadyRestored = errors.New("trash already restored")

	// ErrPurged is returned when restoring a manifest whose files are gone.
	ErrPurged = errors.New("trash already purged")

	// ErrOutsideRoot is returned when a session is asked to move a path that
	// is not under the scanned root.
	ErrOutsideRoot = errors.New("path is outside the scan root")
)

// ManifestData is the JSON document written to <trash>/<scan id>/manifest.json.
type ManifestData struct {
	ID        int64        `json:"id"`
	ScanID    string       `json:"scan_id"`
	CreatedAt time.Time    `json:"created_at"`
	Reason    string       `json:"reason"`
	Root      string       `json:"root"`
	Entries   []*EntryData `json:"entries"`
}

// EntryData is one moved path.
type EntryData struct {
	Original string `json:"original"`
	Stored   string `json:"stored"` // relative to the trash directory
	Kind     string `json:"kind"`
	Size     int64  `json:"size"`
	Rule     string `json:"rule"`
}

// RestoreFailure is an entry that could not be moved back.
type RestoreFailure struct {
	Path string
	Err  error
}

// RestoreResult lists what a Restore moved back and what it could not.
type RestoreResult struct {
	Restored []string
	Failed   []RestoreFailure
}

// Manager manages trash sessions, restoration, and cleanup.
type Manager struct {
	store    *store.Store
	trashDir string
	logger   *logging.Logger
	now      func() time.Time
}

// New creates a new trash Manager rooted at trashDir.
func New(store *store.Store, trashDir string, logger *logging.Logger) *Manager {
	return &Manager{
		store:    store,
		trashDir: trashDir,
		logger:   logger,
		now:      time.Now,
	}
}

// Dir returns the trash root directory.
func (m *Manager) Dir() string {
	return m.trashDir
}
