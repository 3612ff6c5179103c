package cleaner

import (
	"time"

	"github.com/blackwell-systems/projclean/internal/rules"
)

// Match is one entry selected by a rule during a scan.
type Match struct {
	Path    string // absolute path
	RelPath string // slash-separated, relative to the scan root
	Kind    rules.Kind
	Size    int64
	Rule    rules.Rule
}

// ScanResult is the immutable outcome of a scan: matched entries in
// traversal order plus non-fatal warnings.
type ScanResult struct {
	id        string
	root      string
	scannedAt time.Time
	matches   []Match
	total     int64
	warnings  []string
}

// NewScanResult assembles a result outside of Engine.Scan, for callers that
// rebuild a result from history. Engine.Clean only accepts results produced
// by its own Scan.
func NewScanResult(id, root string, scannedAt time.Time, matches []Match, warnings []string) *ScanResult {
	r := &ScanResult{
		id:        id,
		root:      root,
		scannedAt: scannedAt,
		matches:   append([]Match(nil), matches...),
		warnings:  append([]string(nil), warnings...),
	}
	for _, m := range matches {
		r.total += m.Size
	}
	return r
}

func (r *ScanResult) ID() string           { return r.id }
func (r *ScanResult) Root() string         { return r.root }
func (r *ScanResult) ScannedAt() time.Time { return r.scannedAt }
func (r *ScanResult) Len() int             { return len(r.matches) }
func (r *ScanResult) TotalBytes() int64    { return r.total }

// Matches returns a copy of the matched entries.
func (r *ScanResult) Matches() []Match {
	return append([]Match(nil), r.matches...)
}

// Warnings returns a copy of the non-fatal problems met while scanning.
func (r *ScanResult) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// EntryStatus is the outcome recorded for one match in a CleanReport.
type EntryStatus string

const (
	StatusDeleted     EntryStatus = "deleted"
	StatusWouldDelete EntryStatus = "would delete"
	StatusFailed      EntryStatus = "failed"
	StatusSkipped     EntryStatus = "skipped"
)

// CleanEntry records what happened to a single match.
type CleanEntry struct {
	Match
	Status EntryStatus
	Freed  int64
	Err    error
}

// ErrorKind classifies Err, or returns "" when the entry did not fail.
func (e CleanEntry) ErrorKind() ErrorKind {
	return KindOf(e.Err)
}

// CleanReport aggregates the outcome of a clean. It is read-only once
// returned by Engine.Clean.
type CleanReport struct {
	scanID   string
	root     string
	dryRun   bool
	canceled bool
	entries  []CleanEntry
	started  time.Time
	finished time.Time
}

// NewCleanReport assembles a report outside of Engine.Clean, for callers
// that rebuild one from history.
func NewCleanReport(scanID, root string, dryRun bool, entries []CleanEntry, started, finished time.Time) *CleanReport {
	r := &CleanReport{
		scanID:   scanID,
		root:     root,
		dryRun:   dryRun,
		entries:  append([]CleanEntry(nil), entries...),
		started:  started,
		finished: finished,
	}
	for _, e := range entries {
		if e.Status == StatusSkipped {
			r.canceled = true
			break
		}
	}
	return r
}

func (r *CleanReport) ScanID() string          { return r.scanID }
func (r *CleanReport) Root() string            { return r.root }
func (r *CleanReport) DryRun() bool            { return r.dryRun }
func (r *CleanReport) Canceled() bool          { return r.canceled }
func (r *CleanReport) StartedAt() time.Time    { return r.started }
func (r *CleanReport) FinishedAt() time.Time   { return r.finished }
func (r *CleanReport) Duration() time.Duration { return r.finished.Sub(r.started) }
func (r *CleanReport) Len() int                { return len(r.entries) }

// Entries returns a copy of every entry in scan order.
func (r *CleanReport) Entries() []CleanEntry {
	return append([]CleanEntry(nil), r.entries...)
}

// Succeeded returns entries that were deleted, or would be in a dry run.
func (r *CleanReport) Succeeded() []CleanEntry {
	return r.filter(StatusDeleted, StatusWouldDelete)
}

// Failed returns entries whose deletion failed.
func (r *CleanReport) Failed() []CleanEntry {
	return r.filter(StatusFailed)
}

// Skipped returns entries never attempted because the clean was cancelled.
func (r *CleanReport) Skipped() []CleanEntry {
	return r.filter(StatusSkipped)
}

// HasFailures reports whether any deletion failed.
func (r *CleanReport) HasFailures() bool {
	for _, e := range r.entries {
		if e.Status == StatusFailed {
			return true
		}
	}
	return false
}

// BytesFreed sums the space released by successful deletions.
func (r *CleanReport) BytesFreed() int64 {
	var n int64
	for _, e := range r.entries {
		n += e.Freed
	}
	return n
}

// BytesReclaimable sums the sizes of dry-run entries.
func (r *CleanReport) BytesReclaimable() int64 {
	var n int64
	for _, e := range r.entries {
		if e.Status == StatusWouldDelete {
			n += e.Size
		}
	}
	return n
}

func (r *CleanReport) filter(statuses ...EntryStatus) []CleanEntry {
	var out []CleanEntry
	for _, e := range r.entries {
		for _, s := range statuses {
			if e.Status == s {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
