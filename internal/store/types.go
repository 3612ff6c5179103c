package store

import "time"

// ScanRecord is the stored summary of one scan.
type ScanRecord struct {
	ID           string
	Root         string
	ScannedAt    time.Time
	MatchCount   int
	TotalBytes   int64
	WarningCount int
}

// MatchRecord is one stored scan match.
type MatchRecord struct {
	ScanID      string
	Seq         int
	Path        string
	RelPath     string
	Kind        string
	SizeBytes   int64
	RulePattern string
	RuleKind    string
}

// CleanRecord is the stored summary of one clean run.
type CleanRecord struct {
	ID         int64
	ScanID     string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Canceled   bool
	Succeeded  int
	Failed     int
	Skipped    int
	BytesFreed int64
	ManifestID int64 // 0 when the clean did not use the trash
}

// CleanEntryRecord is the stored outcome for one path of a clean.
type CleanEntryRecord struct {
	CleanID    int64
	Path       string
	Status     string
	SizeBytes  int64
	FreedBytes int64
	ErrorKind  string
	Error      string
}

// Manifest describes a trash directory holding the output of one clean.
type Manifest struct {
	ID         int64
	CreatedAt  time.Time
	Root       string
	Reason     string
	EntryCount int
	TotalBytes int64
	TrashDir   string
	RestoredAt *time.Time
	PurgedAt   *time.Time
}

// Totals aggregates every non-dry-run clean.
type Totals struct {
	Cleans     int
	BytesFreed int64
	Failed     int
	FirstClean time.Time
	LastClean  time.Time
}
