package store

const schema = `
CREATE TABLE IF NOT EXISTS scans (
    id TEXT PRIMARY KEY,
    root TEXT NOT NULL,
    scanned_at TIMESTAMP NOT NULL,
    match_count INTEGER NOT NULL,
    total_bytes INTEGER NOT NULL,
    warning_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scan_matches (
    scan_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    path TEXT NOT NULL,
    rel_path TEXT NOT NULL,
    kind TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    rule_pattern TEXT NOT NULL,
    rule_kind TEXT NOT NULL,
    PRIMARY KEY (scan_id, seq),
    FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS manifests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    root TEXT NOT NULL,
    reason TEXT,
    entry_count INTEGER NOT NULL DEFAULT 0,
    total_bytes INTEGER NOT NULL DEFAULT 0,
    trash_dir TEXT NOT NULL,
    restored_at TIMESTAMP,
    purged_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cleans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_id TEXT NOT NULL,
    root TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    dry_run BOOLEAN NOT NULL,
    canceled BOOLEAN NOT NULL,
    succeeded INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    skipped INTEGER NOT NULL,
    bytes_freed INTEGER NOT NULL,
    manifest_id INTEGER,
    FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE,
    FOREIGN KEY (manifest_id) REFERENCES manifests(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS clean_entries (
    clean_id INTEGER NOT NULL,
    path TEXT NOT NULL,
    status TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    freed_bytes INTEGER NOT NULL,
    error_kind TEXT,
    error TEXT,
    FOREIGN KEY (clean_id) REFERENCES cleans(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_scans_root ON scans(root, scanned_at);
CREATE INDEX IF NOT EXISTS idx_cleans_started ON cleans(started_at);
CREATE INDEX IF NOT EXISTS idx_clean_entries_clean ON clean_entries(clean_id);
CREATE INDEX IF NOT EXISTS idx_manifests_created ON manifests(created_at);
`
