package storage

// schemaVersion is stored in crawl_meta and bumped on incompatible changes.
const schemaVersion = "1"

const schemaSQL = `
-- One row per crawl run; the summary columns stay NULL until the run ends
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    domain TEXT NOT NULL,
    seed_url TEXT NOT NULL,
    page_budget INTEGER NOT NULL,
    started_at TEXT NOT NULL,

    finished_at TEXT,
    completion TEXT CHECK (completion IN ('completed', 'budget_reached', 'interrupted', 'fatal_error')),
    pages_processed INTEGER,
    failures INTEGER,
    discovered INTEGER,
    report_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain, id);

-- Processed pages in the order the crawl produced them
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    url TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    text TEXT NOT NULL DEFAULT '',
    status_code INTEGER NOT NULL,
    fetched_at TEXT NOT NULL,
    UNIQUE(run_id, url),
    UNIQUE(run_id, seq)
);

-- Pages that were skipped, with the reason
CREATE TABLE IF NOT EXISTS crawl_errors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    error_type TEXT NOT NULL,
    error_message TEXT,
    status_code INTEGER NOT NULL DEFAULT 0,
    occurred_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_errors_run ON crawl_errors(run_id);
CREATE INDEX IF NOT EXISTS idx_errors_type ON crawl_errors(error_type);

-- Crawl meta table stores metadata as key-value pairs
CREATE TABLE IF NOT EXISTS crawl_meta (
    key TEXT PRIMARY KEY NOT NULL,
    value TEXT NOT NULL
);
`
