package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS trends (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic TEXT UNIQUE NOT NULL,
    sources TEXT NOT NULL DEFAULT '[]',
    volume INTEGER DEFAULT 0,
    relevance_weight REAL DEFAULT 0.5,
    used INTEGER DEFAULT 0,
    first_seen TEXT DEFAULT (datetime('now')),
    last_seen TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    content TEXT NOT NULL,
    trend_topic TEXT,
    bill_ref TEXT,
    status TEXT NOT NULL DEFAULT 'draft' CHECK(status IN ('draft', 'queued', 'posted', 'rejected')),
    engagement_score INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now')),
    posted_at TEXT
);

CREATE TABLE IF NOT EXISTS cooldowns (
    topic TEXT PRIMARY KEY,
    last_used TEXT NOT NULL,
    use_count INTEGER DEFAULT 1
);

CREATE TABLE IF NOT EXISTS engagement_cooldowns (
    author TEXT PRIMARY KEY,
    last_used TEXT NOT NULL,
    use_count INTEGER DEFAULT 1
);

CREATE TABLE IF NOT EXISTS safety_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    content TEXT NOT NULL,
    total_score INTEGER NOT NULL,
    verdict TEXT NOT NULL,
    breakdown TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS daemon_cycles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cycle_type TEXT NOT NULL,
    scanned INTEGER DEFAULT 0,
    engaged INTEGER DEFAULT 0,
    tracked INTEGER DEFAULT 0,
    expired INTEGER DEFAULT 0,
    posted INTEGER DEFAULT 0,
    topic TEXT,
    error TEXT,
    started_at TEXT DEFAULT (datetime('now')),
    completed_at TEXT,
    duration_ms INTEGER
);

CREATE TABLE IF NOT EXISTS batches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id TEXT UNIQUE NOT NULL,
    status TEXT NOT NULL DEFAULT 'submitted' CHECK(status IN ('submitted', 'completed', 'failed')),
    requests TEXT NOT NULL,
    submitted_at TEXT DEFAULT (datetime('now')),
    completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status);
CREATE INDEX IF NOT EXISTS idx_posts_queue ON posts(status, engagement_score DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS idx_trends_last_seen ON trends(last_seen);
CREATE INDEX IF NOT EXISTS idx_safety_log_created ON safety_log(created_at);
CREATE INDEX IF NOT EXISTS idx_daemon_cycles_type ON daemon_cycles(cycle_type);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
