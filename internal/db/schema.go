package db

// SchemaVersion is the current database schema version
const SchemaVersion = 3

const schema = `
-- Key-value settings; streak ledgers live here as JSON under "streak:<key>"
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Completion audit history
CREATE TABLE IF NOT EXISTS completions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    streak_key TEXT NOT NULL,
    day TEXT NOT NULL,
    recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    current_streak INTEGER NOT NULL DEFAULT 0,
    clock_skew INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_completions_key_day ON completions(streak_key, day);

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Migration defines a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the list of all migrations in order
var Migrations = []Migration{
	{
		Version:     1,
		Description: "Settings table",
		SQL: `CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	},
	{
		Version:     2,
		Description: "Completion history",
		SQL: `CREATE TABLE IF NOT EXISTS completions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    streak_key TEXT NOT NULL,
    day TEXT NOT NULL,
    recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    current_streak INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_completions_key_day ON completions(streak_key, day);`,
	},
	{
		Version:     3,
		Description: "Flag completions recorded under clock skew",
		SQL:         `ALTER TABLE completions ADD COLUMN clock_skew INTEGER NOT NULL DEFAULT 0;`,
	},
}
