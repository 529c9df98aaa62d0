package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS watch_state (
	account    TEXT NOT NULL,
	folder     TEXT NOT NULL,
	last_uid   INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (account, folder)
);

CREATE TABLE IF NOT EXISTS triage_log (
	id         TEXT PRIMARY KEY,
	account    TEXT NOT NULL,
	folder     TEXT NOT NULL,
	uid        INTEGER NOT NULL,
	sender     TEXT NOT NULL DEFAULT '',
	subject    TEXT NOT NULL DEFAULT '',
	path       TEXT NOT NULL,
	rule_name  TEXT NOT NULL DEFAULT '',
	priority   TEXT NOT NULL DEFAULT 'normal',
	labels     TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS account_changes (
	account    TEXT PRIMARY KEY,
	changed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_triage_log_created ON triage_log(created_at);
CREATE INDEX IF NOT EXISTS idx_triage_log_account ON triage_log(account);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
