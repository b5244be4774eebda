package store

// Schema creates the state and run-log tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS state_cells (
	player TEXT NOT NULL,
	map    TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (player, map)
);

CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	events      INTEGER NOT NULL DEFAULT 0,
	delivered   INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
