package store

// schemaVersion is the version of the last entry in migrations.
const schemaVersion = 2

// migrations are applied in order; versions start at 1 and have no gaps.
var migrations = []migration{
	{1, "runs", `
-- One row per pipeline stage invocation.
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT    PRIMARY KEY,
	stage       TEXT    NOT NULL,
	status      TEXT    NOT NULL,
	input       TEXT    NOT NULL DEFAULT '',
	output      TEXT    NOT NULL DEFAULT '',
	row_count   INTEGER NOT NULL DEFAULT 0,
	error       TEXT    NOT NULL DEFAULT '',
	started_at  TEXT    NOT NULL,
	finished_at TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
`},

	{2, "run details", `
-- Class distribution written by a run.
CREATE TABLE IF NOT EXISTS run_categories (
	run_id   TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	category TEXT    NOT NULL,
	count    INTEGER NOT NULL,
	PRIMARY KEY (run_id, category)
);

-- Scalar results of a run (drop counts, accuracy, F1, ...).
CREATE TABLE IF NOT EXISTS run_metrics (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	name   TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, name)
);
`},
}
