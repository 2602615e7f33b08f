package sqlite

import "database/sql"

// migrate creates the schema if it doesn't already exist. Grounded on
// the teacher's entries/entries_fts/trigger shape, extended with the
// association/session/fingerprint-cache/settings tables described by
// the original implementation's db/mod.rs and db/cache.rs.
func migrate(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS entries (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			kind         TEXT NOT NULL,
			content      TEXT NOT NULL,
			timestamp    INTEGER NOT NULL,
			times_run    INTEGER NOT NULL DEFAULT 1,
			working_dir  TEXT NOT NULL DEFAULT '',
			user         TEXT NOT NULL DEFAULT '',
			host         TEXT NOT NULL DEFAULT '',
			app_name     TEXT NOT NULL DEFAULT '',
			window_title TEXT NOT NULL DEFAULT '',
			git_repo     TEXT NOT NULL DEFAULT '',
			git_branch   TEXT NOT NULL DEFAULT '',
			embedding    BLOB,
			created_at   INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS entries_shell_dedup
			ON entries(content, host) WHERE kind = 'shell';

		CREATE INDEX IF NOT EXISTS entries_kind_ts ON entries(kind, timestamp DESC);
		CREATE INDEX IF NOT EXISTS entries_embedded ON entries(timestamp DESC) WHERE embedding IS NOT NULL;

		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			content, app_name, window_title, working_dir,
			content=entries, content_rowid=id
		);

		CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
			INSERT INTO entries_fts(rowid, content, app_name, window_title, working_dir)
			VALUES (new.id, new.content, new.app_name, new.window_title, new.working_dir);
		END;

		CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
			INSERT INTO entries_fts(entries_fts, rowid, content, app_name, window_title, working_dir)
			VALUES ('delete', old.id, old.content, old.app_name, old.window_title, old.working_dir);
		END;

		CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE ON entries BEGIN
			INSERT INTO entries_fts(entries_fts, rowid, content, app_name, window_title, working_dir)
			VALUES ('delete', old.id, old.content, old.app_name, old.window_title, old.working_dir);
			INSERT INTO entries_fts(rowid, content, app_name, window_title, working_dir)
			VALUES (new.id, new.content, new.app_name, new.window_title, new.working_dir);
		END;

		CREATE TABLE IF NOT EXISTS command_sessions (
			entry_id INTEGER PRIMARY KEY,
			session  TEXT NOT NULL,
			position INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS command_sessions_session ON command_sessions(session, position);

		CREATE TABLE IF NOT EXISTS command_associations (
			a          INTEGER NOT NULL,
			b          INTEGER NOT NULL,
			seq_order  INTEGER NOT NULL,
			strength   INTEGER NOT NULL DEFAULT 1,
			last_seen  INTEGER NOT NULL,
			UNIQUE(a, b, seq_order)
		);
		CREATE INDEX IF NOT EXISTS command_associations_a ON command_associations(a);

		CREATE TABLE IF NOT EXISTS fingerprint_cache (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			query            TEXT NOT NULL UNIQUE,
			fingerprint_json TEXT NOT NULL,
			plan_json        TEXT NOT NULL,
			hit_count        INTEGER NOT NULL DEFAULT 1,
			last_used        INTEGER NOT NULL,
			created_at       INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS fingerprint_cache_last_used ON fingerprint_cache(last_used DESC);

		CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	_, err := db.Exec(schema)
	return err
}
