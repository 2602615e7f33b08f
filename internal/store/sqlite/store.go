// Package sqlite implements the durable store (C2): entries table with
// lexical (FTS5) and optional vector index, derived co-occurrence graph
// and session tracker, fingerprint cache cold table, and settings.
//
// Grounded on the teacher's internal/adapter/memory/vector package
// (connection setup, migration, trigger-synced FTS, in-memory vector
// cache) and on original_source/src/db/mod.rs for entry dedup semantics,
// session/association tracking, and retention maintenance.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	_ "modernc.org/sqlite"

	"jotx/internal/domain"
)

const (
	maxRetries    = 3
	retryBaseWait = 100 * time.Millisecond
)

// Store is the C2 durable store. A single write connection (MaxOpenConns=1)
// is held per the concurrency model's "single write connection wrapped in
// a mutex" requirement — SQLite itself serializes via the connection pool
// here rather than an explicit mutex, since database/sql already queues
// callers against a 1-connection pool.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	vecIdx *vecIndex
}

// Open creates or opens the SQLite database at path and runs migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.WrapOp("store.open", domain.KindStorage, err)
	}

	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, domain.WrapOp("store.open.pragma", domain.KindStorage, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, domain.WrapOp("store.open.migrate", domain.KindStorage, err)
	}

	return &Store{db: db, logger: logger, vecIdx: newVecIndex()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// withRetry runs fn, retrying on SQLITE_BUSY-shaped errors with
// exponential backoff (base 100ms, factor 2, at most 3 attempts), per
// §4.2's failure semantics.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isBusyErr(err) {
			return err
		}
		wait := retryBaseWait * time.Duration(1<<attempt)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return domain.WrapOp("store.retry_exhausted", domain.KindStorage, err)
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return contains(msg, "locked") || contains(msg, "busy")
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// scanEntry reads a full entries row in the column order used by every
// SELECT in this package.
func scanEntry(row interface{ Scan(dest ...any) error }) (domain.Entry, error) {
	var e domain.Entry
	var kind string
	var embBlob []byte
	if err := row.Scan(
		&e.ID, &kind, &e.Content, &e.Timestamp, &e.TimesRun,
		&e.WorkingDir, &e.User, &e.Host, &e.AppName, &e.WindowTitle,
		&e.GitRepo, &e.GitBranch, &embBlob, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return e, err
	}
	e.Kind = domain.EntryKind(kind)
	if embBlob != nil {
		e.Embedding = bytesToFloat32(embBlob)
	}
	return e, nil
}

const entryColumns = `id, kind, content, timestamp, times_run,
	working_dir, user, host, app_name, window_title,
	git_repo, git_branch, embedding, created_at, updated_at`

// InsertShell upserts by (content, host): if a matching row exists, its
// times_run is incremented and timestamp/updated_at refreshed; otherwise
// a new row is inserted. Either way, track_associations runs in the same
// transaction. Returns the entry id.
func (s *Store) InsertShell(ctx context.Context, e domain.Entry) (int64, error) {
	var id int64
	err := withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		now := time.Now().Unix()
		var embBlob []byte
		if len(e.Embedding) > 0 {
			embBlob = float32ToBytes(e.Embedding)
		}

		row := tx.QueryRowContext(ctx,
			`SELECT id FROM entries WHERE kind='shell' AND content = ? AND host = ?`,
			e.Content, e.Host)
		var existing int64
		switch scanErr := row.Scan(&existing); scanErr {
		case nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE entries SET times_run = times_run + 1, timestamp = ?, updated_at = ?,
				 embedding = COALESCE(?, embedding) WHERE id = ?`,
				e.Timestamp, now, embBlob, existing); err != nil {
				return err
			}
			id = existing
		case sql.ErrNoRows:
			res, err := tx.ExecContext(ctx,
				`INSERT INTO entries (kind, content, timestamp, times_run, working_dir, user, host,
					app_name, window_title, git_repo, git_branch, embedding, created_at, updated_at)
				 VALUES ('shell', ?, ?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				e.Content, e.Timestamp, e.WorkingDir, e.User, e.Host, e.AppName, e.WindowTitle,
				e.GitRepo, e.GitBranch, embBlob, now, now)
			if err != nil {
				return err
			}
			id, err = res.LastInsertId()
			if err != nil {
				return err
			}
		default:
			return scanErr
		}

		if err := trackAssociations(ctx, tx, id, e.Timestamp); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		if embBlob != nil && s.vecIdx.isLoaded() {
			s.vecIdx.put(id, e.Embedding)
		}
		return nil
	})
	if err != nil {
		return 0, domain.WrapOp("store.insert_shell", domain.KindStorage, err)
	}
	return id, nil
}

// InsertClipboard always inserts a new row — no dedup across history.
func (s *Store) InsertClipboard(ctx context.Context, e domain.Entry) (int64, error) {
	var id int64
	err := withRetry(ctx, func() error {
		now := time.Now().Unix()
		var embBlob []byte
		if len(e.Embedding) > 0 {
			embBlob = float32ToBytes(e.Embedding)
		}
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO entries (kind, content, timestamp, times_run, app_name, window_title, embedding, created_at, updated_at)
			 VALUES ('clipboard', ?, ?, 1, ?, ?, ?, ?, ?)`,
			e.Content, e.Timestamp, e.AppName, e.WindowTitle, embBlob, now, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		if embBlob != nil && s.vecIdx.isLoaded() {
			s.vecIdx.put(id, e.Embedding)
		}
		return nil
	})
	if err != nil {
		return 0, domain.WrapOp("store.insert_clipboard", domain.KindStorage, err)
	}
	return id, nil
}

// Query runs a parameterized SELECT ordered by timestamp DESC.
func (s *Store) Query(ctx context.Context, f domain.EntryFilter) ([]domain.Entry, error) {
	where := ""
	args := []any{}

	add := func(clause string, arg any) {
		if where == "" {
			where = "WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, arg)
	}
	if f.Kind != "" {
		add("kind = ?", string(f.Kind))
	}
	if f.ContentLike != "" {
		add("content LIKE ?", "%"+f.ContentLike+"%")
	}
	if f.WorkingDir != "" {
		add("working_dir = ?", f.WorkingDir)
	}
	if f.AppName != "" {
		add("app_name = ?", f.AppName)
	}
	if f.User != "" {
		add("user = ?", f.User)
	}
	if f.Host != "" {
		add("host = ?", f.Host)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}

	query := fmt.Sprintf("SELECT %s FROM entries %s ORDER BY timestamp DESC LIMIT ?", entryColumns, where)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapOp("store.query", domain.KindStorage, err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes a single entry by id; the FTS trigger propagates.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return domain.WrapOp("store.delete", domain.KindStorage, err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.NewError("store.delete", domain.KindStorage, "no such entry")
	}
	s.vecIdx.remove(id)
	return nil
}

// jitter adds up to 20ms of random jitter to a backoff wait, avoiding a
// thundering herd when multiple writers retry in lockstep.
func jitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Intn(20))*time.Millisecond
}
