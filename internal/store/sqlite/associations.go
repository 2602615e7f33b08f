package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	// associationDepth (K) is the number of immediately preceding shell
	// entries in a session that form co-occurrence edges with a new one.
	associationDepth = 3
	// sessionTimeoutSeconds is the gap after which a new session begins.
	sessionTimeoutSeconds = 300
)

// trackAssociations implements §3's session & co-occurrence derivation:
// reuse or mint a session id for entryID at ts, record its position, and
// create/strengthen directed edges to up to associationDepth preceding
// entries in the same session. Runs inside the caller's transaction so it
// commits atomically with the triggering insert.
//
// Grounded on original_source/src/db/mod.rs's track_associations_only and
// get_or_create_session_id.
func trackAssociations(ctx context.Context, tx *sql.Tx, entryID, ts int64) error {
	session, position, err := sessionFor(ctx, tx, ts)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO command_sessions (entry_id, session, position, created_at) VALUES (?, ?, ?, ?)`,
		entryID, session, position, ts); err != nil {
		return err
	}

	// Up to K preceding entries in the same session, most recent first.
	rows, err := tx.QueryContext(ctx,
		`SELECT entry_id FROM command_sessions WHERE session = ? AND position < ? ORDER BY position DESC LIMIT ?`,
		session, position, associationDepth)
	if err != nil {
		return err
	}
	var prevIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		prevIDs = append(prevIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for i, prev := range prevIDs {
		order := i + 1 // distance 1..K
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO command_associations (a, b, seq_order, strength, last_seen)
			 VALUES (?, ?, ?, 1, ?)
			 ON CONFLICT(a, b, seq_order) DO UPDATE SET
				strength = strength + 1, last_seen = excluded.last_seen`,
			prev, entryID, order, ts); err != nil {
			return fmt.Errorf("associate %d->%d: %w", prev, entryID, err)
		}
	}
	return nil
}

// sessionFor returns the session id to use for a new shell entry at ts,
// and its position within that session. Reuses the most recent session
// if its last entry is within sessionTimeoutSeconds of ts; otherwise
// mints a new session id.
func sessionFor(ctx context.Context, tx *sql.Tx, ts int64) (string, int, error) {
	var lastSession string
	var lastPosition int
	var lastCreated int64

	row := tx.QueryRowContext(ctx,
		`SELECT session, position, created_at FROM command_sessions ORDER BY entry_id DESC LIMIT 1`)
	switch err := row.Scan(&lastSession, &lastPosition, &lastCreated); err {
	case nil:
		if ts-lastCreated <= sessionTimeoutSeconds && ts >= lastCreated {
			return lastSession, lastPosition + 1, nil
		}
	case sql.ErrNoRows:
		// fall through to mint a new session
	default:
		return "", 0, err
	}

	return fmt.Sprintf("session_%d", ts), 1, nil
}
