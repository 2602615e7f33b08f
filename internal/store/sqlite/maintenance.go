package sqlite

import (
	"context"
	"time"

	"jotx/internal/domain"
)

const (
	cleanOldSessionsDays      = 90
	cleanOldAssociationsDays  = 30
	weakAssociationStrength   = 2
)

// CleanupOldEntries retains the most recent clipCap clipboard rows and
// shellCap shell rows (by timestamp DESC), deleting the rest. Idempotent:
// a second call with the same caps is a no-op since the surviving set is
// already ≤ the caps.
func (s *Store) CleanupOldEntries(ctx context.Context, clipCap, shellCap int) (int64, error) {
	var total int64
	for kind, rowCap := range map[string]int{"clipboard": clipCap, "shell": shellCap} {
		if rowCap <= 0 {
			continue
		}
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM entries WHERE kind = ? AND id NOT IN (
				SELECT id FROM entries WHERE kind = ? ORDER BY timestamp DESC LIMIT ?
			)`, kind, kind, rowCap)
		if err != nil {
			return total, domain.WrapOp("store.cleanup_old_entries", domain.KindStorage, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// CleanupWeakAssociations deletes edges with strength < 2 whose last_seen
// is older than 30 days.
func (s *Store) CleanupWeakAssociations(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-cleanOldAssociationsDays * 24 * time.Hour).Unix()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM command_associations WHERE strength < ? AND last_seen < ?`,
		weakAssociationStrength, cutoff)
	if err != nil {
		return 0, domain.WrapOp("store.cleanup_weak_associations", domain.KindStorage, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CleanupOldSessions deletes session rows older than 90 days.
func (s *Store) CleanupOldSessions(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-cleanOldSessionsDays * 24 * time.Hour).Unix()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM command_sessions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, domain.WrapOp("store.cleanup_old_sessions", domain.KindStorage, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Vacuum reclaims space after a round of deletes.
func (s *Store) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	if err != nil {
		return domain.WrapOp("store.vacuum", domain.KindStorage, err)
	}
	return nil
}

// RunMaintenance runs weak-edge prune, old-session prune, and vacuum, in
// that order (retention trim is driven separately by the caller since it
// needs settings-derived caps). Grounded on db/mod.rs's run_maintenance.
func (s *Store) RunMaintenance(ctx context.Context, clipCap, shellCap int) error {
	if _, err := s.CleanupOldEntries(ctx, clipCap, shellCap); err != nil {
		return err
	}
	if _, err := s.CleanupWeakAssociations(ctx); err != nil {
		return err
	}
	if _, err := s.CleanupOldSessions(ctx); err != nil {
		return err
	}
	return s.Vacuum(ctx)
}
