// Package maintenance orchestrates retention enforcement, weak-edge and
// session pruning, and vacuum, gated by a sidecar timestamp so the
// expensive steps only run once per interval regardless of how often the
// supervisor's timer or an explicit user request triggers them.
package maintenance

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"jotx/internal/domain"
)

// Store is the subset of internal/store/sqlite.Store maintenance needs.
type Store interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
	RunMaintenance(ctx context.Context, clipCap, shellCap int) error
}

// Runner gates and executes the maintenance steps: retention trim, weak-edge
// prune, session prune, and vacuum, in that order. Grounded on
// original_source/src/db/mod.rs's run_maintenance/should_run_maintenance.
type Runner struct {
	store       Store
	logger      *slog.Logger
	interval    time.Duration
	sidecarPath string
}

// New builds a Runner. sidecarPath is the file tracking the last
// maintenance run; interval is how long must elapse before the next run
// is allowed (spec.md default: 7 days, from config's
// storage.maintenance_interval_days).
func New(store Store, logger *slog.Logger, sidecarPath string, interval time.Duration) *Runner {
	return &Runner{
		store:       store,
		logger:      logger,
		interval:    interval,
		sidecarPath: sidecarPath,
	}
}

// DefaultSidecarPath returns $HOME/.jotx/.last_maintenance, mirroring
// get_maintenance_file_path in the original implementation.
func DefaultSidecarPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", domain.NewError("maintenance.default_sidecar_path", domain.KindInvalidInput, "resolve home directory: "+err.Error())
	}
	return filepath.Join(home, ".jotx", ".last_maintenance"), nil
}

// ShouldRun reports whether enough time has elapsed since the last
// maintenance run to justify running again. A missing or unreadable
// sidecar file means maintenance has never run, so it always returns true
// in that case — mirroring should_run_maintenance's Err(_) => true arm.
func (r *Runner) ShouldRun() bool {
	last, err := r.lastRunTime()
	if err != nil {
		return true
	}
	return time.Since(last) > r.interval
}

// Run executes the maintenance steps unconditionally and updates the
// sidecar timestamp on success. Callers that want the interval gate
// should check ShouldRun first; RunIfDue does both.
func (r *Runner) Run(ctx context.Context) error {
	settings, err := r.store.GetSettings(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := r.store.RunMaintenance(ctx, settings.ClipboardLimit, settings.ShellLimit); err != nil {
		return err
	}

	if err := r.touch(); err != nil {
		r.logger.Warn("maintenance: failed to update sidecar timestamp", "error", err)
	}

	r.logger.Info("maintenance complete", "duration", time.Since(start))
	return nil
}

// RunIfDue runs maintenance only if ShouldRun reports true. Used by both
// the supervisor's periodic timer and an explicit user-triggered run —
// the explicit path calls Run directly to bypass the gate (spec.md §4.9:
// "on a supervisor-timer ... AND on explicit user request").
func (r *Runner) RunIfDue(ctx context.Context) error {
	if !r.ShouldRun() {
		r.logger.Debug("maintenance: skipped, interval not yet elapsed")
		return nil
	}
	return r.Run(ctx)
}

func (r *Runner) lastRunTime() (time.Time, error) {
	data, err := os.ReadFile(r.sidecarPath)
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}, domain.NewError("maintenance.last_run_time", domain.KindInvalidInput, "invalid timestamp in sidecar file")
	}
	return time.Unix(secs, 0), nil
}

func (r *Runner) touch() error {
	if dir := filepath.Dir(r.sidecarPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.NewError("maintenance.touch", domain.KindStorage, "create sidecar directory: "+err.Error())
		}
	}
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := os.WriteFile(r.sidecarPath, []byte(now), 0o644); err != nil {
		return domain.NewError("maintenance.touch", domain.KindStorage, "write sidecar file: "+err.Error())
	}
	return nil
}
