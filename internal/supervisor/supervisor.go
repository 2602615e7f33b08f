// Package supervisor implements C10: the daemon process that spawns the
// capture workers and write pipeline, runs the periodic daemon-tick and
// maintenance timers, and holds a PID-file lock so only one instance
// runs at a time.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"jotx/internal/capture"
	"jotx/internal/domain"
	"jotx/internal/maintenance"
	"jotx/internal/pipeline"
	"jotx/internal/plugin"
	"jotx/internal/usecase/scheduling"
)

const (
	// daemonTickPeriod drives DispatchDaemonTick and the settings cache
	// refresh (spec.md §4.10).
	daemonTickPeriod = "10s"
	// maintenanceCheckPeriod is how often the scheduler asks the
	// maintenance Runner whether it's due; the Runner's own sidecar gate
	// (default 7 days) decides whether work actually runs.
	maintenanceCheckPeriod = "1h"
)

// Supervisor wires the capture workers, write pipeline, plugin hub, and
// maintenance runner onto a Scheduler-driven tick loop. Grounded on
// hieuntg81-alfred-ai/internal/usecase/scheduling.Scheduler for the
// periodic registrations.
type Supervisor struct {
	logger *slog.Logger
	runID  string

	writer    *pipeline.Writer
	clipboard *capture.ClipboardPoller
	shell     *capture.ShellIntake
	settings  *capture.SettingsCache
	plugins   *plugin.Registry
	runner    *maintenance.Runner
	scheduler *scheduling.Scheduler

	lockPath string
	lock     *flock.Flock

	wg sync.WaitGroup
}

// Dependencies collects the already-constructed collaborators a
// Supervisor wires together. Assembly (opening the store, building the
// embedding/LLM adapters, loading plugins) belongs to cmd/jotxd; the
// Supervisor only sequences their lifecycles.
type Dependencies struct {
	Writer      *pipeline.Writer
	Clipboard   *capture.ClipboardPoller
	Shell       *capture.ShellIntake
	Settings    *capture.SettingsCache
	Plugins     *plugin.Registry
	Maintenance *maintenance.Runner
	LockPath    string // PID-file lock path; defaults to $HOME/.jotx/jotxd.lock
	Logger      *slog.Logger
}

// New builds a Supervisor. A fresh ULID tags every log line emitted
// during this run so concurrent/successive daemon runs can be told
// apart in aggregated logs.
func New(deps Dependencies) (*Supervisor, error) {
	lockPath := deps.LockPath
	if lockPath == "" {
		p, err := DefaultLockPath()
		if err != nil {
			return nil, err
		}
		lockPath = p
	}

	runID := ulid.Make().String()
	logger := deps.Logger.With("run_id", runID)

	return &Supervisor{
		logger:    logger,
		runID:     runID,
		writer:    deps.Writer,
		clipboard: deps.Clipboard,
		shell:     deps.Shell,
		settings:  deps.Settings,
		plugins:   deps.Plugins,
		runner:    deps.Maintenance,
		scheduler: scheduling.NewScheduler(logger),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// DefaultLockPath returns $HOME/.jotx/jotxd.lock.
func DefaultLockPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", domain.NewError("supervisor.default_lock_path", domain.KindInvalidInput, "resolve home directory: "+err.Error())
	}
	return filepath.Join(home, ".jotx", "jotxd.lock"), nil
}

// Run acquires the PID-file lock, starts the capture workers and writer,
// registers the daemon-tick and maintenance schedules, and blocks until
// ctx is cancelled — at which point it drains the write queue and
// releases the lock before returning.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.acquireLock(); err != nil {
		return err
	}
	defer s.releaseLock()

	s.logger.Info("jotxd starting", "run_id", s.runID)

	workers, cancelWorkers := context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writer.Run(workers)
	}()
	if s.clipboard != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.clipboard.Run(workers)
		}()
	}
	if s.shell != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.shell.Run(workers)
		}()
	}

	if err := s.registerSchedule(); err != nil {
		cancelWorkers()
		s.wg.Wait()
		return err
	}
	if err := s.scheduler.Start(ctx); err != nil {
		cancelWorkers()
		s.wg.Wait()
		return err
	}

	<-ctx.Done()
	s.logger.Info("jotxd shutting down")

	if err := s.scheduler.Stop(); err != nil {
		s.logger.Warn("scheduler stop failed", "error", err)
	}
	cancelWorkers()
	s.wg.Wait()
	s.writer.Wait()

	s.logger.Info("jotxd stopped")
	return nil
}

func (s *Supervisor) registerSchedule() error {
	s.scheduler.RegisterAction(scheduling.ActionDaemonTick, func(ctx context.Context) error {
		if s.settings != nil {
			if err := s.settings.Refresh(ctx); err != nil {
				s.logger.Warn("settings refresh failed", "error", err)
			}
		}
		if s.plugins != nil {
			s.plugins.DispatchDaemonTick(ctx, domain.TickContext{Timestamp: time.Now().Unix()})
		}
		return nil
	})
	s.scheduler.RegisterAction(scheduling.ActionMaintenance, func(ctx context.Context) error {
		if s.runner == nil {
			return nil
		}
		return s.runner.RunIfDue(ctx)
	})

	if err := s.scheduler.AddTask(scheduling.ScheduledTask{
		Name: "daemon-tick", Schedule: daemonTickPeriod, Action: scheduling.ActionDaemonTick,
	}); err != nil {
		return domain.NewError("supervisor.register_schedule", domain.KindInvalidInput, err.Error())
	}
	if err := s.scheduler.AddTask(scheduling.ScheduledTask{
		Name: "maintenance-check", Schedule: maintenanceCheckPeriod, Action: scheduling.ActionMaintenance,
	}); err != nil {
		return domain.NewError("supervisor.register_schedule", domain.KindInvalidInput, err.Error())
	}
	return nil
}

func (s *Supervisor) acquireLock() error {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return domain.NewError("supervisor.acquire_lock", domain.KindStorage, "create lock directory: "+err.Error())
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return domain.NewError("supervisor.acquire_lock", domain.KindStorage, err.Error())
	}
	if !ok {
		return domain.NewError("supervisor.acquire_lock", domain.KindInvalidInput,
			fmt.Sprintf("another jotxd instance holds the lock at %s", s.lockPath))
	}
	return nil
}

func (s *Supervisor) releaseLock() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release lock file", "error", err)
	}
}
