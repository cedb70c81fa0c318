package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bracket-tournament/internal/config"
	"github.com/bracket-tournament/internal/domain"
	"github.com/go-co-op/gocron/v2"
)

// Rotator closes the active tournament and opens the next
type Rotator interface {
	Rotate(ctx context.Context) (*domain.Tournament, error)
	ActiveTournamentID(ctx context.Context) (int64, error)
}

// Locker keeps several instances from rotating on the same tick
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// RotationWorker rotates the tournament on a cron schedule
type RotationWorker struct {
	rotator   Rotator
	lock      Locker
	config    *config.RotationConfig
	logger    *slog.Logger
	scheduler gocron.Scheduler
	mu        sync.Mutex
	running   bool
}

// NewRotationWorker creates a new rotation worker. lock may be nil when a
// single instance runs.
func NewRotationWorker(
	rotator Rotator,
	lock Locker,
	cfg *config.RotationConfig,
	logger *slog.Logger,
) *RotationWorker {
	return &RotationWorker{
		rotator: rotator,
		lock:    lock,
		config:  cfg,
		logger:  logger,
	}
}

// Start opens a first tournament when configured and none is active, then
// schedules the periodic rotation
func (w *RotationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if w.config.RotateOnStartup {
		if err := w.ensureActive(ctx); err != nil {
			return err
		}
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(w.config.Schedule, false),
		gocron.NewTask(func() {
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("scheduled rotation failed", "error", err)
			}
		}),
		gocron.WithName("tournament-rotation"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("scheduling rotation: %w", err)
	}

	scheduler.Start()
	w.scheduler = scheduler
	w.running = true

	w.logger.Info("rotation worker started", "schedule", w.config.Schedule)
	return nil
}

// Stop stops the scheduler and waits for a running rotation
func (w *RotationWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}

	if err := w.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("stopping scheduler: %w", err)
	}
	w.running = false

	w.logger.Info("rotation worker stopped")
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *RotationWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce performs a single rotation. When another instance holds the lock
// the tick is skipped. After a successful rotation the lock is kept until its
// TTL runs out, so instances whose tick fires a little later skip the same
// period; it is released right away only when the rotation failed.
func (w *RotationWorker) RunOnce(ctx context.Context) error {
	if w.lock != nil {
		acquired, err := w.lock.Acquire(ctx)
		if err != nil {
			return err
		}
		if !acquired {
			w.logger.Info("rotation skipped, already rotated by another instance")
			return nil
		}
	}

	startTime := time.Now()
	t, err := w.rotator.Rotate(ctx)
	if err != nil {
		w.releaseLock(ctx)
		return err
	}

	w.logger.Info("rotation completed",
		"tournament_id", t.ID,
		"duration", time.Since(startTime),
	)
	return nil
}

func (w *RotationWorker) releaseLock(ctx context.Context) {
	if w.lock == nil {
		return
	}
	if err := w.lock.Release(ctx); err != nil {
		w.logger.Warn("failed to release rotation lock", "error", err)
	}
}

func (w *RotationWorker) ensureActive(ctx context.Context) error {
	_, err := w.rotator.ActiveTournamentID(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNoActiveTournament) {
		return fmt.Errorf("checking active tournament: %w", err)
	}

	w.logger.Info("no active tournament, rotating on startup")
	return w.RunOnce(ctx)
}
