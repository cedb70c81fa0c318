package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/bracket-tournament/internal/config"
	"github.com/bracket-tournament/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRotator struct {
	mu       sync.Mutex
	activeID int64
	rotated  int
	err      error
}

func (r *fakeRotator) Rotate(ctx context.Context) (*domain.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.rotated++
	r.activeID++
	return &domain.Tournament{ID: r.activeID, Active: true}, nil
}

func (r *fakeRotator) ActiveTournamentID(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeID == 0 {
		return 0, domain.ErrNoActiveTournament
	}
	return r.activeID, nil
}

// fakeLock is a shared lock without expiry
type fakeLock struct {
	mu       sync.Mutex
	held     bool
	released int
}

func (l *fakeLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.released++
	return nil
}

// expire drops the lock the way the TTL would
func (l *fakeLock) expire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
}

func newWorker(rotator Rotator, lock Locker, onStartup bool) *RotationWorker {
	cfg := &config.RotationConfig{Schedule: "0 0 * * *", RotateOnStartup: onStartup}
	return NewRotationWorker(rotator, lock, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunOnceRotates(t *testing.T) {
	rotator := &fakeRotator{}
	lock := &fakeLock{}
	w := newWorker(rotator, lock, false)

	require.NoError(t, w.RunOnce(context.Background()))
	assert.Equal(t, 1, rotator.rotated)
	assert.Equal(t, 0, lock.released)
	assert.True(t, lock.held)
}

func TestRunOnceRotatesOncePerTickAcrossInstances(t *testing.T) {
	rotator := &fakeRotator{activeID: 1}
	lock := &fakeLock{}
	first := newWorker(rotator, lock, false)
	second := newWorker(rotator, lock, false)
	ctx := context.Background()

	require.NoError(t, first.RunOnce(ctx))
	require.NoError(t, second.RunOnce(ctx))
	assert.Equal(t, 1, rotator.rotated)
	assert.Equal(t, int64(2), rotator.activeID)

	lock.expire()
	require.NoError(t, second.RunOnce(ctx))
	assert.Equal(t, 2, rotator.rotated)
}

func TestRunOnceConcurrentInstancesRotateOnce(t *testing.T) {
	rotator := &fakeRotator{activeID: 1}
	lock := &fakeLock{}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		w := newWorker(rotator, lock, false)
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.RunOnce(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, rotator.rotated)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	rotator := &fakeRotator{}
	lock := &fakeLock{held: true}
	w := newWorker(rotator, lock, false)

	require.NoError(t, w.RunOnce(context.Background()))
	assert.Equal(t, 0, rotator.rotated)
}

func TestRunOnceReturnsRotationError(t *testing.T) {
	rotator := &fakeRotator{err: errors.New("database down")}
	lock := &fakeLock{}
	w := newWorker(rotator, lock, false)

	require.Error(t, w.RunOnce(context.Background()))
	assert.False(t, lock.held)
	assert.Equal(t, 1, lock.released)
}

func TestStartRotatesWhenNoTournamentIsActive(t *testing.T) {
	rotator := &fakeRotator{}
	w := newWorker(rotator, nil, true)

	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	assert.True(t, w.IsRunning())
	assert.Equal(t, 1, rotator.rotated)

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}

func TestStartKeepsExistingTournament(t *testing.T) {
	rotator := &fakeRotator{activeID: 4}
	w := newWorker(rotator, nil, true)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Equal(t, 0, rotator.rotated)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	w := newWorker(&fakeRotator{}, nil, false)
	w.config.Schedule = "not a cron"

	require.Error(t, w.Start(context.Background()))
	assert.False(t, w.IsRunning())
}
