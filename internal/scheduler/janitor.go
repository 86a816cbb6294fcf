// Package scheduler runs periodic maintenance of the local store.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/storysync/internal/logger"
	"github.com/MrSnakeDoc/storysync/internal/store"
)

// PendingJanitor removes synced records once they are older than the
// retention. Unsynced records are never touched.
type PendingJanitor struct {
	store     store.PendingStore
	logger    logger.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewPendingJanitor creates a janitor. A zero retention disables it.
func NewPendingJanitor(
	st store.PendingStore,
	log logger.Logger,
	interval time.Duration,
	retention time.Duration,
) *PendingJanitor {
	return &PendingJanitor{
		store:     st,
		logger:    log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Enabled reports whether Start will do anything.
func (j *PendingJanitor) Enabled() bool {
	return j.retention > 0 && j.interval > 0
}

// Start runs one collection right away, then every interval.
func (j *PendingJanitor) Start(ctx context.Context) {
	if !j.Enabled() {
		j.logger.Debug("pending janitor disabled")
		return
	}

	if _, err := j.Collect(ctx); err != nil {
		j.logger.Warn("initial pending cleanup failed", logger.Error(err))
	}

	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := j.Collect(ctx); err != nil {
					j.logger.Error("pending cleanup failed", logger.Error(err))
				}
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (j *PendingJanitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// Collect deletes the expired synced records and returns how many went.
func (j *PendingJanitor) Collect(ctx context.Context) (int, error) {
	if j.retention <= 0 {
		return 0, nil
	}

	all, err := j.store.GetAllPending(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := j.now().Add(-j.retention)
	deleted := 0
	for _, p := range all {
		if !p.Synced || p.SyncedAt == nil || p.SyncedAt.After(cutoff) {
			continue
		}
		if err := j.store.RemovePending(ctx, p.TempID); err != nil {
			j.logger.Warn("failed to remove synced story",
				logger.TempID(p.TempID),
				logger.Error(err))
			continue
		}
		deleted++
	}

	if deleted > 0 {
		j.logger.Info("pending cleanup completed", logger.Int("deleted", deleted))
	} else {
		j.logger.Debug("no synced stories to clean up")
	}
	return deleted, nil
}
