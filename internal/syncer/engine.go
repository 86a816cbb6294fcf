// Package syncer drains the offline queue to the remote API.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/gateway"
	"github.com/MrSnakeDoc/storysync/internal/logger"
	"github.com/MrSnakeDoc/storysync/internal/photo"
	"github.com/MrSnakeDoc/storysync/internal/store"
)

// Gateway is the remote write the engine needs. Drains only ever use the
// authenticated variant.
type Gateway interface {
	CreateStory(ctx context.Context, up gateway.Upload) (*gateway.CreateResult, error)
}

// Connectivity is the online belief the engine follows.
type Connectivity interface {
	IsOnline() bool
	MarkOffline() bool
	Subscribe(fn func(online bool)) (cancel func())
}

// FailedRecord is one record a drain could not sync.
type FailedRecord struct {
	TempID string
	Err    error
}

// DrainResult summarizes one pass over the queue. Skipped counts snapshot
// records that were synced, removed or claimed elsewhere before their turn.
type DrainResult struct {
	Attempted int
	Synced    int
	Skipped   int
	Failed    []FailedRecord
}

// Engine owns the Idle -> Syncing -> Idle state machine. At most one drain
// runs at a time and a drain never starts while offline.
type Engine struct {
	store    store.PendingStore
	gateway  Gateway
	conn     Connectivity
	logger   logger.Logger
	interval time.Duration

	syncing atomic.Bool
	started atomic.Bool

	mu       sync.Mutex
	inflight map[string]struct{}
	synced   observers[domain.StorySynced]
	complete observers[domain.SyncComplete]

	trigger  chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	unsub    func()
	done     chan struct{}
}

// New creates an engine. A positive interval also drains periodically.
func New(st store.PendingStore, gw Gateway, conn Connectivity, log logger.Logger, interval time.Duration) *Engine {
	return &Engine{
		store:    st,
		gateway:  gw,
		conn:     conn,
		logger:   log,
		interval: interval,
		inflight: make(map[string]struct{}),
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start binds the engine to connectivity transitions and runs the trigger
// loop. When already online it requests one drain right away.
func (e *Engine) Start(ctx context.Context) {
	e.unsub = e.conn.Subscribe(func(online bool) {
		if online {
			e.logger.Info("connectivity restored, scheduling sync")
			e.Trigger()
		}
	})

	e.started.Store(true)
	go func() {
		defer close(e.done)

		var tick <-chan time.Time
		if e.interval > 0 {
			ticker := time.NewTicker(e.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				e.SyncNow(ctx)
			case <-e.trigger:
				e.SyncNow(ctx)
			case <-e.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	if e.conn.IsOnline() {
		e.Trigger()
	}
}

// Stop detaches from connectivity and waits for the loop to exit. A drain
// that is running completes first.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.unsub != nil {
			e.unsub()
		}
		close(e.stopCh)
	})
	if e.started.Load() {
		<-e.done
	}
}

// Trigger asks the loop for a drain without waiting for it. It reports
// false when the request would be refused anyway.
func (e *Engine) Trigger() bool {
	if !e.conn.IsOnline() || e.syncing.Load() {
		return false
	}
	select {
	case e.trigger <- struct{}{}:
	default:
		// One request is already queued
	}
	return true
}

// SyncNow runs a drain on the calling goroutine. ok is false when refused
// because a drain is running or the engine is offline. The drain ignores
// cancellation of ctx once it has started.
func (e *Engine) SyncNow(ctx context.Context) (res DrainResult, ok bool) {
	if !e.conn.IsOnline() {
		return DrainResult{}, false
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return DrainResult{}, false
	}
	defer e.syncing.Store(false)

	return e.drain(context.WithoutCancel(ctx)), true
}

func (e *Engine) IsOnline() bool  { return e.conn.IsOnline() }
func (e *Engine) IsSyncing() bool { return e.syncing.Load() }

// OnStorySynced registers fn for every confirmed record.
func (e *Engine) OnStorySynced(fn func(domain.StorySynced)) (cancel func()) {
	return e.synced.add(&e.mu, fn)
}

// OnSyncComplete registers fn for the end of every drain.
func (e *Engine) OnSyncComplete(fn func(domain.SyncComplete)) (cancel func()) {
	return e.complete.add(&e.mu, fn)
}

func (e *Engine) drain(ctx context.Context) DrainResult {
	start := time.Now()
	var res DrainResult

	pending, err := e.store.GetUnsyncedPending(ctx)
	if err != nil {
		e.logger.Error("sync failed: could not read pending stories", logger.Error(err))
		e.complete.emit(&e.mu, domain.SyncComplete{SyncedCount: 0})
		return res
	}
	e.logger.Info("starting sync of offline stories", logger.Int("pending", len(pending)))

	for _, p := range pending {
		_, err := e.syncRecord(ctx, p.TempID)
		if skipped(err) {
			res.Skipped++
			e.logger.Debug("skipping story handled elsewhere", logger.TempID(p.TempID), logger.Error(err))
			continue
		}
		res.Attempted++
		if err != nil {
			res.Failed = append(res.Failed, FailedRecord{TempID: p.TempID, Err: err})
			e.logger.Warn("failed to sync story", logger.TempID(p.TempID), logger.Error(err))
			continue
		}
		res.Synced++
	}

	e.logger.Info("sync complete",
		logger.Int("attempted", res.Attempted),
		logger.Int("synced", res.Synced),
		logger.Int("skipped", res.Skipped),
		logger.Int("failed", len(res.Failed)),
		logger.Duration("elapsed", time.Since(start)))
	e.complete.emit(&e.mu, domain.SyncComplete{SyncedCount: res.Synced})
	return res
}

// SyncOne submits a single record outside of a drain.
func (e *Engine) SyncOne(ctx context.Context, tempID string) (*domain.Story, error) {
	return e.syncRecord(ctx, tempID)
}

func skipped(err error) bool {
	return errors.Is(err, domain.ErrAlreadySynced) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrSyncInProgress)
}

// syncRecord claims the record, re-reads it under the claim and submits it
// only while it is still unsynced. A drain snapshot and a concurrent SyncOne
// therefore never both reach the remote API for one record.
func (e *Engine) syncRecord(ctx context.Context, tempID string) (*domain.Story, error) {
	if !e.claim(tempID) {
		return nil, fmt.Errorf("pending story %s: %w", tempID, domain.ErrSyncInProgress)
	}
	defer e.release(tempID)

	p, ok, err := e.store.GetPending(ctx, tempID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("pending story %s: %w", tempID, domain.ErrNotFound)
	}
	if p.Synced {
		return nil, fmt.Errorf("pending story %s: %w", tempID, domain.ErrAlreadySynced)
	}

	data, mimeType, err := photo.Decode(p.Photo)
	if err != nil {
		return nil, domain.NewValidationError("photo", err.Error())
	}

	res, err := e.gateway.CreateStory(ctx, gateway.Upload{
		Description: p.Description,
		Photo:       data,
		PhotoType:   mimeType,
		Lat:         p.Lat,
		Lon:         p.Lon,
	})
	if err != nil {
		if gateway.IsNetworkError(err) && e.conn.MarkOffline() {
			e.logger.Warn("remote API unreachable during sync", logger.Error(err))
		}
		return nil, gateway.Classify(err)
	}

	var serverID string
	if res.Story != nil {
		serverID = res.Story.ID
	}
	// A failure here leaves a record the server already holds; the next
	// drain submits it again. serverID stays empty when the API answered
	// without echoing the story.
	if err := e.store.MarkPendingSynced(ctx, p.TempID, serverID); err != nil {
		return nil, err
	}

	e.logger.Info("synced story", logger.TempID(p.TempID), logger.String("server_id", serverID))
	e.synced.emit(&e.mu, domain.StorySynced{TempID: p.TempID, ServerStory: res.Story})
	return res.Story, nil
}

func (e *Engine) claim(tempID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[tempID]; busy {
		return false
	}
	e.inflight[tempID] = struct{}{}
	return true
}

func (e *Engine) release(tempID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, tempID)
}
