package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Purger runs one purge sweep. *Service implements it.
type Purger interface {
	Purge(ctx context.Context, pendingTTL, deliveredTTL time.Duration) (PurgeResult, error)
}

// ReaperConfig holds configuration for the purge reaper.
type ReaperConfig struct {
	// Purger performs the sweep. Required.
	Purger Purger

	// PendingTTL and DeliveredTTL are passed to every sweep.
	PendingTTL   time.Duration
	DeliveredTTL time.Duration

	// Interval between sweeps. Default: 24 hours.
	Interval time.Duration

	// PurgeOnStart runs a sweep as soon as the reaper starts.
	PurgeOnStart bool
}

// Reaper runs purge sweeps on a fixed interval.
//
// A failed or panicking sweep is logged and the next tick proceeds as
// normal; a sweep is never retried within its own tick.
type Reaper struct {
	purger       Purger
	pendingTTL   time.Duration
	deliveredTTL time.Duration
	interval     time.Duration
	purgeOnStart bool

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

const defaultPurgeInterval = 24 * time.Hour

// NewReaper creates a reaper. Call Start to begin sweeping.
func NewReaper(cfg ReaperConfig) *Reaper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	return &Reaper{
		purger:       cfg.Purger,
		pendingTTL:   cfg.PendingTTL,
		deliveredTTL: cfg.DeliveredTTL,
		interval:     interval,
		purgeOnStart: cfg.PurgeOnStart,
		done:         make(chan struct{}),
		logger:       noopLogger{},
	}
}

// SetLogger sets the logger for the reaper.
func (r *Reaper) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

func (r *Reaper) log() Logger {
	r.loggerMu.RLock()
	defer r.loggerMu.RUnlock()
	return r.logger
}

// Start launches the sweep loop. It returns immediately; the loop ends
// when ctx is cancelled or Stop is called.
func (r *Reaper) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop ends the loop and waits for an in-progress sweep to finish.
// Safe to call multiple times.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

// Run starts the reaper and blocks until ctx is cancelled, for use under
// an errgroup.
func (r *Reaper) Run(ctx context.Context) error {
	r.Start(ctx)
	select {
	case <-ctx.Done():
	case <-r.done:
	}
	r.Stop()
	return nil
}

func (r *Reaper) loop(ctx context.Context) {
	defer r.wg.Done()

	r.log().Info("purge reaper started",
		"interval", r.interval,
		"pending_ttl", r.pendingTTL,
		"delivered_ttl", r.deliveredTTL,
	)

	if r.purgeOnStart {
		r.RunOnce(ctx) //nolint:errcheck // Logged inside RunOnce
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.RunOnce(ctx) //nolint:errcheck // Logged inside RunOnce
		}
	}
}

// RunOnce performs a single sweep and returns its outcome. Failures and
// panics are logged and returned; they never propagate beyond the caller.
func (r *Reaper) RunOnce(ctx context.Context) (result PurgeResult, err error) {
	sweepID := uuid.NewString()
	log := r.log()
	started := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("purge sweep panicked: %v", p)
			log.Error("purge sweep panic recovered", "sweep_id", sweepID, "panic", p)
		}
	}()

	result, err = r.purger.Purge(ctx, r.pendingTTL, r.deliveredTTL)
	if err != nil {
		log.Error("purge sweep failed",
			"sweep_id", sweepID,
			"pending_ttl", r.pendingTTL,
			"delivered_ttl", r.deliveredTTL,
			"error", err,
		)
		return result, err
	}

	log.Info("purge sweep completed",
		"sweep_id", sweepID,
		"pending_ttl", r.pendingTTL,
		"delivered_ttl", r.deliveredTTL,
		"pending_cutoff", result.PendingCutoff,
		"delivered_cutoff", result.DeliveredCutoff,
		"pending_deleted", result.PendingDeleted,
		"delivered_deleted", result.DeliveredDeleted,
		"duration", time.Since(started),
	)
	return result, nil
}
