/*
scheduler.go - History retention scheduler

PURPOSE:
  Periodically deletes calculation records older than the retention window,
  so the history table does not grow without bound.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - The cutoff is the start of the day, in the server's default zone,
    RetentionDays before now; a record lives at least RetentionDays full days
  - Idempotency keys are kept by the store, only records are pruned

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - RetentionDays: Window in days; 0 disables pruning
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRetentionScheduler(store, cfg, 30)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - history/history.go: Store.Prune
  - config/config.go: retention_days, retention_interval
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/history"
)

// RetentionScheduler prunes expired calculation history.
type RetentionScheduler struct {
	Store         history.Store
	Calendar      calendar.Config
	Clock         calendar.Clock
	RetentionDays int
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRetentionScheduler creates a new scheduler.
func NewRetentionScheduler(store history.Store, cfg calendar.Config, retentionDays int) *RetentionScheduler {
	return &RetentionScheduler{
		Store:         store,
		Calendar:      cfg,
		Clock:         calendar.SystemClock{},
		RetentionDays: retentionDays,
		CheckInterval: 1 * time.Hour,
		Enabled:       retentionDays > 0,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RetentionScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v, retention: %d days", rs.CheckInterval, rs.RetentionDays)
}

// Stop stops the scheduler.
func (rs *RetentionScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RetentionScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndPrune()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndPrune()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RetentionScheduler) checkAndPrune() {
	n, cutoff, err := rs.PruneOnce(context.Background())
	if err != nil {
		log.Printf("[Scheduler] Error pruning history: %v", err)
		return
	}
	log.Printf("[Scheduler] Pruned %d records created before %v", n, cutoff)
}

// Cutoff returns the oldest instant that is kept.
func (rs *RetentionScheduler) Cutoff() (calendar.Value, error) {
	v := calendar.Now(rs.Clock, rs.Calendar)
	if err := v.Add(calendar.Day, -rs.RetentionDays); err != nil {
		return calendar.Value{}, err
	}
	return calendar.BeginOf(v, calendar.Day)
}

// PruneOnce runs a single retention pass and reports what it removed.
func (rs *RetentionScheduler) PruneOnce(ctx context.Context) (int64, calendar.Value, error) {
	if rs.RetentionDays <= 0 {
		return 0, calendar.Value{}, fmt.Errorf("retention disabled")
	}
	cutoff, err := rs.Cutoff()
	if err != nil {
		return 0, calendar.Value{}, fmt.Errorf("cutoff: %w", err)
	}
	n, err := rs.Store.Prune(ctx, cutoff.Time())
	if err != nil {
		return 0, cutoff, err
	}
	return n, cutoff, nil
}
