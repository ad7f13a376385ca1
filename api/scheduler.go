/*
scheduler.go - Automated due-date reminder scheduler

PURPOSE:
  Periodically checks for obligation templates whose suggested due date
  falls inside their reminder window and logs the upcoming payments. The
  web UI polls /api/recurrence/due-soon for the same data; the scheduler
  exists so a headless deployment still surfaces reminders in its logs.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates window logic to the recurrence engine (DueSoon)
  - Skips templates already confirmed or snoozed - the engine filters them

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReminderScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ListDueSoon endpoint (on-demand reminders)
  - recurrence/engine.go: DueSoon window logic
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// ReminderScheduler logs upcoming obligations on a fixed interval.
type ReminderScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReminderScheduler creates a new scheduler.
func NewReminderScheduler(handler *Handler) *ReminderScheduler {
	return &ReminderScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *ReminderScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReminderScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndLog()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndLog()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReminderScheduler) checkAndLog() {
	ctx := context.Background()
	h := rs.Handler
	today := h.Now()

	records, err := h.Store.Obligations(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error loading records: %v", err)
		return
	}

	due := h.Recurrence.DueSoon(records, today)
	if len(due) == 0 {
		return
	}

	for _, s := range due {
		log.Printf("[Scheduler] Due soon: %s %s %s on %s",
			s.Template.Name, s.SuggestedAmount.StringFixed(2),
			s.Template.Currency, s.SuggestedDate.Format("2006-01-02"))
	}
	log.Printf("[Scheduler] %d obligation(s) due within their reminder window", len(due))
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *ReminderScheduler) RunNow() {
	rs.checkAndLog()
}
