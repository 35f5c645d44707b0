/*
scheduler.go - Recurring payment reminder sweep

PURPOSE:
  Periodically scans for users overdue for a payment reminder, creates a
  reminder record for each, and drives the Dispatch Router.

DESIGN:
  - Runs a background goroutine with a configurable sweep interval
  - Single-flight: a tick arriving while a sweep is running is skipped
  - Per-user isolation: one user's failure is logged and does not abort
    the rest of the sweep
  - Bounded concurrency across users within one sweep
  - Stop() waits for an in-flight sweep instead of interrupting it

CONFIGURATION:
  - Interval:      How often to sweep (default: 24 hours)
  - CooldownDays:  Qualifying-payment window (default: 30)
  - DueInDays:     Days until the payment is due (default: 3)
  - MaxConcurrent: Users processed in parallel per sweep (default: 4)

USAGE:
  scheduler := notify.NewScheduler(deps, router)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - dispatch.go: Channel fan-out
  - store.go: Due/preference/reminder contracts
*/
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ecorewards/loyalty-engine/loyalty"
)

// Scheduler defaults.
const (
	DefaultSweepInterval = 24 * time.Hour
	DefaultDueInDays     = 3
	DefaultMaxConcurrent = 4
)

// SchedulerDeps are the injected collaborators.
type SchedulerDeps struct {
	Due         DueStore
	Preferences PreferenceStore
	Reminders   ReminderStore
	Contacts    ContactStore
}

// SweepSummary reports what one sweep did.
type SweepSummary struct {
	Due      int `json:"due"`
	Reminded int `json:"reminded"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// =============================================================================
// SCHEDULER
// =============================================================================

// Scheduler drives the recurring reminder sweep.
type Scheduler struct {
	Router        *Router
	Interval      time.Duration
	CooldownDays  int
	DueInDays     int
	MaxConcurrent int

	deps SchedulerDeps

	ticker   *time.Ticker
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
	sweeping bool
}

// NewScheduler creates a scheduler with default cadence.
func NewScheduler(deps SchedulerDeps, router *Router) *Scheduler {
	return &Scheduler{
		Router:        router,
		Interval:      DefaultSweepInterval,
		CooldownDays:  DefaultCooldownDays,
		DueInDays:     DefaultDueInDays,
		MaxConcurrent: DefaultMaxConcurrent,
		deps:          deps,
		stop:          make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with sweep interval: %v", s.Interval)
}

// Stop halts the loop and waits for any in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.ticker.Stop()
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Sweep immediately on start.
	s.trySweep()

	for {
		select {
		case <-s.ticker.C:
			s.trySweep()
		case <-s.stop:
			return
		}
	}
}

// trySweep runs a sweep unless one is already in progress.
func (s *Scheduler) trySweep() {
	if !s.beginSweep() {
		log.Println("[Scheduler] Sweep still in progress, skipping tick")
		return
	}
	defer s.endSweep()

	summary := s.sweep(context.Background())
	if summary.Due > 0 {
		log.Printf("[Scheduler] Sweep completed: %d due, %d reminded, %d skipped, %d failed",
			summary.Due, summary.Reminded, summary.Skipped, summary.Failed)
	}
}

func (s *Scheduler) beginSweep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweeping {
		return false
	}
	s.sweeping = true
	return true
}

func (s *Scheduler) endSweep() {
	s.mu.Lock()
	s.sweeping = false
	s.mu.Unlock()
}

// RunNow triggers one sweep synchronously (manual/test invocation). Returns
// the summary; a concurrent background sweep suppresses it entirely.
func (s *Scheduler) RunNow(ctx context.Context) SweepSummary {
	if !s.beginSweep() {
		return SweepSummary{}
	}
	defer s.endSweep()
	return s.sweep(ctx)
}

// sweep finds due users and processes them with bounded concurrency.
// Per-user failures are counted and logged, never fatal.
func (s *Scheduler) sweep(ctx context.Context) SweepSummary {
	userIDs, err := s.deps.Due.ListUsersDue(ctx, s.CooldownDays)
	if err != nil {
		log.Printf("[Scheduler] Error listing due users: %v", err)
		return SweepSummary{}
	}

	var (
		mu      sync.Mutex
		summary = SweepSummary{Due: len(userIDs)}
	)

	g := errgroup.Group{}
	g.SetLimit(s.MaxConcurrent)

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			outcome := s.remindUser(ctx, userID)

			mu.Lock()
			switch outcome {
			case outcomeReminded:
				summary.Reminded++
			case outcomeSkipped:
				summary.Skipped++
			default:
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return summary
}

type sweepOutcome int

const (
	outcomeReminded sweepOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// remindUser runs one user's reminder cycle: create a pending record,
// dispatch, persist the merged result.
func (s *Scheduler) remindUser(ctx context.Context, userID loyalty.UserID) sweepOutcome {
	active, err := s.deps.Reminders.HasActiveReminder(ctx, userID)
	if err != nil {
		log.Printf("[Scheduler] Error checking active reminder for %s: %v", userID, err)
		return outcomeFailed
	}
	if active {
		return outcomeSkipped
	}

	pref, err := s.deps.Preferences.GetPreferences(ctx, userID)
	if err != nil {
		log.Printf("[Scheduler] Error loading preferences for %s: %v", userID, err)
		return outcomeFailed
	}
	if !pref.RemindersEnabled {
		return outcomeSkipped
	}

	contact, err := s.deps.Contacts.GetContact(ctx, userID)
	if err != nil {
		log.Printf("[Scheduler] Error loading contact for %s: %v", userID, err)
		return outcomeFailed
	}

	now := time.Now().UTC()
	rec := ReminderRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		DueAt:     now.AddDate(0, 0, s.DueInDays),
		Status:    StatusPending,
		CreatedAt: now,
	}
	if err := s.deps.Reminders.CreateReminder(ctx, rec); err != nil {
		log.Printf("[Scheduler] Error creating reminder for %s: %v", userID, err)
		return outcomeFailed
	}

	rec = s.Router.Dispatch(ctx, rec, pref, contact, s.DueInDays)

	if err := s.deps.Reminders.UpdateReminder(ctx, rec); err != nil {
		log.Printf("[Scheduler] Error updating reminder %s for %s: %v", rec.ID, userID, err)
		return outcomeFailed
	}
	return outcomeReminded
}
