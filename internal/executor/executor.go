// Package executor replays a weekly package against the external health
// store in real time: one timer per delivery unit, bounded retries with
// a fixed backoff, and an hourly housekeeping tick that handles day and
// week rollover. All timer callbacks run on the scheduler's single
// goroutine; the mutex only guards snapshots taken from other
// goroutines.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/healthstore"
	"github.com/blaisecz/vitalsim/internal/notify"
	"github.com/blaisecz/vitalsim/internal/scheduler"
	"github.com/blaisecz/vitalsim/pkg/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 30 * time.Minute
	DefaultEventLogCap = 200

	housekeepInterval = time.Hour
)

// Config tunes the delivery policy.
type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
	EventLogCap int
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.EventLogCap <= 0 {
		c.EventLogCap = DefaultEventLogCap
	}
	return c
}

// PlanSource supplies weekly packages. *planner.Manager implements it.
type PlanSource interface {
	EnsureCurrent(ctx context.Context, now time.Time) (*domain.WeeklyPackage, error)
	Housekeep(ctx context.Context, now time.Time) error
}

type Executor struct {
	mu       sync.Mutex
	cfg      Config
	sched    *scheduler.Scheduler
	store    healthstore.Store
	plans    PlanSource
	notifier notify.Notifier
	clk      clock.Clock
	log      *zap.Logger
	tracer   trace.Tracer

	pkg      *domain.WeeklyPackage
	meta     healthstore.Metadata
	days     map[string]*dayState
	timerIDs []scheduler.ID
	events   []Event
}

func New(cfg Config, sched *scheduler.Scheduler, store healthstore.Store, plans PlanSource, notifier notify.Notifier, clk clock.Clock, log *zap.Logger) *Executor {
	return &Executor{
		cfg:      cfg.withDefaults(),
		sched:    sched,
		store:    store,
		plans:    plans,
		notifier: notifier,
		clk:      clk,
		log:      log,
		tracer:   otel.Tracer("vitalsim/executor"),
		days:     make(map[string]*dayState),
	}
}

// Start requests store authorization, loads the package covering now
// and arms its timers plus the housekeeping tick. An authorization
// denial is surfaced immediately and never retried.
func (e *Executor) Start(ctx context.Context) error {
	if err := e.store.RequestAuthorization(ctx); err != nil {
		return fmt.Errorf("health store authorization: %w", err)
	}

	now := e.clk.Now()
	pkg, err := e.plans.EnsureCurrent(ctx, now)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.adoptPackageLocked(pkg, now)
	e.mu.Unlock()

	e.armHousekeeping(now)
	return nil
}

// adoptPackageLocked switches delivery to pkg: every timer for the
// superseded package is cancelled before any new one is armed, so a
// rollover can never double-deliver.
func (e *Executor) adoptPackageLocked(pkg *domain.WeeklyPackage, now time.Time) {
	for _, id := range e.timerIDs {
		e.sched.Cancel(id)
	}
	e.timerIDs = nil

	if e.pkg != nil {
		for _, ds := range e.days {
			if !ds.terminal() {
				ds.status = DaySkipped
			}
		}
	}

	e.pkg = pkg
	e.meta = healthstore.NewMetadata(pkg.ID, pkg.GeneratedAt)
	e.days = make(map[string]*dayState)
	for i := range pkg.Days {
		e.armDayLocked(&pkg.Days[i], now)
	}
	e.log.Info("weekly package armed",
		zap.String("package_id", pkg.ID.String()),
		zap.Time("week_start", pkg.WeekStart),
		zap.Int("timers", len(e.timerIDs)))
}

// armDayLocked arms one day's sleep import and batch timers. Days fully
// in the past are skipped; units whose time already passed fire on the
// next loop iteration.
func (e *Executor) armDayLocked(day *domain.DailyPlan, now time.Time) {
	ds := newDayState(day)
	e.days[dayKey(day.Date)] = ds

	if !day.Date.AddDate(0, 0, 1).After(now) {
		ds.status = DaySkipped
		return
	}
	ds.status = DayScheduled

	if day.Sleep != nil && day.Schedule.SleepImportAt != nil {
		at := laterOf(*day.Schedule.SleepImportAt, now)
		d := day
		id := e.sched.At(at, "sleep-import "+dayKey(day.Date), func(fireNow time.Time) {
			e.deliverSleep(d, fireNow)
		})
		e.timerIDs = append(e.timerIDs, id)
	}

	for _, batches := range [][]domain.StepBatch{day.Batches, day.SleepBatches} {
		for i := range batches {
			b := batches[i]
			ds.batches[b.ID] = &batchState{}
			d := day
			id := e.sched.At(laterOf(b.ScheduledAt, now), "step-batch "+b.ID.String(), func(fireNow time.Time) {
				e.deliverBatch(d, b, fireNow)
			})
			e.timerIDs = append(e.timerIDs, id)
		}
	}
}

// armHousekeeping schedules the hourly tick. The tick is not part of
// the package timer set, so package switches do not cancel it.
func (e *Executor) armHousekeeping(now time.Time) {
	e.sched.At(now.Add(housekeepInterval), "housekeeping", func(fireNow time.Time) {
		e.housekeep(fireNow)
		e.armHousekeeping(fireNow)
	})
}

// housekeep advances the plan lifecycle and swaps packages on rollover.
func (e *Executor) housekeep(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := e.plans.Housekeep(ctx, now); err != nil {
		e.log.Warn("plan housekeeping failed", zap.Error(err))
	}

	pkg, err := e.plans.EnsureCurrent(ctx, now)
	if err != nil {
		e.log.Error("no current weekly package", zap.Error(err))
		e.recordEvent(now, EventError, "plan refresh failed: "+err.Error())
		return
	}

	e.mu.Lock()
	if e.pkg != nil && e.pkg.ID == pkg.ID {
		e.mu.Unlock()
		return
	}
	e.log.Info("day rollover: switching weekly package",
		zap.String("package_id", pkg.ID.String()))
	e.adoptPackageLocked(pkg, now)
	e.mu.Unlock()
	e.recordEvent(now, EventRollover, "package "+pkg.ID.String())
}

func dayKey(date time.Time) string {
	return date.UTC().Format("2006-01-02")
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
