package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/healthstore"
	"github.com/blaisecz/vitalsim/internal/notify"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const deliveryTimeout = time.Minute

// deliverSleep writes the day's sleep session at (or after) wake time.
// Failures are retried on a fixed delay up to the attempt bound, then
// recorded as permanently failed.
func (e *Executor) deliverSleep(day *domain.DailyPlan, now time.Time) {
	e.mu.Lock()
	ds := e.days[dayKey(day.Date)]
	if ds == nil || ds.sleepDone || ds.sleepFailed || ds.status == DaySkipped {
		e.mu.Unlock()
		return
	}
	if ds.sleepAttempts == 0 {
		e.notifier.Notify(notify.Event{Kind: notify.SyncStarted, Detail: "sleep import " + dayKey(day.Date)})
	}
	ds.status = DaySleepImporting
	ds.sleepAttempts++
	attempts := ds.sleepAttempts
	meta := e.meta
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	ctx, span := e.tracer.Start(ctx, "executor.deliverSleep",
		trace.WithAttributes(attribute.String("date", dayKey(day.Date))))
	defer span.End()

	e.prepareDay(ctx, day)
	err := e.store.WriteSleepSession(ctx, day.Sleep, day.Sleep.Mode, meta)

	if err == nil {
		e.mu.Lock()
		ds.sleepDone = true
		ds.status = DaySleepImported
		e.mu.Unlock()
		e.recordEvent(now, EventSleepImported, dayKey(day.Date))
		e.notifier.Notify(notify.Event{Kind: notify.SyncSucceeded, Detail: "sleep import " + dayKey(day.Date)})
		return
	}

	e.log.Warn("sleep import failed",
		zap.String("date", dayKey(day.Date)),
		zap.Int("attempt", attempts),
		zap.Error(err))

	if errors.Is(err, domain.ErrNotAuthorized) || attempts >= e.cfg.MaxAttempts {
		e.mu.Lock()
		ds.sleepFailed = true
		ds.settle()
		e.mu.Unlock()
		e.recordEvent(now, EventGaveUp, "sleep import "+dayKey(day.Date))
		e.notifier.Notify(notify.Event{Kind: notify.SyncFailed, Detail: "sleep import " + dayKey(day.Date)})
		return
	}

	id := e.sched.At(now.Add(e.cfg.RetryDelay), "sleep-retry "+dayKey(day.Date), func(fireNow time.Time) {
		e.deliverSleep(day, fireNow)
	})
	e.mu.Lock()
	e.timerIDs = append(e.timerIDs, id)
	e.mu.Unlock()
	e.recordEvent(now, EventRetry, fmt.Sprintf("sleep import %s attempt %d", dayKey(day.Date), attempts))
}

// deliverBatch expands one step batch into 1-minute sub-increments and
// writes them. The batch succeeds or fails as a unit; retry bookkeeping
// lives in the ephemeral batch state, never in the plan.
func (e *Executor) deliverBatch(day *domain.DailyPlan, batch domain.StepBatch, now time.Time) {
	e.mu.Lock()
	ds := e.days[dayKey(day.Date)]
	if ds == nil || ds.status == DaySkipped {
		e.mu.Unlock()
		return
	}
	bs := ds.batches[batch.ID]
	if bs == nil || bs.delivered || bs.failed {
		e.mu.Unlock()
		return
	}
	if ds.status == DayScheduled || ds.status == DaySleepImported {
		ds.status = DayStepImporting
	}
	bs.attempts++
	attempts := bs.attempts
	meta := e.meta
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	ctx, span := e.tracer.Start(ctx, "executor.deliverBatch",
		trace.WithAttributes(
			attribute.String("batch_id", batch.ID.String()),
			attribute.Int("steps", batch.Steps)))
	defer span.End()

	e.prepareDay(ctx, day)
	err := e.writeBatch(ctx, batch, meta)

	if err == nil {
		e.mu.Lock()
		bs.delivered = true
		ds.settle()
		completed := ds.status == DayCompleted
		e.mu.Unlock()
		e.recordEvent(now, EventBatchDone, batch.ID.String())
		if completed {
			e.notifier.Notify(notify.Event{Kind: notify.SyncSucceeded, Detail: "day delivered " + dayKey(day.Date)})
		}
		return
	}

	e.log.Warn("step batch delivery failed",
		zap.String("batch_id", batch.ID.String()),
		zap.Int("attempt", attempts),
		zap.Error(err))

	if errors.Is(err, domain.ErrNotAuthorized) || attempts >= e.cfg.MaxAttempts {
		e.mu.Lock()
		bs.lastErr = err.Error()
		bs.failed = true
		ds.settle()
		e.mu.Unlock()
		e.recordEvent(now, EventGaveUp, batch.ID.String())
		e.notifier.Notify(notify.Event{Kind: notify.SyncFailed, Detail: "batch " + batch.ID.String()})
		return
	}

	id := e.sched.At(now.Add(e.cfg.RetryDelay), "batch-retry "+batch.ID.String(), func(fireNow time.Time) {
		e.deliverBatch(day, batch, fireNow)
	})
	e.mu.Lock()
	bs.lastErr = err.Error()
	e.timerIDs = append(e.timerIDs, id)
	e.mu.Unlock()
	e.recordEvent(now, EventRetry, fmt.Sprintf("batch %s attempt %d", batch.ID, attempts))
}

// writeBatch writes the batch's sub-increments: an even split of the
// steps across the batch duration in 1-minute slices, remainder going
// to the earliest slices.
func (e *Executor) writeBatch(ctx context.Context, batch domain.StepBatch, meta healthstore.Metadata) error {
	for _, inc := range expandBatch(batch) {
		if err := e.store.WriteStepIncrement(ctx, inc, meta); err != nil {
			return err
		}
	}
	return nil
}

func expandBatch(batch domain.StepBatch) []domain.StepIncrement {
	minutes := int(batch.Duration / time.Minute)
	if minutes <= 0 {
		minutes = 1
	}
	start := batch.ScheduledAt.Add(-batch.Duration)
	per := batch.Steps / minutes
	rem := batch.Steps % minutes

	var incs []domain.StepIncrement
	for i := 0; i < minutes; i++ {
		steps := per
		if i < rem {
			steps++
		}
		if steps == 0 {
			continue
		}
		s := start.Add(time.Duration(i) * time.Minute)
		incs = append(incs, domain.StepIncrement{
			Start: s,
			End:   s.Add(time.Minute),
			Steps: steps,
			Kind:  batch.Kind,
		})
	}
	return incs
}

// prepareDay deletes this system's previously written samples for the
// day before its first write, so regenerating a day never duplicates
// data in the store. Best effort: a failed delete does not block
// delivery.
func (e *Executor) prepareDay(ctx context.Context, day *domain.DailyPlan) {
	e.mu.Lock()
	ds := e.days[dayKey(day.Date)]
	if ds == nil || ds.prepared {
		e.mu.Unlock()
		return
	}
	ds.prepared = true
	e.mu.Unlock()

	dayEnd := day.Date.AddDate(0, 0, 1)
	if n, err := e.store.DeleteSamples(ctx, healthstore.SampleSteps, healthstore.OwnSamples(day.Date, dayEnd)); err != nil {
		e.log.Warn("stale step sample cleanup failed", zap.Error(err))
	} else if n > 0 {
		e.log.Info("stale step samples deleted", zap.String("date", dayKey(day.Date)), zap.Int("count", n))
	}
	if day.Sleep != nil {
		if n, err := e.store.DeleteSamples(ctx, healthstore.SampleSleep, healthstore.OwnSamples(day.Sleep.BedTime, day.Sleep.WakeTime)); err != nil {
			e.log.Warn("stale sleep sample cleanup failed", zap.Error(err))
		} else if n > 0 {
			e.log.Info("stale sleep samples deleted", zap.String("date", dayKey(day.Date)), zap.Int("count", n))
		}
	}
}
