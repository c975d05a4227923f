package executor

import (
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/google/uuid"
)

// DayStatus is the per-day delivery state machine:
// idle → scheduled → sleepImporting → sleepImported → stepImporting →
// completed, with skipped and error as terminal alternates.
type DayStatus string

const (
	DayIdle           DayStatus = "IDLE"
	DayScheduled      DayStatus = "SCHEDULED"
	DaySleepImporting DayStatus = "SLEEP_IMPORTING"
	DaySleepImported  DayStatus = "SLEEP_IMPORTED"
	DayStepImporting  DayStatus = "STEP_IMPORTING"
	DayCompleted      DayStatus = "COMPLETED"
	DaySkipped        DayStatus = "SKIPPED"
	DayError          DayStatus = "ERROR"
)

// batchState is the ephemeral retry bookkeeping for one batch. It is
// derived execution state, never part of the plan itself.
type batchState struct {
	attempts  int
	delivered bool
	failed    bool
	lastErr   string
}

type dayState struct {
	plan     *domain.DailyPlan
	status   DayStatus
	prepared bool // own samples for the date cleared before first write

	sleepAttempts int
	sleepDone     bool
	sleepFailed   bool

	batches map[uuid.UUID]*batchState
}

func newDayState(plan *domain.DailyPlan) *dayState {
	return &dayState{
		plan:    plan,
		status:  DayIdle,
		batches: make(map[uuid.UUID]*batchState),
	}
}

func (ds *dayState) terminal() bool {
	switch ds.status {
	case DayCompleted, DaySkipped, DayError:
		return true
	}
	return false
}

// settle moves the day to a terminal state once every unit has either
// delivered or permanently failed.
func (ds *dayState) settle() {
	if ds.terminal() {
		return
	}
	if ds.plan.Sleep != nil && !ds.sleepDone && !ds.sleepFailed {
		return
	}
	anyFailed := ds.sleepFailed
	for _, bs := range ds.batches {
		if !bs.delivered && !bs.failed {
			return
		}
		if bs.failed {
			anyFailed = true
		}
	}
	if anyFailed {
		ds.status = DayError
		return
	}
	ds.status = DayCompleted
}

// EventKind classifies an execution log entry.
type EventKind string

const (
	EventSleepImported EventKind = "SLEEP_IMPORTED"
	EventBatchDone     EventKind = "BATCH_DELIVERED"
	EventRetry         EventKind = "RETRY_SCHEDULED"
	EventGaveUp        EventKind = "PERMANENTLY_FAILED"
	EventRollover      EventKind = "ROLLOVER"
	EventError         EventKind = "ERROR"
)

// Event is one entry of the capped in-memory execution log.
type Event struct {
	At     time.Time `json:"at"`
	Kind   EventKind `json:"kind"`
	Detail string    `json:"detail"`
}

// recordEvent appends to the ring, dropping the oldest entry past cap.
func (e *Executor) recordEvent(at time.Time, kind EventKind, detail string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, Event{At: at, Kind: kind, Detail: detail})
	if len(e.events) > e.cfg.EventLogCap {
		e.events = e.events[len(e.events)-e.cfg.EventLogCap:]
	}
}

// DaySnapshot is the host-facing view of one day's progress.
type DaySnapshot struct {
	Date           time.Time `json:"date"`
	Status         DayStatus `json:"status"`
	BatchesTotal   int       `json:"batches_total"`
	BatchesDone    int       `json:"batches_done"`
	BatchesFailed  int       `json:"batches_failed"`
	BatchesPending int       `json:"batches_pending"`
}

// Snapshot is the host-facing status view: plain data, no live state.
type Snapshot struct {
	PackageID uuid.UUID     `json:"package_id"`
	WeekStart time.Time     `json:"week_start"`
	Days      []DaySnapshot `json:"days"`
	Events    []Event       `json:"events"`
}

// Status returns a point-in-time copy of execution state. Hosts poll
// this; nothing here is live or shared.
func (e *Executor) Status() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{Events: append([]Event(nil), e.events...)}
	if e.pkg == nil {
		return snap
	}
	snap.PackageID = e.pkg.ID
	snap.WeekStart = e.pkg.WeekStart
	for i := range e.pkg.Days {
		ds, ok := e.days[dayKey(e.pkg.Days[i].Date)]
		if !ok {
			continue
		}
		d := DaySnapshot{
			Date:         ds.plan.Date,
			Status:       ds.status,
			BatchesTotal: len(ds.batches),
		}
		for _, bs := range ds.batches {
			switch {
			case bs.delivered:
				d.BatchesDone++
			case bs.failed:
				d.BatchesFailed++
			default:
				d.BatchesPending++
			}
		}
		snap.Days = append(snap.Days, d)
	}
	return snap
}
