package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatchPriority orders delivery batches for diagnostics and triage.
type BatchPriority string

const (
	PriorityHigh   BatchPriority = "HIGH"
	PriorityNormal BatchPriority = "NORMAL"
	PriorityLow    BatchPriority = "LOW"
)

// StepBatch is a fixed-duration slice of a day's step allocation, the
// unit of scheduled delivery. Awake batches cover 15 minutes; the
// separate sleep-time reduction batches cover 30.
type StepBatch struct {
	ID          uuid.UUID     `json:"id"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration"`
	Kind        ActivityKind  `json:"kind"`
	Priority    BatchPriority `json:"priority"`
	DuringSleep bool          `json:"during_sleep"`
}

// ImportSchedule is the per-day delivery timetable: when the sleep
// session is written and when each step batch fires. Every batch gets a
// fallback slot one hour later for recovery after a missed window.
type ImportSchedule struct {
	SleepImportAt *time.Time  `json:"sleep_import_at,omitempty"`
	BatchTimes    []time.Time `json:"batch_times"`
	FallbackTimes []time.Time `json:"fallback_times"`
}

// DailyPlan is one pre-computed day: the synthesized data plus its
// delivery slicing and timetable. Owned exclusively by the planner; the
// executor only reads it.
type DailyPlan struct {
	Date         time.Time      `json:"date"`
	Sleep        *SleepSession  `json:"sleep,omitempty"`
	Steps        *StepsDay      `json:"steps,omitempty"`
	Batches      []StepBatch    `json:"batches"`
	SleepBatches []StepBatch    `json:"sleep_batches"`
	Schedule     ImportSchedule `json:"schedule"`
}

// WeeklyPackage is the unit of pre-computed planning output: seven
// daily plans plus aggregates. Generated once per calendar week, ahead
// of need; superseded once its week has fully elapsed.
type WeeklyPackage struct {
	ID              uuid.UUID    `json:"id"`
	ProfileID       uuid.UUID    `json:"profile_id"`
	GeneratedAt     time.Time    `json:"generated_at"`
	WeekStart       time.Time    `json:"week_start"`
	Days            []DailyPlan  `json:"days"`
	Mode            FidelityMode `json:"mode"`
	TotalSleepHours float64      `json:"total_sleep_hours"`
	TotalSteps      int          `json:"total_steps"`
}

// WeekEnd returns the exclusive end of the covered week.
func (p *WeeklyPackage) WeekEnd() time.Time {
	return p.WeekStart.AddDate(0, 0, 7)
}

// Expired reports whether the package's week has fully elapsed.
func (p *WeeklyPackage) Expired(now time.Time) bool {
	return !now.Before(p.WeekEnd())
}

// HalfElapsed reports whether more than half of the covered week has
// passed, the trigger for generating the next package.
func (p *WeeklyPackage) HalfElapsed(now time.Time) bool {
	half := p.WeekStart.Add(p.WeekEnd().Sub(p.WeekStart) / 2)
	return now.After(half)
}

// Covers reports whether the given instant falls inside the package's
// week.
func (p *WeeklyPackage) Covers(t time.Time) bool {
	return !t.Before(p.WeekStart) && t.Before(p.WeekEnd())
}

// DayFor returns the daily plan whose date contains t, or nil.
func (p *WeeklyPackage) DayFor(t time.Time) *DailyPlan {
	for i := range p.Days {
		d := p.Days[i].Date
		if !t.Before(d) && t.Before(d.AddDate(0, 0, 1)) {
			return &p.Days[i]
		}
	}
	return nil
}

// WeekStartFor returns midnight UTC of the Monday of the week
// containing t.
func WeekStartFor(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	// Monday-based week: Sunday counts as day 6 of the prior week.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
