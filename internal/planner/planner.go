// Package planner pre-computes weekly packages: it drives the synthesis
// engine for each of the seven days, slices the results into
// time-stamped delivery batches, and computes each day's import
// schedule.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/synth"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	awakeBatchLen = 15 * time.Minute
	sleepBatchLen = 30 * time.Minute
	fallbackDelay = time.Hour
)

type Planner struct {
	log    *zap.Logger
	tracer trace.Tracer
}

func New(log *zap.Logger) *Planner {
	return &Planner{
		log:    log,
		tracer: otel.Tracer("vitalsim/planner"),
	}
}

// BuildWeek generates a full weekly package for the profile. Each day
// runs sleep synthesis, step synthesis and the compliance pass, then is
// sliced into delivery batches. Sleep-hours history chains across the
// week so consecutive days stay continuous.
func (p *Planner) BuildWeek(ctx context.Context, profile *domain.Profile, weekStart time.Time, now time.Time, mode domain.FidelityMode) (*domain.WeeklyPackage, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: missing profile", domain.ErrInvalidProfile)
	}
	_, span := p.tracer.Start(ctx, "planner.BuildWeek",
		trace.WithAttributes(
			attribute.String("profile.id", profile.ID.String()),
			attribute.String("week.start", weekStart.Format("2006-01-02")),
		))
	defer span.End()

	weekStart = domain.WeekStartFor(weekStart)
	pkg := &domain.WeeklyPackage{
		ID:          uuid.New(),
		ProfileID:   profile.ID,
		GeneratedAt: now,
		WeekStart:   weekStart,
		Mode:        mode,
	}

	var sleepHist []float64
	var stepHist []int
	for i := 0; i < 7; i++ {
		date := weekStart.AddDate(0, 0, i)
		day, err := p.buildDay(profile, date, sleepHist, stepHist, mode)
		if err != nil {
			return nil, err
		}
		pkg.Days = append(pkg.Days, *day)
		pkg.TotalSleepHours += day.Sleep.Hours()
		pkg.TotalSteps += day.Steps.Total()

		// Most recent first.
		sleepHist = append([]float64{day.Sleep.Hours()}, sleepHist...)
		stepHist = append([]int{day.Steps.Total()}, stepHist...)
	}

	p.log.Info("weekly package generated",
		zap.String("profile_id", profile.ID.String()),
		zap.Time("week_start", weekStart),
		zap.Float64("total_sleep_hours", pkg.TotalSleepHours),
		zap.Int("total_steps", pkg.TotalSteps))
	return pkg, nil
}

func (p *Planner) buildDay(profile *domain.Profile, date time.Time, sleepHist []float64, stepHist []int, mode domain.FidelityMode) (*domain.DailyPlan, error) {
	sleep, err := synth.GenerateSleep(synth.SleepInput{
		Profile: profile,
		Date:    date,
		History: sleepHist,
		Mode:    mode,
	})
	if err != nil {
		return nil, fmt.Errorf("sleep synthesis for %s: %w", date.Format("2006-01-02"), err)
	}
	sleep, repaired := synth.RepairSleep(sleep)
	if repaired {
		p.log.Debug("sleep session repaired", zap.Time("date", date))
	}

	steps, err := synth.GenerateSteps(synth.StepsInput{
		Profile: profile,
		Date:    date,
		Sleep:   sleep,
		History: stepHist,
		Mode:    mode,
	})
	if err != nil {
		return nil, fmt.Errorf("step synthesis for %s: %w", date.Format("2006-01-02"), err)
	}
	steps, repaired = synth.RepairSteps(steps, sleep)
	if repaired {
		p.log.Debug("step day repaired", zap.Time("date", date))
	}

	day := &domain.DailyPlan{
		Date:  date,
		Sleep: sleep,
		Steps: steps,
	}
	day.Batches = sliceAwakeBatches(steps, sleep)
	day.SleepBatches = sliceSleepBatches(steps, sleep)
	day.Schedule = buildSchedule(day)
	return day, nil
}

// sliceAwakeBatches groups the day's waking increments into 15-minute
// batches. A batch's ScheduledAt is the end of its slot — steps are
// only delivered after they have "happened".
func sliceAwakeBatches(steps *domain.StepsDay, sleep *domain.SleepSession) []domain.StepBatch {
	return slice(steps, sleep, awakeBatchLen, false)
}

// sliceSleepBatches builds the parallel sleep-time reduction sub-plan:
// 30-minute batches covering whatever little movement falls inside the
// sleep window, kept separate from normal batches for transparency.
func sliceSleepBatches(steps *domain.StepsDay, sleep *domain.SleepSession) []domain.StepBatch {
	return slice(steps, sleep, sleepBatchLen, true)
}

func slice(steps *domain.StepsDay, sleep *domain.SleepSession, batchLen time.Duration, duringSleep bool) []domain.StepBatch {
	type slot struct {
		steps int
		kinds map[domain.ActivityKind]int
	}
	slots := map[int]*slot{}

	for _, inc := range steps.Increments {
		slotStart := inc.Start.Truncate(time.Second)
		asleep := sleep.OverlapFraction(slotStart, inc.End) > 0.5
		if asleep != duringSleep {
			continue
		}
		idx := int(inc.Start.Sub(steps.Date) / batchLen)
		s, ok := slots[idx]
		if !ok {
			s = &slot{kinds: map[domain.ActivityKind]int{}}
			slots[idx] = s
		}
		s.steps += inc.Steps
		s.kinds[inc.Kind] += inc.Steps
	}

	var batches []domain.StepBatch
	maxIdx := int(24 * time.Hour / batchLen)
	for idx := 0; idx < maxIdx; idx++ {
		s, ok := slots[idx]
		if !ok || s.steps == 0 {
			continue
		}
		slotStart := steps.Date.Add(time.Duration(idx) * batchLen)
		batches = append(batches, domain.StepBatch{
			ID:          uuid.New(),
			ScheduledAt: slotStart.Add(batchLen),
			Steps:       s.steps,
			Duration:    batchLen,
			Kind:        dominantKind(s.kinds),
			Priority:    priorityFor(slotStart),
			DuringSleep: duringSleep,
		})
	}
	return batches
}

func dominantKind(kinds map[domain.ActivityKind]int) domain.ActivityKind {
	best := domain.ActivityWalking
	bestSteps := -1
	// Stable iteration: check known kinds in a fixed order.
	for _, k := range []domain.ActivityKind{
		domain.ActivityCommuting, domain.ActivityExercise, domain.ActivityRunning,
		domain.ActivityWalking, domain.ActivityStanding, domain.ActivityIdle,
		domain.ActivitySleep,
	} {
		if s, ok := kinds[k]; ok && s > bestSteps {
			best, bestSteps = k, s
		}
	}
	return best
}

// priorityFor tags commute windows high and late-night/early-morning
// slots low.
func priorityFor(t time.Time) domain.BatchPriority {
	switch h := t.Hour(); {
	case (h >= 7 && h <= 9) || (h >= 17 && h <= 19):
		return domain.PriorityHigh
	case h <= 5 || h >= 22:
		return domain.PriorityLow
	default:
		return domain.PriorityNormal
	}
}

// buildSchedule computes the day's import timetable: sleep fires at
// wake time, each batch at its own scheduled time with a fallback one
// hour later.
func buildSchedule(day *domain.DailyPlan) domain.ImportSchedule {
	var sched domain.ImportSchedule
	if day.Sleep != nil {
		wake := day.Sleep.WakeTime
		sched.SleepImportAt = &wake
	}
	for _, b := range append(append([]domain.StepBatch{}, day.Batches...), day.SleepBatches...) {
		sched.BatchTimes = append(sched.BatchTimes, b.ScheduledAt)
		sched.FallbackTimes = append(sched.FallbackTimes, b.ScheduledAt.Add(fallbackDelay))
	}
	return sched
}
