// Package synth implements the synthesis engine: deterministic, seeded
// generation of sleep sessions and step days under physiological
// constraints, plus the compliance pass that repairs structural
// invariants before data leaves the core.
package synth

import (
	"fmt"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/rng"
)

const (
	// Duration pipeline bounds, hours.
	minSleepHours = 5.0
	maxSleepHours = 10.0

	// Sleep-debt application caps.
	maxDebtBonusHours  = 2.0
	weekdayDebtFactor  = 0.3
	pressureThresholdH = 1.0

	// Day-over-day continuity clamps, hours.
	maxDeltaWeekend = 3.0
	maxDeltaWeekday = 2.0

	// Low-probability disruptive events.
	sleepDisruptionChance = 0.08
	lateNightChance       = 0.25
)

// SleepInput carries everything the sleep synthesizer needs. History
// holds actual sleep hours for prior days, most recent first, at most
// seven entries; shorter (or empty) history is fine.
type SleepInput struct {
	Profile *domain.Profile
	Date    time.Time // midnight UTC of the wake day
	History []float64
	Mode    domain.FidelityMode
}

// GenerateSleep produces one sleep session for the given day. Output is
// a pure function of (profile ID, date, mode, history): the per-day
// seed fixes every draw. Callers should run the result through
// RepairSleep before attaching it to a plan.
func GenerateSleep(in SleepInput) (*domain.SleepSession, error) {
	if in.Profile == nil {
		return nil, fmt.Errorf("%w: missing profile", domain.ErrInvalidProfile)
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("%w: missing date", domain.ErrInvalidInput)
	}
	mode := in.Mode
	if mode == "" {
		mode = domain.ModePlain
	}

	day := midnightUTC(in.Date)
	stream := rng.New(rng.DaySeed(in.Profile.ID, day))
	params := in.Profile.SleepArchetype.Params()

	hours := sleepDuration(stream, params, in.Profile.SleepArchetype.Baseline(), day, in.History)

	bed := bedTime(stream, params, day)
	wake := bed.Add(hoursToDuration(hours))

	session := &domain.SleepSession{
		Date:     day,
		BedTime:  bed,
		WakeTime: wake,
		Mode:     mode,
	}
	if mode == domain.ModeDetailed {
		session.Stages = detailedStages(stream, bed, wake)
	} else {
		session.Stages = plainStages(stream, bed, wake)
	}
	return session, nil
}

// sleepDuration runs the duration pipeline: archetype base, sleep-debt
// compensation, weekly periodicity, sleep pressure, jitter, disruptive
// events, then the continuity and absolute clamps.
func sleepDuration(stream *rng.Stream, params domain.SleepParams, baseline float64, day time.Time, history []float64) float64 {
	hours := stream.Float64In(params.BaseDurationMinH, params.BaseDurationMaxH)
	weekend := isWeekend(day)

	// Sleep debt: weighted shortfall over the last 7 days, most recent
	// weighted highest. Weekends pay back up to 2h, weekdays 0.3x that.
	if debt := sleepDebt(baseline, history); debt > 0 {
		bonus := debt
		if bonus > maxDebtBonusHours {
			bonus = maxDebtBonusHours
		}
		if !weekend {
			bonus *= weekdayDebtFactor
		}
		hours += bonus
	}

	// Weekly periodicity: longer weekend nights, with a stochastic
	// late-night truncation on Friday/Saturday nights.
	if weekend {
		hours += stream.Float64In(1.0, 2.5)
		if stream.Chance(lateNightChance) {
			hours -= stream.Float64In(1.0, 2.5)
		}
	}

	// Sleep pressure: rolling average well below baseline earns a bonus.
	if len(history) > 0 {
		sum := 0.0
		for _, h := range history {
			sum += h
		}
		if sum/float64(len(history)) < baseline-pressureThresholdH {
			hours += stream.Float64In(0.3, 0.8)
		}
	}

	// Daily jitter and rare disruptions.
	hours *= stream.Float64In(0.9, 1.1)
	if stream.Chance(sleepDisruptionChance) {
		switch stream.IntIn(0, 2) {
		case 0: // insomnia
			hours *= stream.Float64In(0.55, 0.75)
		case 1: // catch-up sleep
			hours *= stream.Float64In(1.2, 1.4)
		default: // unexplained shock
			hours *= stream.Float64In(0.6, 1.3)
		}
	}

	// Continuity: bound the change from the previous night.
	if len(history) > 0 {
		maxDelta := maxDeltaWeekday
		if weekend {
			maxDelta = maxDeltaWeekend
		}
		prev := history[0]
		if hours > prev+maxDelta {
			hours = prev + maxDelta
		}
		if hours < prev-maxDelta {
			hours = prev - maxDelta
		}
	}

	return clampFloat(hours, minSleepHours, maxSleepHours)
}

// sleepDebt is the weighted sum of (baseline - actual) over the recent
// history, most recent day weighted highest. Negative totals (surplus)
// collapse to zero.
func sleepDebt(baseline float64, history []float64) float64 {
	n := len(history)
	if n > 7 {
		n = 7
	}
	if n == 0 {
		return 0
	}
	var debt, weightSum float64
	for i := 0; i < n; i++ {
		w := float64(n - i)
		debt += w * (baseline - history[i])
		weightSum += w
	}
	debt /= weightSum
	if debt < 0 {
		return 0
	}
	return debt
}

// bedTime places bed within the archetype window plus a jitter scaled
// by (1 - consistency). Negative window offsets land on the prior
// calendar day.
func bedTime(stream *rng.Stream, params domain.SleepParams, day time.Time) time.Time {
	offsetMin := stream.IntIn(params.BedWindowStartMin, params.BedWindowEndMin)
	jitterMin := (1 - params.Consistency) * stream.Float64In(-60, 60)
	bed := day.Add(time.Duration(offsetMin) * time.Minute).
		Add(time.Duration(jitterMin * float64(time.Minute)))
	return bed.Truncate(time.Second)
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour)).Truncate(time.Second)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
