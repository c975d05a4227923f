package synth

import (
	"fmt"
	"sort"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/rng"
)

const (
	// Daily total bounds.
	minDailySteps = 200
	maxDailySteps = 25000

	// Hourly ceiling policy: an hour never receives more than this share
	// of the day total at allocation time. The per-increment burst caps
	// below bound individual increments within an hour, never the hour
	// itself, so the two policies cannot conflict.
	hourShareCap = 0.20

	// Per-increment burst caps, steps.
	burstCapQuiet  = 50
	burstCapActive = 150

	// Sleep-overlap thresholds for hourly allocation.
	fullSleepOverlap    = 0.95
	partialSleepOverlap = 0.50
	lightSleepOverlap   = 0.20

	stirringChance        = 0.008
	partialSleepChance    = 0.15
	stepsDisruptionChance = 0.10
	nightEventChance      = 0.20
)

// stepsSeedSalt separates the step stream from the sleep stream for the
// same profile+date.
const stepsSeedSalt = 0x9e3779b97f4a7c15

// diurnalCurve is the fixed hour-of-day activity weighting: commute
// peaks around 8 and 18, a lunch peak, near-zero overnight.
var diurnalCurve = [24]float64{
	0.02, 0.01, 0.01, 0.01, 0.02, 0.10, // 00-05
	0.45, 0.90, 1.00, 0.70, 0.60, 0.65, // 06-11
	0.85, 0.75, 0.60, 0.55, 0.65, 0.90, // 12-17
	1.00, 0.85, 0.60, 0.45, 0.25, 0.08, // 18-23
}

// activeHours have the larger burst cap and attract reconciliation
// residue: morning commute, lunch, evening commute.
var activeHours = map[int]bool{7: true, 8: true, 12: true, 13: true, 17: true, 18: true, 19: true}

// StepsInput carries everything the step synthesizer needs. Sleep may
// be nil when no session is known for the day; History holds recent
// daily totals, most recent first.
type StepsInput struct {
	Profile *domain.Profile
	Date    time.Time
	Sleep   *domain.SleepSession
	History []int
	Mode    domain.FidelityMode
}

// nightEvent is a modeled mid-sleep excursion (bathroom, kitchen, a bit
// of wandering) injected into an otherwise suppressed hour.
type nightEvent struct {
	at    time.Time
	steps int
}

// GenerateSteps produces one day's step distribution: a sleep-aware
// hourly allocation summing exactly to the day target, expanded into
// timestamped increments that also sum exactly to the target. Output is
// deterministic per (profile ID, date).
func GenerateSteps(in StepsInput) (*domain.StepsDay, error) {
	if in.Profile == nil {
		return nil, fmt.Errorf("%w: missing profile", domain.ErrInvalidProfile)
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("%w: missing date", domain.ErrInvalidInput)
	}

	day := midnightUTC(in.Date)
	stream := rng.New(rng.DaySeed(in.Profile.ID, day) ^ stepsSeedSalt)

	target := dailyTarget(stream, in.Profile, day, in.Sleep, in.History)

	events := nightEvents(stream, day, in.Sleep)
	eventTotal := 0
	for _, ev := range events {
		eventTotal += ev.steps
	}
	if eventTotal > target/4 {
		events, eventTotal = nil, 0 // a tiny day can't afford night excursions
	}

	sd := &domain.StepsDay{Date: day}
	overlaps := hourOverlaps(day, in.Sleep)
	allocateHours(stream, sd, target-eventTotal, overlaps)
	for _, ev := range events {
		sd.Hourly[ev.at.Sub(day)/time.Hour] += ev.steps
	}
	reconcile(sd, target, overlaps)
	expandIncrements(stream, sd, overlaps, events, in.Mode)

	return sd, nil
}

// dailyTarget computes the baseline-adjusted day total: archetype range
// and intensity, the sleep-quality impact factor, recent-total
// momentum, weekend sub-modes,
// jitter, and rare disruptive events, clamped to platform bounds.
func dailyTarget(stream *rng.Stream, profile *domain.Profile, day time.Time, sleep *domain.SleepSession, history []int) int {
	params := profile.ActivityArchetype.Params()
	total := float64(stream.IntIn(params.StepsMin, params.StepsMax)) * params.Intensity

	total *= sleepQualityFactor(sleep)
	total *= historyFactor(history, params)

	if isWeekend(day) {
		// Weekend sub-modes: sedentary, normal, very active.
		switch roll := stream.Float64In(0, 1); {
		case roll < 0.30:
			total *= stream.Float64In(0.5, 0.7)
		case roll < 0.80:
			// normal weekend, no modifier
		default:
			total *= stream.Float64In(1.3, 1.6)
		}
	}

	total *= stream.Float64In(0.9, 1.1)
	if stream.Chance(stepsDisruptionChance) {
		switch stream.IntIn(0, 2) {
		case 0: // illness
			total *= stream.Float64In(0.3, 0.5)
		case 1: // travel day
			total *= stream.Float64In(1.4, 1.8)
		default: // extra workout
			total *= stream.Float64In(1.3, 1.6)
		}
	}

	return clampInt(int(total), minDailySteps, maxDailySteps)
}

// historyFactor applies mild activity momentum from recent daily
// totals: a markedly heavy previous day damps today, a light stretch
// nudges it up.
func historyFactor(history []int, params domain.ActivityParams) float64 {
	if len(history) == 0 {
		return 1.0
	}
	mid := (float64(params.StepsMin) + float64(params.StepsMax)) / 2 * params.Intensity
	if float64(history[0]) > 1.3*mid {
		return 0.9
	}
	sum := 0
	for _, v := range history {
		sum += v
	}
	if float64(sum)/float64(len(history)) < 0.5*mid {
		return 1.1
	}
	return 1.0
}

// sleepQualityFactor is a U-shaped curve over sleep duration peaking at
// 6.5-8.5h, further reduced by heavy stage fragmentation.
func sleepQualityFactor(sleep *domain.SleepSession) float64 {
	if sleep == nil {
		return 1.0
	}
	h := sleep.Hours()
	factor := 1.0
	switch {
	case h < 6.5:
		factor = clampFloat(1.0-0.08*(6.5-h), 0.6, 1.0)
	case h > 8.5:
		factor = clampFloat(1.0-0.06*(h-8.5), 0.7, 1.0)
	}
	if len(sleep.Stages) > 8 {
		factor *= 0.9
	}
	return factor
}

// hourOverlaps precomputes each hour's sleep-overlap fraction.
func hourOverlaps(day time.Time, sleep *domain.SleepSession) [24]float64 {
	var overlaps [24]float64
	if sleep == nil {
		return overlaps
	}
	for h := 0; h < 24; h++ {
		start := day.Add(time.Duration(h) * time.Hour)
		overlaps[h] = sleep.OverlapFraction(start, start.Add(time.Hour))
	}
	return overlaps
}

// allocateHours distributes the budget over the hours according to the
// diurnal curve, suppressing sleeping hours. Fully-sleeping hours get
// zero outside of rare single-digit stirring; partially-sleeping hours
// get an occasional low allocation; waking hours share the remainder by
// jittered curve weight, capped at 20% of the day total each.
func allocateHours(stream *rng.Stream, sd *domain.StepsDay, budget int, overlaps [24]float64) {
	if budget < 0 {
		budget = 0
	}
	hourCap := int(float64(budget) * hourShareCap)
	if hourCap < 1 {
		hourCap = 1
	}

	weights := [24]float64{}
	var weightSum float64
	for h := 0; h < 24; h++ {
		switch ov := overlaps[h]; {
		case ov >= fullSleepOverlap:
			if stream.Chance(stirringChance) {
				sd.Hourly[h] = stream.IntIn(1, 9)
			}
		case ov >= partialSleepOverlap:
			if stream.Chance(partialSleepChance) {
				sd.Hourly[h] = stream.IntIn(5, 20)
			}
		default:
			w := diurnalCurve[h] * stream.Float64In(0.7, 1.3)
			if ov > lightSleepOverlap {
				w *= 1 - ov
			}
			weights[h] = w
			weightSum += w
		}
	}
	if weightSum <= 0 {
		return
	}

	fixed := 0
	for _, v := range sd.Hourly {
		fixed += v
	}
	remaining := budget - fixed
	if remaining < 0 {
		remaining = 0
	}
	for h := 0; h < 24; h++ {
		if weights[h] <= 0 {
			continue
		}
		alloc := int(float64(remaining) * weights[h] / weightSum)
		sd.Hourly[h] = clampInt(alloc, 0, hourCap)
	}
}

// reconcile pushes the rounding/clamping residual between the allocated
// sum and the target onto the six most active, least-sleep-overlapped
// hours, so the hourly buckets conserve the target exactly.
func reconcile(sd *domain.StepsDay, target int, overlaps [24]float64) {
	diff := target - sd.Total()
	if diff == 0 {
		return
	}

	type ranked struct {
		hour  int
		steps int
	}
	var candidates []ranked
	for h := 0; h < 24; h++ {
		if overlaps[h] < partialSleepOverlap {
			candidates = append(candidates, ranked{hour: h, steps: sd.Hourly[h]})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].steps != candidates[j].steps {
			return candidates[i].steps > candidates[j].steps
		}
		return overlaps[candidates[i].hour] < overlaps[candidates[j].hour]
	})
	if len(candidates) > 6 {
		candidates = candidates[:6]
	}
	if len(candidates) == 0 {
		return
	}

	if diff > 0 {
		share := diff / len(candidates)
		rem := diff % len(candidates)
		for i, c := range candidates {
			add := share
			if i < rem {
				add++
			}
			sd.Hourly[c.hour] += add
		}
		return
	}

	// Over-allocation: drain from the most active hours without going
	// negative.
	deficit := -diff
	for _, c := range candidates {
		if deficit == 0 {
			break
		}
		take := sd.Hourly[c.hour]
		if take > deficit {
			take = deficit
		}
		sd.Hourly[c.hour] -= take
		deficit -= take
	}
}

// nightEvents models 0-2 mid-sleep excursions, spaced at least an hour
// apart, each placed in the middle 80% of the portion of the sleep
// window that falls on the day.
func nightEvents(stream *rng.Stream, day time.Time, sleep *domain.SleepSession) []nightEvent {
	if sleep == nil || !stream.Chance(nightEventChance) {
		return nil
	}

	// Clip the sleep window to the calendar day; increments must stay
	// within the day they are attributed to.
	lo := sleep.BedTime
	if lo.Before(day) {
		lo = day
	}
	hi := sleep.WakeTime
	if dayEnd := day.AddDate(0, 0, 1); hi.After(dayEnd) {
		hi = dayEnd
	}
	span := hi.Sub(lo)
	if span < 2*time.Hour {
		return nil
	}
	mid := span * 8 / 10
	base := lo.Add(span / 10)

	count := stream.IntIn(1, 2)
	var events []nightEvent
	for i := 0; i < count; i++ {
		var at time.Time
		placed := false
		for attempt := 0; attempt < 4; attempt++ {
			at = base.Add(time.Duration(stream.Float64In(0, 1) * float64(mid))).Truncate(time.Second)
			ok := true
			for _, ev := range events {
				if absDuration(at.Sub(ev.at)) < time.Hour {
					ok = false
					break
				}
			}
			if ok {
				placed = true
				break
			}
		}
		if !placed {
			continue
		}

		var steps int
		switch stream.IntIn(0, 2) {
		case 0: // quick bathroom trip
			steps = stream.IntIn(8, 40)
		case 1: // kitchen detour
			steps = stream.IntIn(30, 90)
		default: // restless wandering
			steps = stream.IntIn(60, 200)
		}
		events = append(events, nightEvent{at: at, steps: steps})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })
	return events
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
