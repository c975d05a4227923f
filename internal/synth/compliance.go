package synth

import (
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/rng"
)

const (
	// Session span bounds after correction.
	minSessionSpan     = 2 * time.Hour
	maxSessionSpan     = 16 * time.Hour
	defaultSessionSpan = 8 * time.Hour

	// Step ceilings the platform will accept.
	minDailyFloor     = 800
	maxHourlySteps    = 65535
	maxIncrementSteps = 10000

	// Share of a floored day that may land inside the sleep window.
	sleepBudgetFrac = 0.008

	complianceSeedSalt = 0x6a09e667f3bcc908
)

// RepairSleep is the compliance pass for sleep sessions: a pure repair
// function, not a rejection gate. It rounds timestamps to whole
// seconds, forces wake after bed (synthesizing a default 8h gap when
// violated), clamps the span to [2h, 16h], and drops or clamps
// degenerate stage segments. Idempotent: repairing valid data returns
// an identical session. The second result reports whether anything
// changed.
func RepairSleep(in *domain.SleepSession) (*domain.SleepSession, bool) {
	if in == nil {
		return nil, false
	}
	s := &domain.SleepSession{Date: in.Date, Mode: in.Mode}
	changed := false

	s.BedTime = in.BedTime.Truncate(time.Second)
	s.WakeTime = in.WakeTime.Truncate(time.Second)
	if !s.BedTime.Equal(in.BedTime) || !s.WakeTime.Equal(in.WakeTime) {
		changed = true
	}

	if !s.WakeTime.After(s.BedTime) {
		s.WakeTime = s.BedTime.Add(defaultSessionSpan)
		changed = true
	}
	if span := s.WakeTime.Sub(s.BedTime); span < minSessionSpan {
		s.WakeTime = s.BedTime.Add(minSessionSpan)
		changed = true
	} else if span > maxSessionSpan {
		s.WakeTime = s.BedTime.Add(maxSessionSpan)
		changed = true
	}

	for _, st := range in.Stages {
		orig := st
		st.Start = st.Start.Truncate(time.Second)
		st.End = st.End.Truncate(time.Second)
		if st.Start.Before(s.BedTime) {
			st.Start = s.BedTime
		}
		if st.End.After(s.WakeTime) {
			st.End = s.WakeTime
		}
		if !st.End.After(st.Start) {
			changed = true
			continue
		}
		if st != orig {
			changed = true
		}
		s.Stages = append(s.Stages, st)
	}
	if len(in.Stages) != len(s.Stages) {
		changed = true
	}
	return s, changed
}

// RepairSteps is the compliance pass for step days. It rounds increment
// timestamps, drops increments that do not end after they start or that
// fall outside the calendar day, clamps hourly buckets and individual
// increments to platform ceilings, floors abnormally low day totals to
// 800 steps with sleep-aware redistribution, and guarantees the hourly
// buckets and increments conserve the same total. Idempotent.
func RepairSteps(in *domain.StepsDay, sleep *domain.SleepSession) (*domain.StepsDay, bool) {
	if in == nil {
		return nil, false
	}
	day := midnightUTC(in.Date)
	dayEnd := day.AddDate(0, 0, 1)
	d := &domain.StepsDay{Date: day}
	changed := !day.Equal(in.Date)

	for h, v := range in.Hourly {
		cv := clampInt(v, 0, maxHourlySteps)
		if cv != v {
			changed = true
		}
		d.Hourly[h] = cv
	}

	for _, inc := range in.Increments {
		orig := inc
		inc.Start = inc.Start.Truncate(time.Second)
		inc.End = inc.End.Truncate(time.Second)
		if !inc.End.After(inc.Start) {
			changed = true
			continue
		}
		if inc.Start.Before(day) || !inc.Start.Before(dayEnd) {
			changed = true
			continue
		}
		if inc.Steps < 0 {
			inc.Steps = 0
			changed = true
		}
		if inc.Steps > maxIncrementSteps {
			inc.Steps = maxIncrementSteps
			changed = true
		}
		if inc != orig {
			changed = true
		}
		d.Increments = append(d.Increments, inc)
	}

	if d.Total() < minDailyFloor {
		floorRedistribute(d, sleep)
		return d, true
	}

	if d.IncrementTotal() != d.Total() {
		rebuildIncrements(d, sleep)
		changed = true
	}
	return d, changed
}

// floorRedistribute raises an abnormally low day to the 800-step floor.
// With a known sleep session the new total is reallocated sleep-aware:
// a small budget (0.8% of the floor) inside the sleep window, the rest
// across hours that do not touch sleep at all. Without one, the
// existing hourly shape is rescaled proportionally, falling back to a
// flat daytime spread when there is no shape to scale.
func floorRedistribute(d *domain.StepsDay, sleep *domain.SleepSession) {
	target := minDailyFloor

	if sleep == nil {
		rescaleProportional(d, target)
		rebuildIncrements(d, nil)
		return
	}

	overlaps := hourOverlaps(d.Date, sleep)
	sleepBudget := int(sleepBudgetFrac * float64(target))
	stream := complianceStream(d.Date)

	d.Hourly = [24]int{}
	// Sleep-side budget: a couple of tiny stirrings inside the window.
	remainingBudget := sleepBudget
	for h := 0; h < 24 && remainingBudget > 0; h++ {
		if overlaps[h] >= fullSleepOverlap {
			take := clampInt(stream.IntIn(1, 3), 1, remainingBudget)
			d.Hourly[h] = take
			remainingBudget -= take
		}
	}

	// Waking remainder: diurnal-weighted over hours clear of the
	// window entirely, then reconciled so the total lands exactly.
	var weightSum float64
	weights := [24]float64{}
	for h := 0; h < 24; h++ {
		if overlaps[h] == 0 {
			weights[h] = diurnalCurve[h]
			weightSum += weights[h]
		}
	}
	awake := target - (sleepBudget - remainingBudget)
	if weightSum > 0 {
		for h := 0; h < 24; h++ {
			if weights[h] > 0 {
				d.Hourly[h] = int(float64(awake) * weights[h] / weightSum)
			}
		}
	}
	reconcileClear(d, target, overlaps)
	rebuildIncrements(d, sleep)
}

// reconcileClear settles the residual onto the busiest hours that do
// not touch the sleep window.
func reconcileClear(d *domain.StepsDay, target int, overlaps [24]float64) {
	diff := target - d.Total()
	if diff == 0 {
		return
	}
	best, bestSteps := -1, -1
	for h := 0; h < 24; h++ {
		if overlaps[h] == 0 && d.Hourly[h] > bestSteps {
			best, bestSteps = h, d.Hourly[h]
		}
	}
	if best < 0 {
		return
	}
	d.Hourly[best] += diff
	if d.Hourly[best] < 0 {
		d.Hourly[best] = 0
	}
}

// rescaleProportional scales the existing hourly shape to the target,
// or spreads the target flat across daytime hours when the shape is
// empty.
func rescaleProportional(d *domain.StepsDay, target int) {
	total := d.Total()
	if total == 0 {
		per := target / 14
		for h := 8; h < 22; h++ {
			d.Hourly[h] = per
		}
		d.Hourly[12] += target - per*14
		return
	}
	scaled := 0
	largest := 0
	for h := 0; h < 24; h++ {
		d.Hourly[h] = d.Hourly[h] * target / total
		scaled += d.Hourly[h]
		if d.Hourly[h] > d.Hourly[largest] {
			largest = h
		}
	}
	d.Hourly[largest] += target - scaled
}

// rebuildIncrements regenerates the increment list from the hourly
// buckets after a repair has changed them. Deterministic per date.
func rebuildIncrements(d *domain.StepsDay, sleep *domain.SleepSession) {
	d.Increments = nil
	overlaps := hourOverlaps(d.Date, sleep)
	expandIncrements(complianceStream(d.Date), d, overlaps, nil, domain.ModeDetailed)
}

func complianceStream(date time.Time) *rng.Stream {
	return rng.New(uint64(midnightUTC(date).Unix()) ^ complianceSeedSalt)
}
