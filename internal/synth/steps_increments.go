package synth

import (
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/rng"
)

// expandIncrements turns each hour's bucket into timestamped increments
// that sum exactly to the bucket. Sleeping hours produce rare, small,
// widely spaced increments; waking hours produce chunked bursts so no
// single increment looks like an implausible instantaneous jump.
func expandIncrements(stream *rng.Stream, sd *domain.StepsDay, overlaps [24]float64, events []nightEvent, mode domain.FidelityMode) {
	for h := 0; h < 24; h++ {
		remaining := sd.Hourly[h]
		if remaining == 0 {
			continue
		}
		hourStart := sd.HourStart(h)
		hourEnd := hourStart.Add(time.Hour)

		// Night-event increments land at their modeled instant.
		for _, ev := range events {
			if ev.at.Before(hourStart) || !ev.at.Before(hourEnd) {
				continue
			}
			steps := ev.steps
			if steps > remaining {
				steps = remaining
			}
			if steps == 0 {
				continue
			}
			end := ev.at.Add(time.Duration(stream.IntIn(2, 5)) * time.Minute)
			if end.After(hourEnd) {
				end = hourEnd
			}
			sd.Increments = append(sd.Increments, domain.StepIncrement{
				Start: ev.at,
				End:   end,
				Steps: steps,
				Kind:  domain.ActivityWalking,
			})
			remaining -= steps
		}
		if remaining == 0 {
			continue
		}

		if overlaps[h] >= partialSleepOverlap {
			sd.Increments = append(sd.Increments, sleepHourIncrements(stream, hourStart, remaining)...)
			continue
		}
		sd.Increments = append(sd.Increments, awakeHourIncrements(stream, h, hourStart, remaining, mode)...)
	}
}

// sleepHourIncrements spreads a small count across the hour in 1-20
// step stirrings.
func sleepHourIncrements(stream *rng.Stream, hourStart time.Time, total int) []domain.StepIncrement {
	var bursts []int
	for total > 0 {
		b := stream.IntIn(1, 20)
		if b > total {
			b = total
		}
		bursts = append(bursts, b)
		total -= b
	}
	return placeBursts(stream, hourStart, bursts, domain.ActivitySleep)
}

// awakeHourIncrements chunks the hour total into bursts bounded by the
// per-increment cap for the hour, then spreads them across the hour.
// Plain fidelity records coarser chunks: fewer, fuller bursts, still
// under the same per-increment cap.
func awakeHourIncrements(stream *rng.Stream, hour int, hourStart time.Time, total int, mode domain.FidelityMode) []domain.StepIncrement {
	burstCap := burstCapQuiet
	if activeHours[hour] {
		burstCap = burstCapActive
	}
	minBurst := 10
	if mode == domain.ModePlain {
		minBurst = burstCap / 2
	}
	var bursts []int
	for total > 0 {
		b := stream.IntIn(minBurst, burstCap)
		if b > total {
			b = total
		}
		bursts = append(bursts, b)
		total -= b
	}
	kind := kindForHour(stream, hour)
	return placeBursts(stream, hourStart, bursts, kind)
}

// placeBursts lays bursts into evenly sized slots across the hour with
// per-burst jitter, keeping increments ordered and non-overlapping.
func placeBursts(stream *rng.Stream, hourStart time.Time, bursts []int, kind domain.ActivityKind) []domain.StepIncrement {
	n := len(bursts)
	if n == 0 {
		return nil
	}
	slot := time.Hour / time.Duration(n)
	incs := make([]domain.StepIncrement, 0, n)
	for i, steps := range bursts {
		slotStart := hourStart.Add(time.Duration(i) * slot)
		dur := time.Duration(stream.IntIn(1, 4)) * time.Minute
		if dur >= slot {
			dur = (slot - time.Second).Truncate(time.Second)
		}
		if dur <= 0 {
			dur = time.Second
		}
		lead := time.Duration(stream.Float64In(0, float64(slot-dur)))
		start := slotStart.Add(lead).Truncate(time.Second)
		end := start.Add(dur)
		incKind := kind
		if steps < 15 && kind != domain.ActivitySleep {
			incKind = domain.ActivityStanding
		}
		incs = append(incs, domain.StepIncrement{Start: start, End: end, Steps: steps, Kind: incKind})
	}
	return incs
}

// kindForHour infers a plausible activity label from the time of day.
func kindForHour(stream *rng.Stream, hour int) domain.ActivityKind {
	switch {
	case hour >= 7 && hour <= 9, hour >= 17 && hour <= 19:
		if hour >= 17 && stream.Chance(0.2) {
			return domain.ActivityExercise
		}
		return domain.ActivityCommuting
	case hour == 12 || hour == 13:
		return domain.ActivityWalking
	case hour <= 5 || hour >= 22:
		return domain.ActivityIdle
	default:
		if stream.Chance(0.1) {
			return domain.ActivityRunning
		}
		return domain.ActivityWalking
	}
}
