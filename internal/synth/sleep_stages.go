package synth

import (
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/rng"
)

// plainStages approximates an un-instrumented device's record: one long
// main segment (75-85% of the span) bracketed by a handful of short
// pre-sleep and post-sleep fragments. Segments tile the bed-to-wake
// span exactly, so they sum to the target duration and never overlap.
func plainStages(stream *rng.Stream, bed, wake time.Time) []domain.Stage {
	span := wake.Sub(bed)
	if span <= 0 {
		return nil
	}

	main := time.Duration(stream.Float64In(0.75, 0.85) * float64(span)).Truncate(time.Second)
	rest := span - main
	pre := time.Duration(stream.Float64In(0.4, 0.6) * float64(rest)).Truncate(time.Second)
	post := rest - pre

	var segs []segment
	segs = append(segs, splitFragments(stream, pre, domain.StageAwake, domain.StageLight)...)
	segs = append(segs, segment{kind: domain.StageLight, d: main})
	segs = append(segs, splitFragments(stream, post, domain.StageLight, domain.StageAwake)...)
	return tile(bed, segs)
}

// detailedStages divides the span into 4-6 physiological cycles, biases
// early cycles toward deep sleep and late cycles toward REM, then
// splices in 1-5 short awake interruptions.
func detailedStages(stream *rng.Stream, bed, wake time.Time) []domain.Stage {
	span := wake.Sub(bed)
	if span <= 0 {
		return nil
	}

	cycles := stream.IntIn(4, 6)
	cycleLen := (span / time.Duration(cycles)).Truncate(time.Second)

	var segs []segment
	remaining := span
	for i := 0; i < cycles; i++ {
		length := cycleLen
		if i == cycles-1 {
			length = remaining // absorb rounding so the tiling stays exact
		}
		remaining -= length

		// Early cycles deep-heavy, late cycles REM-heavy.
		progress := float64(i) / float64(cycles-1)
		deepFrac := 0.35 - 0.25*progress + stream.Float64In(-0.03, 0.03)
		remFrac := 0.10 + 0.25*progress + stream.Float64In(-0.03, 0.03)
		deepFrac = clampFloat(deepFrac, 0.02, 0.5)
		remFrac = clampFloat(remFrac, 0.02, 0.5)

		deep := time.Duration(deepFrac * float64(length)).Truncate(time.Second)
		rem := time.Duration(remFrac * float64(length)).Truncate(time.Second)
		light := length - deep - rem

		half := (light / 2).Truncate(time.Second)
		segs = append(segs,
			segment{kind: domain.StageLight, d: half},
			segment{kind: domain.StageDeep, d: deep},
			segment{kind: domain.StageLight, d: light - half},
			segment{kind: domain.StageREM, d: rem},
		)
	}

	stages := tile(bed, segs)
	return spliceAwake(stream, stages, bed, wake)
}

type segment struct {
	kind domain.StageKind
	d    time.Duration
}

// splitFragments breaks a short span into 1-3 fragments alternating
// between the two kinds. Fragments sum exactly to total.
func splitFragments(stream *rng.Stream, total time.Duration, first, second domain.StageKind) []segment {
	if total <= 0 {
		return nil
	}
	n := stream.IntIn(1, 3)
	kinds := [2]domain.StageKind{first, second}
	var segs []segment
	remaining := total
	for i := 0; i < n; i++ {
		d := remaining / time.Duration(n-i)
		if i < n-1 {
			d = time.Duration(stream.Float64In(0.6, 1.4) * float64(d)).Truncate(time.Second)
			if d > remaining {
				d = remaining
			}
		} else {
			d = remaining
		}
		if d <= 0 {
			continue
		}
		segs = append(segs, segment{kind: kinds[i%2], d: d})
		remaining -= d
	}
	return segs
}

// tile lays segments end to end from start, dropping empty ones.
func tile(start time.Time, segs []segment) []domain.Stage {
	var stages []domain.Stage
	cursor := start
	for _, s := range segs {
		if s.d <= 0 {
			continue
		}
		end := cursor.Add(s.d)
		stages = append(stages, domain.Stage{Kind: s.kind, Start: cursor, End: end})
		cursor = end
	}
	return stages
}

// spliceAwake carves 1-5 short awake interruptions out of existing
// stages. Each interruption splits the containing stage in place, so
// coverage and ordering are preserved.
func spliceAwake(stream *rng.Stream, stages []domain.Stage, bed, wake time.Time) []domain.Stage {
	span := wake.Sub(bed)
	if span < time.Hour {
		return stages
	}
	count := stream.IntIn(1, 5)
	for i := 0; i < count; i++ {
		at := bed.Add(time.Duration(stream.Float64In(0.1, 0.9) * float64(span))).Truncate(time.Second)
		d := time.Duration(stream.IntIn(1, 6)) * time.Minute
		stages = carve(stages, at, d)
	}
	return stages
}

// carve replaces [at, at+d) inside the stage containing at with an
// awake segment, splitting that stage around it. No-op when the span
// does not fit cleanly inside a single non-awake stage.
func carve(stages []domain.Stage, at time.Time, d time.Duration) []domain.Stage {
	end := at.Add(d)
	for i, st := range stages {
		if st.Kind == domain.StageAwake {
			continue
		}
		if at.Before(st.Start) || !end.Before(st.End) {
			continue
		}
		if !at.After(st.Start) {
			continue
		}
		out := make([]domain.Stage, 0, len(stages)+2)
		out = append(out, stages[:i]...)
		out = append(out,
			domain.Stage{Kind: st.Kind, Start: st.Start, End: at},
			domain.Stage{Kind: domain.StageAwake, Start: at, End: end},
			domain.Stage{Kind: st.Kind, Start: end, End: st.End},
		)
		out = append(out, stages[i+1:]...)
		return out
	}
	return stages
}
