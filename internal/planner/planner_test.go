package planner

import (
	"context"
	"testing"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testProfile() *domain.Profile {
	return &domain.Profile{
		ID:                uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Age:               32,
		Sex:               domain.SexOther,
		HeightCM:          172,
		WeightKG:          70,
		SleepArchetype:    domain.SleepNormal,
		ActivityArchetype: domain.ActivityMedium,
	}
}

func weekStart() time.Time {
	return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) // a Monday
}

func buildTestWeek(t *testing.T) *domain.WeeklyPackage {
	t.Helper()
	p := New(zap.NewNop())
	pkg, err := p.BuildWeek(context.Background(), testProfile(), weekStart(), weekStart(), domain.ModeDetailed)
	if err != nil {
		t.Fatalf("BuildWeek: %v", err)
	}
	return pkg
}

func TestBuildWeek_SevenDays(t *testing.T) {
	pkg := buildTestWeek(t)

	if len(pkg.Days) != 7 {
		t.Fatalf("got %d days, want 7", len(pkg.Days))
	}
	if !pkg.WeekStart.Equal(weekStart()) {
		t.Fatalf("week start = %v", pkg.WeekStart)
	}
	for i, day := range pkg.Days {
		want := weekStart().AddDate(0, 0, i)
		if !day.Date.Equal(want) {
			t.Fatalf("day %d date = %v, want %v", i, day.Date, want)
		}
		if day.Sleep == nil || day.Steps == nil {
			t.Fatalf("day %d incomplete", i)
		}
	}
}

func TestBuildWeek_RealisticAggregates(t *testing.T) {
	pkg := buildTestWeek(t)

	avgSleep := pkg.TotalSleepHours / 7
	if avgSleep < 6.5 || avgSleep > 9.5 {
		t.Fatalf("average sleep %.2fh outside a plausible week", avgSleep)
	}

	avgSteps := pkg.TotalSteps / 7
	if avgSteps < 800 || avgSteps > 25000 {
		t.Fatalf("average steps %d outside platform bounds", avgSteps)
	}
}

func TestBuildWeek_Deterministic(t *testing.T) {
	a := buildTestWeek(t)
	b := buildTestWeek(t)

	if a.TotalSteps != b.TotalSteps || a.TotalSleepHours != b.TotalSleepHours {
		t.Fatal("two builds of the same week disagree on aggregates")
	}
	for i := range a.Days {
		if !a.Days[i].Sleep.BedTime.Equal(b.Days[i].Sleep.BedTime) {
			t.Fatalf("day %d bed times differ", i)
		}
		if a.Days[i].Steps.Total() != b.Days[i].Steps.Total() {
			t.Fatalf("day %d step totals differ", i)
		}
	}
}

func TestBuildWeek_BatchesConserveSteps(t *testing.T) {
	pkg := buildTestWeek(t)

	for i, day := range pkg.Days {
		sum := 0
		for _, b := range day.Batches {
			sum += b.Steps
		}
		for _, b := range day.SleepBatches {
			sum += b.Steps
		}
		if sum != day.Steps.Total() {
			t.Fatalf("day %d: batches sum %d, step total %d", i, sum, day.Steps.Total())
		}
	}
}

func TestBuildWeek_BatchShape(t *testing.T) {
	pkg := buildTestWeek(t)

	for i, day := range pkg.Days {
		dayEnd := day.Date.AddDate(0, 0, 1)
		for _, b := range day.Batches {
			if b.Duration != awakeBatchLen {
				t.Fatalf("day %d: awake batch duration %v", i, b.Duration)
			}
			if b.DuringSleep {
				t.Fatalf("day %d: awake batch flagged as sleep", i)
			}
			if b.Steps <= 0 {
				t.Fatalf("day %d: empty batch emitted", i)
			}
			// Delivered after the steps "happened", within the day.
			slotStart := b.ScheduledAt.Add(-b.Duration)
			if slotStart.Before(day.Date) || b.ScheduledAt.After(dayEnd) {
				t.Fatalf("day %d: batch slot [%v, %v] outside day", i, slotStart, b.ScheduledAt)
			}
		}
		for _, b := range day.SleepBatches {
			if b.Duration != sleepBatchLen {
				t.Fatalf("day %d: sleep batch duration %v", i, b.Duration)
			}
			if !b.DuringSleep {
				t.Fatalf("day %d: sleep batch not flagged", i)
			}
		}
	}
}

func TestBuildWeek_Schedule(t *testing.T) {
	pkg := buildTestWeek(t)

	for i, day := range pkg.Days {
		if day.Schedule.SleepImportAt == nil {
			t.Fatalf("day %d: no sleep import time", i)
		}
		if !day.Schedule.SleepImportAt.Equal(day.Sleep.WakeTime) {
			t.Fatalf("day %d: sleep import at %v, wake at %v", i, day.Schedule.SleepImportAt, day.Sleep.WakeTime)
		}
		nBatches := len(day.Batches) + len(day.SleepBatches)
		if len(day.Schedule.BatchTimes) != nBatches {
			t.Fatalf("day %d: %d batch times for %d batches", i, len(day.Schedule.BatchTimes), nBatches)
		}
		if len(day.Schedule.FallbackTimes) != nBatches {
			t.Fatalf("day %d: %d fallback times for %d batches", i, len(day.Schedule.FallbackTimes), nBatches)
		}
		for j := range day.Schedule.BatchTimes {
			if got := day.Schedule.FallbackTimes[j].Sub(day.Schedule.BatchTimes[j]); got != fallbackDelay {
				t.Fatalf("day %d batch %d: fallback offset %v", i, j, got)
			}
		}
	}
}

func TestBuildWeek_NilProfile(t *testing.T) {
	p := New(zap.NewNop())
	if _, err := p.BuildWeek(context.Background(), nil, weekStart(), weekStart(), domain.ModePlain); err == nil {
		t.Fatal("expected error for nil profile")
	}
}

func TestPriorityFor(t *testing.T) {
	day := weekStart()
	tests := []struct {
		hour int
		want domain.BatchPriority
	}{
		{8, domain.PriorityHigh},
		{18, domain.PriorityHigh},
		{3, domain.PriorityLow},
		{23, domain.PriorityLow},
		{14, domain.PriorityNormal},
	}
	for _, tt := range tests {
		if got := priorityFor(day.Add(time.Duration(tt.hour) * time.Hour)); got != tt.want {
			t.Errorf("priorityFor(hour %d) = %s, want %s", tt.hour, got, tt.want)
		}
	}
}
