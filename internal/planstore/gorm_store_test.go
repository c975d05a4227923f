package planstore

import (
	"testing"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/google/uuid"
)

func TestPackageRecord_Roundtrip(t *testing.T) {
	weekStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	pkg := testPackage(uuid.New(), weekStart)
	pkg.Mode = domain.ModeDetailed
	pkg.TotalSteps = 52000
	pkg.TotalSleepHours = 51.5
	pkg.Days = []domain.DailyPlan{
		{
			Date: weekStart,
			Sleep: &domain.SleepSession{
				Date:     weekStart,
				BedTime:  weekStart.Add(-70 * time.Minute),
				WakeTime: weekStart.Add(7 * time.Hour),
				Mode:     domain.ModeDetailed,
			},
		},
	}

	rec, err := toRecord(pkg)
	if err != nil {
		t.Fatalf("toRecord() returned %v", err)
	}
	if rec.ID != pkg.ID || rec.ProfileID != pkg.ProfileID {
		t.Errorf("record identity (%s, %s), want (%s, %s)", rec.ID, rec.ProfileID, pkg.ID, pkg.ProfileID)
	}
	if !rec.WeekStart.Equal(pkg.WeekStart) {
		t.Errorf("record week start = %v, want %v", rec.WeekStart, pkg.WeekStart)
	}

	got, err := fromRecord(rec)
	if err != nil {
		t.Fatalf("fromRecord() returned %v", err)
	}
	if got.ID != pkg.ID {
		t.Errorf("decoded package ID = %s, want %s", got.ID, pkg.ID)
	}
	if got.TotalSteps != pkg.TotalSteps || got.TotalSleepHours != pkg.TotalSleepHours {
		t.Errorf("decoded aggregates (%d, %v), want (%d, %v)",
			got.TotalSteps, got.TotalSleepHours, pkg.TotalSteps, pkg.TotalSleepHours)
	}
	if len(got.Days) != 1 || got.Days[0].Sleep == nil {
		t.Fatalf("decoded days = %+v, want one day with a sleep session", got.Days)
	}
	if !got.Days[0].Sleep.BedTime.Equal(pkg.Days[0].Sleep.BedTime) {
		t.Errorf("decoded bed time = %v, want %v", got.Days[0].Sleep.BedTime, pkg.Days[0].Sleep.BedTime)
	}
}

func TestPackageRecord_Decode_RejectsGarbage(t *testing.T) {
	rec := &packageRecord{ID: uuid.New(), Payload: []byte("{not json")}
	if _, err := fromRecord(rec); err == nil {
		t.Fatal("fromRecord() with corrupt payload returned nil error")
	}
}
