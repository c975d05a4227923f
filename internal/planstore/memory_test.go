package planstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/google/uuid"
)

func testPackage(profileID uuid.UUID, weekStart time.Time) *domain.WeeklyPackage {
	return &domain.WeeklyPackage{
		ID:          uuid.New(),
		ProfileID:   profileID,
		GeneratedAt: weekStart,
		WeekStart:   weekStart,
		Mode:        domain.ModePlain,
	}
}

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	store := NewMemoryStore()
	profileID := uuid.New()
	weekStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) // Monday
	pkg := testPackage(profileID, weekStart)

	if err := store.Save(context.Background(), pkg); err != nil {
		t.Fatalf("Save() returned %v", err)
	}

	// Any instant inside the week resolves to the same package.
	got, err := store.LoadFor(context.Background(), profileID, weekStart.Add(3*24*time.Hour+5*time.Hour))
	if err != nil {
		t.Fatalf("LoadFor() returned %v", err)
	}
	if got.ID != pkg.ID {
		t.Errorf("LoadFor() returned package %s, want %s", got.ID, pkg.ID)
	}
}

func TestMemoryStore_LoadForMissesReturnNotFound(t *testing.T) {
	store := NewMemoryStore()
	profileID := uuid.New()
	weekStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	if err := store.Save(context.Background(), testPackage(profileID, weekStart)); err != nil {
		t.Fatalf("Save() returned %v", err)
	}

	tests := []struct {
		name      string
		profileID uuid.UUID
		at        time.Time
	}{
		{"different week", profileID, weekStart.AddDate(0, 0, 7)},
		{"different profile", uuid.New(), weekStart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.LoadFor(context.Background(), tt.profileID, tt.at)
			if !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("LoadFor() returned %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMemoryStore_SaveOverwritesSameWeek(t *testing.T) {
	store := NewMemoryStore()
	profileID := uuid.New()
	weekStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	first := testPackage(profileID, weekStart)
	second := testPackage(profileID, weekStart)
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("Save() returned %v", err)
	}
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("Save() returned %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("Len() = %d after saving same week twice, want 1", store.Len())
	}
	got, err := store.LoadFor(context.Background(), profileID, weekStart)
	if err != nil {
		t.Fatalf("LoadFor() returned %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("LoadFor() returned package %s, want the replacement %s", got.ID, second.ID)
	}
}

func TestMemoryStore_DeleteExpired(t *testing.T) {
	store := NewMemoryStore()
	profileID := uuid.New()
	week0 := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	week1 := week0.AddDate(0, 0, 7)
	week2 := week1.AddDate(0, 0, 7)

	for _, ws := range []time.Time{week0, week1, week2} {
		if err := store.Save(context.Background(), testPackage(profileID, ws)); err != nil {
			t.Fatalf("Save(%v) returned %v", ws, err)
		}
	}

	// "Now" is inside week2: the previous week stays around as history,
	// only week0 is expired.
	n, err := store.DeleteExpired(context.Background(), week2.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpired() returned %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpired() = %d, want 1", n)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d after cleanup, want 2", store.Len())
	}
	if _, err := store.LoadFor(context.Background(), profileID, week0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("LoadFor(week0) returned %v, want ErrNotFound", err)
	}
}
