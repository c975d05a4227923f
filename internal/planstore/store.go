// Package planstore persists weekly packages so a restart mid-week does
// not regenerate (and re-deliver) data that was already planned.
package planstore

import (
	"context"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/google/uuid"
)

// Store is the offline plan storage collaborator. Implementations must
// keep at most one package per (profile, week start).
type Store interface {
	Save(ctx context.Context, pkg *domain.WeeklyPackage) error
	// LoadFor returns the stored package whose week contains the given
	// instant, or domain.ErrNotFound.
	LoadFor(ctx context.Context, profileID uuid.UUID, at time.Time) (*domain.WeeklyPackage, error)
	// DeleteExpired removes packages whose week fully elapsed before
	// now, returning how many were dropped.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
