package planstore

import (
	"context"
	"sync"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/google/uuid"
)

type memoryKey struct {
	profileID uuid.UUID
	weekStart time.Time
}

// MemoryStore is an in-memory Store for tests and dry runs.
type MemoryStore struct {
	mu       sync.Mutex
	packages map[memoryKey]*domain.WeeklyPackage

	// SaveErr, when set, is returned by Save. For failure-path tests.
	SaveErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{packages: make(map[memoryKey]*domain.WeeklyPackage)}
}

func (s *MemoryStore) Save(_ context.Context, pkg *domain.WeeklyPackage) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages[memoryKey{pkg.ProfileID, pkg.WeekStart}] = pkg
	return nil
}

func (s *MemoryStore) LoadFor(_ context.Context, profileID uuid.UUID, at time.Time) (*domain.WeeklyPackage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.packages[memoryKey{profileID, domain.WeekStartFor(at)}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return pkg, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := domain.WeekStartFor(now).AddDate(0, 0, -7)
	n := 0
	for k := range s.packages {
		if k.weekStart.Before(cutoff) {
			delete(s.packages, k)
			n++
		}
	}
	return n, nil
}

// Len reports how many packages are stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.packages)
}

var _ Store = (*MemoryStore)(nil)
