package healthstore

import (
	"context"
	"sync"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used for dry runs and tests. It
// supports scripted write failures so the executor's retry policy can
// be exercised deterministically.
type MemoryStore struct {
	mu      sync.Mutex
	samples []Sample

	// Authorized gates writes; NewMemoryStore sets it.
	Authorized bool
	// FailWrites makes the next N writes fail.
	FailWrites int
	// WriteErr is the error returned for scripted failures.
	WriteErr error

	writeCalls int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Authorized: true, WriteErr: domain.ErrStoreWrite}
}

func (s *MemoryStore) RequestAuthorization(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Authorized {
		return domain.ErrNotAuthorized
	}
	return nil
}

func (s *MemoryStore) WriteSleepSession(_ context.Context, session *domain.SleepSession, _ domain.FidelityMode, meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(); err != nil {
		return err
	}
	s.samples = append(s.samples, Sample{
		ID:       uuid.New(),
		Type:     SampleSleep,
		Start:    session.BedTime,
		End:      session.WakeTime,
		Value:    session.Hours(),
		Metadata: meta,
	})
	return nil
}

func (s *MemoryStore) WriteStepsDay(ctx context.Context, day *domain.StepsDay, meta Metadata) error {
	for _, inc := range day.Increments {
		if err := s.WriteStepIncrement(ctx, inc, meta); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) WriteStepIncrement(_ context.Context, inc domain.StepIncrement, meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(); err != nil {
		return err
	}
	s.samples = append(s.samples, Sample{
		ID:       uuid.New(),
		Type:     SampleSteps,
		Start:    inc.Start,
		End:      inc.End,
		Value:    float64(inc.Steps),
		Metadata: meta,
	})
	return nil
}

func (s *MemoryStore) QuerySamples(_ context.Context, t SampleType, start, end time.Time) ([]Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Sample
	for _, smp := range s.samples {
		if smp.Type == t && smp.Start.Before(end) && smp.End.After(start) {
			out = append(out, smp)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteSamples(_ context.Context, t SampleType, pred Predicate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.samples[:0]
	deleted := 0
	for _, smp := range s.samples {
		match := smp.Type == t &&
			smp.Metadata.Origin == pred.Origin &&
			smp.Start.Before(pred.End) && smp.End.After(pred.Start)
		if match {
			deleted++
			continue
		}
		kept = append(kept, smp)
	}
	s.samples = kept
	return deleted, nil
}

// StepTotal sums the step samples currently stored.
func (s *MemoryStore) StepTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, smp := range s.samples {
		if smp.Type == SampleSteps {
			total += int(smp.Value)
		}
	}
	return total
}

// WriteCalls reports how many write attempts were made, including
// scripted failures.
func (s *MemoryStore) WriteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCalls
}

// SampleCount reports how many samples of the given type are stored.
func (s *MemoryStore) SampleCount(t SampleType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, smp := range s.samples {
		if smp.Type == t {
			n++
		}
	}
	return n
}

func (s *MemoryStore) failLocked() error {
	s.writeCalls++
	if !s.Authorized {
		return domain.ErrNotAuthorized
	}
	if s.FailWrites > 0 {
		s.FailWrites--
		return s.WriteErr
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
