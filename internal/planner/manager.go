package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/planstore"
	"go.uber.org/zap"
)

// Manager owns the weekly package lifecycle: at most two packages live
// at once (current and next). The current package is loaded from the
// plan store or, when nothing covers today, generated urgently. The
// next package is generated ahead of need once the current week is more
// than half elapsed.
type Manager struct {
	mu      sync.Mutex
	planner *Planner
	store   planstore.Store
	profile *domain.Profile
	mode    domain.FidelityMode
	log     *zap.Logger

	current *domain.WeeklyPackage
	next    *domain.WeeklyPackage
}

func NewManager(p *Planner, store planstore.Store, profile *domain.Profile, mode domain.FidelityMode, log *zap.Logger) *Manager {
	return &Manager{
		planner: p,
		store:   store,
		profile: profile,
		mode:    mode,
		log:     log,
	}
}

// EnsureCurrent returns the package covering now, promoting the
// pre-generated next package, loading from storage, or generating
// synchronously, in that order.
func (m *Manager) EnsureCurrent(ctx context.Context, now time.Time) (*domain.WeeklyPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureCurrentLocked(ctx, now)
}

func (m *Manager) ensureCurrentLocked(ctx context.Context, now time.Time) (*domain.WeeklyPackage, error) {
	if m.current != nil && m.current.Covers(now) {
		return m.current, nil
	}
	if m.next != nil && m.next.Covers(now) {
		m.log.Info("promoting next weekly package",
			zap.Time("week_start", m.next.WeekStart))
		m.current, m.next = m.next, nil
		return m.current, nil
	}

	pkg, err := m.store.LoadFor(ctx, m.profile.ID, now)
	if err == nil {
		m.current = pkg
		return m.current, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load weekly package: %w", err)
	}

	// Nothing covers today: generation is urgent and blocks.
	m.log.Warn("no weekly package for current week, generating urgently",
		zap.Time("now", now))
	pkg, err = m.generateAndSave(ctx, domain.WeekStartFor(now), now)
	if err != nil {
		return nil, err
	}
	m.current = pkg
	return m.current, nil
}

// Housekeep advances the lifecycle: refreshes the current package,
// pre-generates the next one once the week is half over, and prunes
// expired rows from storage. Called from the executor's hourly tick.
func (m *Manager) Housekeep(ctx context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.ensureCurrentLocked(ctx, now); err != nil {
		return err
	}

	if m.current.HalfElapsed(now) && m.next == nil {
		nextStart := m.current.WeekStart.AddDate(0, 0, 7)
		pkg, err := m.generateAndSave(ctx, nextStart, now)
		if err != nil {
			return fmt.Errorf("generate next week: %w", err)
		}
		m.next = pkg
	}

	if n, err := m.store.DeleteExpired(ctx, now); err != nil {
		m.log.Warn("expired package cleanup failed", zap.Error(err))
	} else if n > 0 {
		m.log.Info("expired packages deleted", zap.Int("count", n))
	}
	return nil
}

// Current returns the package covering now without generating anything.
func (m *Manager) Current() *domain.WeeklyPackage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) generateAndSave(ctx context.Context, weekStart, now time.Time) (*domain.WeeklyPackage, error) {
	pkg, err := m.planner.BuildWeek(ctx, m.profile, weekStart, now, m.mode)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, pkg); err != nil {
		// A package that failed to persist is still usable for this
		// process lifetime.
		m.log.Warn("weekly package not persisted", zap.Error(err))
	}
	return pkg, nil
}
