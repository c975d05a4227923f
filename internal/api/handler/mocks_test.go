package handler

import (
	"context"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/executor"
	"github.com/google/uuid"
)

// mockExecutionStatus is a mock implementation of ExecutionStatus
type mockExecutionStatus struct {
	snapshot executor.Snapshot
}

func (m *mockExecutionStatus) Status() executor.Snapshot {
	return m.snapshot
}

// mockPlanProvider is a mock implementation of PlanProvider
type mockPlanProvider struct {
	pkg *domain.WeeklyPackage
}

func (m *mockPlanProvider) Current() *domain.WeeklyPackage {
	return m.pkg
}

// mockSummarizer is a mock implementation of insights.Summarizer
type mockSummarizer struct {
	summary *domain.WeeklySummary
	err     error
	calls   int
}

func (m *mockSummarizer) Summarize(ctx context.Context, pkg *domain.WeeklyPackage) (*domain.WeeklySummary, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

func testWeeklyPackage() *domain.WeeklyPackage {
	weekStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return &domain.WeeklyPackage{
		ID:              uuid.New(),
		ProfileID:       uuid.New(),
		GeneratedAt:     weekStart,
		WeekStart:       weekStart,
		Mode:            domain.ModeDetailed,
		TotalSleepHours: 52.5,
		TotalSteps:      61000,
	}
}
