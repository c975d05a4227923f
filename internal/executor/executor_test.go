package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/blaisecz/vitalsim/internal/healthstore"
	"github.com/blaisecz/vitalsim/internal/notify"
	"github.com/blaisecz/vitalsim/internal/scheduler"
	"github.com/blaisecz/vitalsim/pkg/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type stubPlans struct {
	pkg        *domain.WeeklyPackage
	err        error
	housekeeps int
}

func (s *stubPlans) EnsureCurrent(context.Context, time.Time) (*domain.WeeklyPackage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pkg, nil
}

func (s *stubPlans) Housekeep(context.Context, time.Time) error {
	s.housekeeps++
	return nil
}

// recordingNotifier collects events. Safe without a mutex: every
// executor callback runs on the test goroutine via RunDue.
type recordingNotifier struct {
	events []notify.Event
}

func (n *recordingNotifier) Notify(ev notify.Event) {
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) count(kind notify.EventKind) int {
	c := 0
	for _, ev := range n.events {
		if ev.Kind == kind {
			c++
		}
	}
	return c
}

func testWeekStart() time.Time {
	return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) // Monday
}

func testBatch(at time.Time, steps int) domain.StepBatch {
	return domain.StepBatch{
		ID:          uuid.New(),
		ScheduledAt: at,
		Steps:       steps,
		Duration:    15 * time.Minute,
		Kind:        domain.ActivityWalking,
	}
}

// oneDayPackage builds a package with a single plan day. withSleep adds
// a session ending at 07:00 plus the matching import slot.
func oneDayPackage(day time.Time, withSleep bool, batches ...domain.StepBatch) *domain.WeeklyPackage {
	plan := domain.DailyPlan{Date: day, Batches: batches}
	if withSleep {
		wake := day.Add(7 * time.Hour)
		plan.Sleep = &domain.SleepSession{
			Date:     day,
			BedTime:  day.Add(-1 * time.Hour),
			WakeTime: wake,
			Mode:     domain.ModePlain,
		}
		plan.Schedule.SleepImportAt = &wake
	}
	return &domain.WeeklyPackage{
		ID:          uuid.New(),
		ProfileID:   uuid.New(),
		GeneratedAt: day,
		WeekStart:   domain.WeekStartFor(day),
		Days:        []domain.DailyPlan{plan},
		Mode:        domain.ModePlain,
	}
}

type testRig struct {
	exec     *Executor
	sched    *scheduler.Scheduler
	store    *healthstore.MemoryStore
	plans    *stubPlans
	notifier *recordingNotifier
}

func newTestRig(t *testing.T, pkg *domain.WeeklyPackage, startAt time.Time) *testRig {
	t.Helper()
	log := zap.NewNop()
	rig := &testRig{
		sched:    scheduler.New(clock.Fixed{T: startAt}, log),
		store:    healthstore.NewMemoryStore(),
		plans:    &stubPlans{pkg: pkg},
		notifier: &recordingNotifier{},
	}
	rig.exec = New(Config{}, rig.sched, rig.store, rig.plans, rig.notifier, clock.Fixed{T: startAt}, log)
	return rig
}

func TestExecutor_StartArmsPackage(t *testing.T) {
	day := testWeekStart()
	pkg := oneDayPackage(day, true,
		testBatch(day.Add(8*time.Hour+30*time.Minute), 300),
		testBatch(day.Add(12*time.Hour+15*time.Minute), 450))
	rig := newTestRig(t, pkg, day.Add(30*time.Minute))

	if err := rig.exec.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned %v", err)
	}

	// Sleep import, two batches and the housekeeping tick.
	if got := rig.sched.Pending(); got != 4 {
		t.Errorf("Pending() = %d, want 4", got)
	}

	snap := rig.exec.Status()
	if snap.PackageID != pkg.ID {
		t.Errorf("snapshot package = %s, want %s", snap.PackageID, pkg.ID)
	}
	if len(snap.Days) != 1 {
		t.Fatalf("snapshot has %d days, want 1", len(snap.Days))
	}
	d := snap.Days[0]
	if d.Status != DayScheduled {
		t.Errorf("day status = %s, want %s", d.Status, DayScheduled)
	}
	if d.BatchesTotal != 2 || d.BatchesPending != 2 {
		t.Errorf("batches total/pending = %d/%d, want 2/2", d.BatchesTotal, d.BatchesPending)
	}
}

func TestExecutor_StartFailsWhenNotAuthorized(t *testing.T) {
	day := testWeekStart()
	rig := newTestRig(t, oneDayPackage(day, true), day)
	rig.store.Authorized = false

	err := rig.exec.Start(context.Background())
	if !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("Start() returned %v, want ErrNotAuthorized", err)
	}
	if got := rig.sched.Pending(); got != 0 {
		t.Errorf("Pending() = %d after failed start, want 0", got)
	}
}

func TestExecutor_DeliversDayToCompletion(t *testing.T) {
	day := testWeekStart()
	b1 := testBatch(day.Add(8*time.Hour+30*time.Minute), 300)
	b2 := testBatch(day.Add(12*time.Hour+15*time.Minute), 452)
	pkg := oneDayPackage(day, true, b1, b2)
	rig := newTestRig(t, pkg, day.Add(30*time.Minute))

	if err := rig.exec.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned %v", err)
	}

	rig.sched.RunDue(day.Add(7 * time.Hour)) // wake: sleep import
	if got := rig.store.SampleCount(healthstore.SampleSleep); got != 1 {
		t.Fatalf("sleep samples after wake = %d, want 1", got)
	}
	if snap := rig.exec.Status(); snap.Days[0].Status != DaySleepImported {
		t.Errorf("day status after sleep import = %s, want %s", snap.Days[0].Status, DaySleepImported)
	}

	rig.sched.RunDue(b1.ScheduledAt)
	rig.sched.RunDue(b2.ScheduledAt)

	if got := rig.store.StepTotal(); got != b1.Steps+b2.Steps {
		t.Errorf("delivered step total = %d, want %d", got, b1.Steps+b2.Steps)
	}
	snap := rig.exec.Status()
	if snap.Days[0].Status != DayCompleted {
		t.Errorf("day status = %s, want %s", snap.Days[0].Status, DayCompleted)
	}
	if snap.Days[0].BatchesDone != 2 {
		t.Errorf("batches done = %d, want 2", snap.Days[0].BatchesDone)
	}

	if got := rig.notifier.count(notify.SyncStarted); got != 1 {
		t.Errorf("SyncStarted notifications = %d, want 1", got)
	}
	// One for the sleep import, one for the completed day.
	if got := rig.notifier.count(notify.SyncSucceeded); got != 2 {
		t.Errorf("SyncSucceeded notifications = %d, want 2", got)
	}

	kinds := map[EventKind]int{}
	for _, ev := range snap.Events {
		kinds[ev.Kind]++
	}
	if kinds[EventSleepImported] != 1 || kinds[EventBatchDone] != 2 {
		t.Errorf("event log = %v, want 1 sleep import and 2 batch deliveries", kinds)
	}
}

func TestExecutor_RetriesThenGivesUp(t *testing.T) {
	day := testWeekStart()
	batch := testBatch(day.Add(8*time.Hour), 150)
	pkg := oneDayPackage(day, false, batch)
	rig := newTestRig(t, pkg, day.Add(30*time.Minute))
	rig.store.FailWrites = 100

	if err := rig.exec.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned %v", err)
	}

	// Three attempts total, then a long-after sweep that must stay quiet.
	first := batch.ScheduledAt
	rig.sched.RunDue(first)
	rig.sched.RunDue(first.Add(DefaultRetryDelay))
	rig.sched.RunDue(first.Add(2 * DefaultRetryDelay))
	rig.sched.RunDue(first.Add(10 * DefaultRetryDelay))

	if got := rig.store.WriteCalls(); got != DefaultMaxAttempts {
		t.Errorf("store saw %d write attempts, want %d", got, DefaultMaxAttempts)
	}
	if got := rig.store.SampleCount(healthstore.SampleSteps); got != 0 {
		t.Errorf("store holds %d step samples, want 0", got)
	}

	snap := rig.exec.Status()
	if snap.Days[0].Status != DayError {
		t.Errorf("day status = %s, want %s", snap.Days[0].Status, DayError)
	}
	if snap.Days[0].BatchesFailed != 1 {
		t.Errorf("batches failed = %d, want 1", snap.Days[0].BatchesFailed)
	}

	kinds := map[EventKind]int{}
	for _, ev := range snap.Events {
		kinds[ev.Kind]++
	}
	if kinds[EventRetry] != DefaultMaxAttempts-1 {
		t.Errorf("retry events = %d, want %d", kinds[EventRetry], DefaultMaxAttempts-1)
	}
	if kinds[EventGaveUp] != 1 {
		t.Errorf("gave-up events = %d, want 1", kinds[EventGaveUp])
	}
	if got := rig.notifier.count(notify.SyncFailed); got != 1 {
		t.Errorf("SyncFailed notifications = %d, want 1", got)
	}
}

func TestExecutor_RecoversWithinAttemptBound(t *testing.T) {
	day := testWeekStart()
	batch := testBatch(day.Add(8*time.Hour), 150)
	pkg := oneDayPackage(day, false, batch)
	rig := newTestRig(t, pkg, day.Add(30*time.Minute))
	rig.store.FailWrites = 2 // first two attempts fail, third succeeds

	if err := rig.exec.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned %v", err)
	}

	first := batch.ScheduledAt
	rig.sched.RunDue(first)
	rig.sched.RunDue(first.Add(DefaultRetryDelay))
	rig.sched.RunDue(first.Add(2 * DefaultRetryDelay))

	if got := rig.store.StepTotal(); got != batch.Steps {
		t.Errorf("delivered step total = %d, want %d", got, batch.Steps)
	}
	if snap := rig.exec.Status(); snap.Days[0].Status != DayCompleted {
		t.Errorf("day status = %s, want %s", snap.Days[0].Status, DayCompleted)
	}
}

func TestExecutor_RolloverCancelsStaleTimers(t *testing.T) {
	day := testWeekStart()
	staleBatch := testBatch(day.Add(9*time.Hour), 300)
	pkg1 := oneDayPackage(day, false, staleBatch)

	nextWeek := day.AddDate(0, 0, 7)
	pkg2 := oneDayPackage(nextWeek, false, testBatch(nextWeek.Add(9*time.Hour), 200))

	rig := newTestRig(t, pkg1, day.Add(30*time.Minute))
	if err := rig.exec.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned %v", err)
	}

	// The housekeeping tick finds a new current package and swaps.
	rig.plans.pkg = pkg2
	rig.sched.RunDue(day.Add(90 * time.Minute))

	snap := rig.exec.Status()
	if snap.PackageID != pkg2.ID {
		t.Fatalf("snapshot package = %s after rollover, want %s", snap.PackageID, pkg2.ID)
	}

	// The superseded batch timer must not fire.
	rig.sched.RunDue(staleBatch.ScheduledAt)
	if got := rig.store.SampleCount(healthstore.SampleSteps); got != 0 {
		t.Errorf("store holds %d step samples from the stale package, want 0", got)
	}

	found := false
	for _, ev := range snap.Events {
		if ev.Kind == EventRollover {
			found = true
		}
	}
	if !found {
		t.Error("event log has no rollover entry")
	}
}

func TestExecutor_SkipsFullyElapsedDays(t *testing.T) {
	day := testWeekStart()
	pkg := oneDayPackage(day, true, testBatch(day.Add(9*time.Hour), 300))
	rig := newTestRig(t, pkg, day.AddDate(0, 0, 2)) // two days later

	if err := rig.exec.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned %v", err)
	}

	if snap := rig.exec.Status(); snap.Days[0].Status != DaySkipped {
		t.Errorf("day status = %s, want %s", snap.Days[0].Status, DaySkipped)
	}
	// Only the housekeeping tick remains.
	if got := rig.sched.Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}
}

func TestExecutor_PrepareDayClearsOwnSamplesOnce(t *testing.T) {
	day := testWeekStart()
	b1 := testBatch(day.Add(8*time.Hour), 100)
	b2 := testBatch(day.Add(12*time.Hour), 50)
	pkg := oneDayPackage(day, false, b1, b2)
	rig := newTestRig(t, pkg, day.Add(30*time.Minute))

	// A stale sample from an earlier run of the same day.
	stale := domain.StepIncrement{
		Start: day.Add(10 * time.Hour),
		End:   day.Add(10*time.Hour + time.Minute),
		Steps: 999,
		Kind:  domain.ActivityWalking,
	}
	if err := rig.store.WriteStepIncrement(context.Background(), stale, healthstore.NewMetadata(uuid.New(), day)); err != nil {
		t.Fatalf("seed stale sample: %v", err)
	}

	if err := rig.exec.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned %v", err)
	}

	rig.sched.RunDue(b1.ScheduledAt)
	if got := rig.store.StepTotal(); got != b1.Steps {
		t.Fatalf("step total after first batch = %d, want %d (stale sample cleared)", got, b1.Steps)
	}

	// The second batch must not wipe the first one's output.
	rig.sched.RunDue(b2.ScheduledAt)
	if got := rig.store.StepTotal(); got != b1.Steps+b2.Steps {
		t.Errorf("step total after second batch = %d, want %d", got, b1.Steps+b2.Steps)
	}
}

func TestExecutor_HousekeepingTickDrivesPlanSource(t *testing.T) {
	day := testWeekStart()
	rig := newTestRig(t, oneDayPackage(day, false), day.Add(30*time.Minute))
	if err := rig.exec.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned %v", err)
	}

	rig.sched.RunDue(day.Add(90 * time.Minute))
	rig.sched.RunDue(day.Add(150 * time.Minute))

	if rig.plans.housekeeps != 2 {
		t.Errorf("plan source saw %d housekeeping calls, want 2", rig.plans.housekeeps)
	}
	// The tick re-arms itself.
	if got := rig.sched.Pending(); got == 0 {
		t.Error("no pending housekeeping tick after sweeps")
	}
}
