// Package scheduler is an explicit timer abstraction: a priority queue
// of (fire time, unit of work) driven by an injectable clock. All fired
// work runs on a single goroutine, so callbacks never race each other.
// Tests drive the queue synchronously with RunDue and a fixed clock.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/blaisecz/vitalsim/pkg/clock"
	"go.uber.org/zap"
)

// Task is a unit of scheduled work. It receives the fire time actually
// observed, which in tests is the virtual time.
type Task func(now time.Time)

// ID identifies a scheduled entry for cancellation.
type ID uint64

type entry struct {
	id    ID
	at    time.Time
	name  string
	task  Task
	index int
}

type Scheduler struct {
	mu     sync.Mutex
	clk    clock.Clock
	log    *zap.Logger
	queue  entryHeap
	byID   map[ID]*entry
	nextID ID
	wake   chan struct{}
}

func New(clk clock.Clock, log *zap.Logger) *Scheduler {
	return &Scheduler{
		clk:  clk,
		log:  log,
		byID: make(map[ID]*entry),
		wake: make(chan struct{}, 1),
	}
}

// At schedules task to fire at t. Times already in the past fire on the
// next run of the loop (or the next RunDue call).
func (s *Scheduler) At(t time.Time, name string, task Task) ID {
	s.mu.Lock()
	s.nextID++
	e := &entry{id: s.nextID, at: t, name: name, task: task}
	heap.Push(&s.queue, e)
	s.byID[e.id] = e
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return e.id
}

// Cancel removes a pending entry. Returns false when the entry already
// fired or was cancelled.
func (s *Scheduler) Cancel(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.queue, e.index)
	delete(s.byID, id)
	return true
}

// CancelAll drops every pending entry. Used when a weekly package is
// superseded, so stale timers cannot double-deliver.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.queue)
	s.queue = nil
	s.byID = make(map[ID]*entry)
	return n
}

// Pending reports how many entries are queued.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Next returns the earliest pending fire time.
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return time.Time{}, false
	}
	return s.queue[0].at, true
}

// RunDue fires every entry due at or before now, in time order, on the
// calling goroutine. Returns the number fired. This is the only place
// tasks execute.
func (s *Scheduler) RunDue(now time.Time) int {
	fired := 0
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].at.After(now) {
			s.mu.Unlock()
			return fired
		}
		e := heap.Pop(&s.queue).(*entry)
		delete(s.byID, e.id)
		s.mu.Unlock()

		s.log.Debug("scheduled task firing",
			zap.String("task", e.name), zap.Time("due", e.at))
		e.task(now)
		fired++
	}
}

// Run drives the queue against the real clock until the context ends.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		now := s.clk.Now()
		s.RunDue(now)

		wait := time.Hour
		if next, ok := s.Next(); ok {
			wait = next.Sub(s.clk.Now())
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case <-s.wake:
		}
	}
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].id < h[j].id
	}
	return h[i].at.Before(h[j].at)
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
