// Package notify is the fire-and-forget notification collaborator: the
// executor reports sync lifecycle events, the host decides what to show.
package notify

import "go.uber.org/zap"

// EventKind classifies a notification.
type EventKind string

const (
	SyncStarted   EventKind = "SYNC_STARTED"
	SyncSucceeded EventKind = "SYNC_SUCCEEDED"
	SyncFailed    EventKind = "SYNC_FAILED"
)

// Event is one notification. Detail is free-form host-facing text.
type Event struct {
	Kind   EventKind
	Detail string
}

// Notifier receives events. Implementations must not block.
type Notifier interface {
	Notify(ev Event)
}

// Noop discards all events.
type Noop struct{}

func (Noop) Notify(Event) {}

// LogNotifier writes events to the structured log.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Notify(ev Event) {
	n.Log.Info("notification",
		zap.String("kind", string(ev.Kind)),
		zap.String("detail", ev.Detail))
}

var (
	_ Notifier = Noop{}
	_ Notifier = LogNotifier{}
)
