package domain

import "time"

// ActivityKind labels what the person was plausibly doing when a set of
// steps was taken. Inferred from time-of-day heuristics.
type ActivityKind string

const (
	ActivityIdle      ActivityKind = "IDLE"
	ActivityStanding  ActivityKind = "STANDING"
	ActivityWalking   ActivityKind = "WALKING"
	ActivityRunning   ActivityKind = "RUNNING"
	ActivityCommuting ActivityKind = "COMMUTING"
	ActivityExercise  ActivityKind = "EXERCISE"
	ActivitySleep     ActivityKind = "SLEEP"
)

// StepIncrement is one timestamped chunk of steps. End must be after
// Start; the compliance pass drops increments where it is not.
type StepIncrement struct {
	Start time.Time    `json:"start"`
	End   time.Time    `json:"end"`
	Steps int          `json:"steps"`
	Kind  ActivityKind `json:"kind"`
}

// StepsDay is one calendar day of step data: the hourly distribution
// plus the fine-grained increments that realize it. Invariant after
// correction: sum of Hourly equals the sum of increment steps, and all
// increments fall within the day.
type StepsDay struct {
	Date       time.Time       `json:"date"`
	Hourly     [24]int         `json:"hourly"`
	Increments []StepIncrement `json:"increments"`
}

// Total returns the day total from the hourly buckets.
func (d *StepsDay) Total() int {
	sum := 0
	for _, v := range d.Hourly {
		sum += v
	}
	return sum
}

// IncrementTotal returns the day total from the increments.
func (d *StepsDay) IncrementTotal() int {
	sum := 0
	for _, inc := range d.Increments {
		sum += inc.Steps
	}
	return sum
}

// HourStart returns the start of the given hour on the day.
func (d *StepsDay) HourStart(hour int) time.Time {
	return d.Date.Add(time.Duration(hour) * time.Hour)
}
