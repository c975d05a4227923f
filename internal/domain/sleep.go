package domain

import "time"

// FidelityMode selects how finely sessions and increments are modeled.
// PLAIN approximates an un-instrumented device's low-resolution record;
// DETAILED produces full physiological stage cycles.
type FidelityMode string

const (
	ModePlain    FidelityMode = "PLAIN"
	ModeDetailed FidelityMode = "DETAILED"
)

// StageKind is the physiological classification of a sleep segment.
type StageKind string

const (
	StageAwake StageKind = "AWAKE"
	StageLight StageKind = "LIGHT"
	StageDeep  StageKind = "DEEP"
	StageREM   StageKind = "REM"
)

// Stage is one contiguous segment within a sleep session. Segments are
// non-overlapping and fall within [BedTime, WakeTime].
type Stage struct {
	Kind  StageKind `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the segment length.
func (s Stage) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// SleepSession is one night of sleep attributed to a calendar date.
// Date is midnight UTC of the wake day; for archetypes whose bed window
// crosses midnight, BedTime falls on the prior calendar day.
type SleepSession struct {
	Date     time.Time    `json:"date"`
	BedTime  time.Time    `json:"bed_time"`
	WakeTime time.Time    `json:"wake_time"`
	Stages   []Stage      `json:"stages"`
	Mode     FidelityMode `json:"mode"`
}

// Duration returns the bed-to-wake span.
func (s *SleepSession) Duration() time.Duration {
	return s.WakeTime.Sub(s.BedTime)
}

// Hours returns the bed-to-wake span in hours.
func (s *SleepSession) Hours() float64 {
	return s.Duration().Hours()
}

// AsleepStages counts non-awake segments.
func (s *SleepSession) AsleepStages() int {
	n := 0
	for _, st := range s.Stages {
		if st.Kind != StageAwake {
			n++
		}
	}
	return n
}

// StageCoverage returns the ratio of summed stage time to the
// bed-to-wake span. Valid sessions sit between 0.8 and 1.2.
func (s *SleepSession) StageCoverage() float64 {
	span := s.Duration()
	if span <= 0 {
		return 0
	}
	var sum time.Duration
	for _, st := range s.Stages {
		sum += st.Duration()
	}
	return float64(sum) / float64(span)
}

// OverlapFraction returns how much of [start, end) is covered by the
// session's bed-to-wake window, as a fraction of the interval length.
func (s *SleepSession) OverlapFraction(start, end time.Time) float64 {
	if s == nil || !end.After(start) {
		return 0
	}
	lo := maxTime(start, s.BedTime)
	hi := minTime(end, s.WakeTime)
	if !hi.After(lo) {
		return 0
	}
	return float64(hi.Sub(lo)) / float64(end.Sub(start))
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
