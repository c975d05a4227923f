package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sex is the biological sex recorded on a simulated profile.
type Sex string

const (
	SexFemale Sex = "FEMALE"
	SexMale   Sex = "MALE"
	SexOther  Sex = "OTHER"
)

// SleepArchetype names a cluster of sleep-timing parameters.
type SleepArchetype string

const (
	SleepEarlyBird SleepArchetype = "EARLY_BIRD"
	SleepNormal    SleepArchetype = "NORMAL"
	SleepNightOwl  SleepArchetype = "NIGHT_OWL"
	SleepIrregular SleepArchetype = "IRREGULAR"
)

// ActivityArchetype names a cluster of step-volume parameters.
type ActivityArchetype string

const (
	ActivityLow      ActivityArchetype = "LOW"
	ActivityMedium   ActivityArchetype = "MEDIUM"
	ActivityHigh     ActivityArchetype = "HIGH"
	ActivityVeryHigh ActivityArchetype = "VERY_HIGH"
)

// Profile describes the simulated person. Immutable once created; the
// archetype pair parameterizes all generation for this profile.
type Profile struct {
	ID                uuid.UUID         `json:"id"`
	Age               int               `json:"age"`
	Sex               Sex               `json:"sex"`
	HeightCM          float64           `json:"height_cm"`
	WeightKG          float64           `json:"weight_kg"`
	SleepArchetype    SleepArchetype    `json:"sleep_archetype"`
	ActivityArchetype ActivityArchetype `json:"activity_archetype"`
	CreatedAt         time.Time         `json:"created_at"`
}

// CreateProfileRequest carries the inputs for building a Profile. The
// archetypes may be left empty, in which case they are inferred
// deterministically from the numeric baselines.
type CreateProfileRequest struct {
	Age               int                `json:"age" validate:"required,min=13,max=100"`
	Sex               Sex                `json:"sex" validate:"required,oneof=FEMALE MALE OTHER"`
	HeightCM          float64            `json:"height_cm" validate:"required,min=120,max=230"`
	WeightKG          float64            `json:"weight_kg" validate:"required,min=30,max=250"`
	SleepArchetype    *SleepArchetype    `json:"sleep_archetype,omitempty" validate:"omitempty,oneof=EARLY_BIRD NORMAL NIGHT_OWL IRREGULAR"`
	ActivityArchetype *ActivityArchetype `json:"activity_archetype,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH VERY_HIGH"`
}

// SleepParams are the generation parameters attached to a sleep
// archetype. Bed window offsets are minutes relative to midnight of the
// session's date; negative values put bed time on the prior calendar
// day.
type SleepParams struct {
	BedWindowStartMin int
	BedWindowEndMin   int
	BaseDurationMinH  float64
	BaseDurationMaxH  float64
	Consistency       float64
}

// ActivityParams are the generation parameters attached to an activity
// archetype.
type ActivityParams struct {
	StepsMin  int
	StepsMax  int
	Intensity float64
}

var sleepParams = map[SleepArchetype]SleepParams{
	SleepEarlyBird: {BedWindowStartMin: -150, BedWindowEndMin: -90, BaseDurationMinH: 7.0, BaseDurationMaxH: 8.5, Consistency: 0.90},
	SleepNormal:    {BedWindowStartMin: -90, BedWindowEndMin: -15, BaseDurationMinH: 6.5, BaseDurationMaxH: 8.0, Consistency: 0.70},
	SleepNightOwl:  {BedWindowStartMin: 30, BedWindowEndMin: 120, BaseDurationMinH: 6.0, BaseDurationMaxH: 7.5, Consistency: 0.60},
	SleepIrregular: {BedWindowStartMin: -120, BedWindowEndMin: 90, BaseDurationMinH: 5.5, BaseDurationMaxH: 8.5, Consistency: 0.25},
}

var activityParams = map[ActivityArchetype]ActivityParams{
	ActivityLow:      {StepsMin: 2000, StepsMax: 5000, Intensity: 0.8},
	ActivityMedium:   {StepsMin: 5000, StepsMax: 9000, Intensity: 1.0},
	ActivityHigh:     {StepsMin: 9000, StepsMax: 14000, Intensity: 1.25},
	ActivityVeryHigh: {StepsMin: 13000, StepsMax: 20000, Intensity: 1.5},
}

// Params returns the sleep-timing parameters for the profile's archetype.
func (a SleepArchetype) Params() SleepParams {
	p, ok := sleepParams[a]
	if !ok {
		return sleepParams[SleepNormal]
	}
	return p
}

// Params returns the step-volume parameters for the profile's archetype.
func (a ActivityArchetype) Params() ActivityParams {
	p, ok := activityParams[a]
	if !ok {
		return activityParams[ActivityMedium]
	}
	return p
}

// Baseline returns the archetype's baseline nightly sleep in hours, the
// midpoint of the base duration range.
func (a SleepArchetype) Baseline() float64 {
	p := a.Params()
	return (p.BaseDurationMinH + p.BaseDurationMaxH) / 2
}

// NewProfile builds an immutable Profile from a request. Missing
// archetypes are inferred from the numeric baselines; inference is a
// pure function of the request, so the same baselines always produce
// the same tags.
func NewProfile(req *CreateProfileRequest) (*Profile, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidProfile)
	}
	p := &Profile{
		ID:        uuid.New(),
		Age:       req.Age,
		Sex:       req.Sex,
		HeightCM:  req.HeightCM,
		WeightKG:  req.WeightKG,
		CreatedAt: time.Now().UTC(),
	}
	if req.SleepArchetype != nil {
		p.SleepArchetype = *req.SleepArchetype
	} else {
		p.SleepArchetype = InferSleepArchetype(req.Age)
	}
	if req.ActivityArchetype != nil {
		p.ActivityArchetype = *req.ActivityArchetype
	} else {
		p.ActivityArchetype = InferActivityArchetype(req.Age, req.HeightCM, req.WeightKG)
	}
	return p, nil
}

// InferSleepArchetype derives a sleep archetype from age alone. Younger
// profiles skew late, older profiles skew early.
func InferSleepArchetype(age int) SleepArchetype {
	switch {
	case age < 25:
		return SleepNightOwl
	case age < 50:
		return SleepNormal
	default:
		return SleepEarlyBird
	}
}

// InferActivityArchetype derives an activity archetype from age and BMI.
func InferActivityArchetype(age int, heightCM, weightKG float64) ActivityArchetype {
	if heightCM <= 0 {
		return ActivityMedium
	}
	hm := heightCM / 100
	bmi := weightKG / (hm * hm)
	switch {
	case bmi >= 30:
		return ActivityLow
	case bmi >= 25:
		return ActivityMedium
	case age < 35:
		return ActivityHigh
	default:
		return ActivityMedium
	}
}
