// Package healthstore defines the external health-data store
// collaborator: the sink the executor delivers synthesized samples to.
// Every written sample carries enough metadata to later identify — and
// delete — only this system's own output.
package healthstore

import (
	"context"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/google/uuid"
)

// OriginMarker tags every sample written by this system.
const OriginMarker = "vitalsim"

// DataVersion is stamped onto written samples so later generations can
// be told apart.
const DataVersion = "1"

// SampleType selects a class of samples for queries and deletes.
type SampleType string

const (
	SampleSleep SampleType = "SLEEP"
	SampleSteps SampleType = "STEPS"
)

// Metadata identifies the provenance of a written sample.
type Metadata struct {
	Origin      string    `json:"origin"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
	PackageID   uuid.UUID `json:"package_id"`
}

// NewMetadata builds provenance metadata for one weekly package.
func NewMetadata(packageID uuid.UUID, generatedAt time.Time) Metadata {
	return Metadata{
		Origin:      OriginMarker,
		GeneratedAt: generatedAt,
		Version:     DataVersion,
		PackageID:   packageID,
	}
}

// Sample is a stored record returned by queries.
type Sample struct {
	ID       uuid.UUID  `json:"id"`
	Type     SampleType `json:"type"`
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
	Value    float64    `json:"value"`
	Metadata Metadata   `json:"metadata"`
}

// Predicate selects samples for deletion. Only samples matching the
// origin and falling inside [Start, End) match.
type Predicate struct {
	Origin string    `json:"origin"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// OwnSamples builds the predicate matching this system's output in a
// time range, used to clear a day before rewriting it.
func OwnSamples(start, end time.Time) Predicate {
	return Predicate{Origin: OriginMarker, Start: start, End: end}
}

// Store is the external health-data store API. Writes either fully
// succeed or return an error; the executor owns retry policy.
type Store interface {
	// RequestAuthorization must be called once before any write. A
	// denial is surfaced as domain.ErrNotAuthorized and is not retried.
	RequestAuthorization(ctx context.Context) error
	WriteSleepSession(ctx context.Context, session *domain.SleepSession, mode domain.FidelityMode, meta Metadata) error
	WriteStepsDay(ctx context.Context, day *domain.StepsDay, meta Metadata) error
	WriteStepIncrement(ctx context.Context, inc domain.StepIncrement, meta Metadata) error
	QuerySamples(ctx context.Context, t SampleType, start, end time.Time) ([]Sample, error)
	DeleteSamples(ctx context.Context, t SampleType, pred Predicate) (int, error)
}
