package planstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// packageRecord is the storage row: identity columns for lookup, the
// package itself as a JSON payload.
type packageRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProfileID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_profile_week,priority:1"`
	WeekStart   time.Time `gorm:"not null;uniqueIndex:idx_profile_week,priority:2"`
	GeneratedAt time.Time `gorm:"not null"`
	Payload     []byte    `gorm:"not null"`
}

func (packageRecord) TableName() string {
	return "weekly_packages"
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by the given gorm connection and
// migrates its table.
func NewGormStore(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&packageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate weekly_packages: %w", err)
	}
	return &gormStore{db: db}, nil
}

func (s *gormStore) Save(ctx context.Context, pkg *domain.WeeklyPackage) error {
	rec, err := toRecord(pkg)
	if err != nil {
		return err
	}
	// One package per (profile, week start): a regenerated week
	// replaces the stored one.
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}, {Name: "week_start"}},
			UpdateAll: true,
		}).
		Create(rec).Error
}

func (s *gormStore) LoadFor(ctx context.Context, profileID uuid.UUID, at time.Time) (*domain.WeeklyPackage, error) {
	weekStart := domain.WeekStartFor(at)
	var rec packageRecord
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND week_start = ?", profileID, weekStart).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return fromRecord(&rec)
}

func (s *gormStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := domain.WeekStartFor(now).AddDate(0, 0, -7)
	res := s.db.WithContext(ctx).
		Where("week_start < ?", cutoff).
		Delete(&packageRecord{})
	return int(res.RowsAffected), res.Error
}

func toRecord(pkg *domain.WeeklyPackage) (*packageRecord, error) {
	payload, err := json.Marshal(pkg)
	if err != nil {
		return nil, fmt.Errorf("encode weekly package: %w", err)
	}
	return &packageRecord{
		ID:          pkg.ID,
		ProfileID:   pkg.ProfileID,
		WeekStart:   pkg.WeekStart,
		GeneratedAt: pkg.GeneratedAt,
		Payload:     payload,
	}, nil
}

func fromRecord(rec *packageRecord) (*domain.WeeklyPackage, error) {
	var pkg domain.WeeklyPackage
	if err := json.Unmarshal(rec.Payload, &pkg); err != nil {
		return nil, fmt.Errorf("decode weekly package %s: %w", rec.ID, err)
	}
	return &pkg, nil
}
