package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	locationDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/location"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocationModel is the GORM model for the locations table.
type LocationModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Latitude  float64   `gorm:"not null;uniqueIndex:idx_locations_coordinate,priority:1"`
	Longitude float64   `gorm:"not null;uniqueIndex:idx_locations_coordinate,priority:2"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (LocationModel) TableName() string {
	return "locations"
}

// GormLocationRepository is the GORM-based implementation of LocationRepository.
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GormLocationRepository.
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// Save persists a new location, rejecting an exact duplicate coordinate.
func (r *GormLocationRepository) Save(ctx context.Context, loc *locationDomain.Location) error {
	model := toLocationModel(loc)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&LocationModel{}).
			Where("latitude = ? AND longitude = ?", model.Latitude, model.Longitude).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check duplicate location: %w", err)
		}
		if existing > 0 {
			return duplicateLocationError(model)
		}
		return tx.Create(model).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return duplicateLocationError(model)
	}
	if err != nil && domain.CodeOf(err) == "" {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return err
}

// FindByID retrieves a location by its unique identifier.
func (r *GormLocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*locationDomain.Location, error) {
	var model LocationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Location", id.String())
		}
		return nil, fmt.Errorf("failed to find location by ID: %w", err)
	}
	return toLocationDomain(&model), nil
}

// List returns every location ordered by latitude, then longitude.
func (r *GormLocationRepository) List(ctx context.Context) ([]*locationDomain.Location, error) {
	var models []LocationModel
	if err := r.db.WithContext(ctx).
		Order("latitude ASC").
		Order("longitude ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	locations := make([]*locationDomain.Location, len(models))
	for i := range models {
		locations[i] = toLocationDomain(&models[i])
	}
	return locations, nil
}

// Delete removes the location and all of its photos in a single transaction.
func (r *GormLocationRepository) Delete(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var removed []uuid.UUID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&PhotoModel{}).Where("location_id = ?", id).Pluck("id", &removed).Error; err != nil {
			return fmt.Errorf("failed to collect location photos: %w", err)
		}
		if err := tx.Where("location_id = ?", id).Delete(&PhotoModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete location photos: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&LocationModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete location: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Location", id.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// --- Conversion Helpers ---

func duplicateLocationError(m *LocationModel) error {
	return domain.NewConflictError(fmt.Sprintf("a location already exists at %v,%v", m.Latitude, m.Longitude))
}

func toLocationModel(l *locationDomain.Location) *LocationModel {
	return &LocationModel{
		ID:        l.ID(),
		Latitude:  l.Latitude(),
		Longitude: l.Longitude(),
		CreatedAt: l.CreatedAt(),
	}
}

func toLocationDomain(m *LocationModel) *locationDomain.Location {
	return locationDomain.Reconstruct(m.ID, m.Latitude, m.Longitude, m.CreatedAt)
}
