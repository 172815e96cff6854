package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	locationDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/location"
	viewportDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/viewport"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MapViewportModel is the GORM model for the map_viewports table.
type MapViewportModel struct {
	Name            string    `gorm:"primaryKey;size:50"`
	CenterLatitude  float64   `gorm:"not null"`
	CenterLongitude float64   `gorm:"not null"`
	LatitudeDelta   float64   `gorm:"not null"`
	LongitudeDelta  float64   `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (MapViewportModel) TableName() string { return "map_viewports" }

// GormViewportRepository implements ViewportRepository using GORM.
type GormViewportRepository struct {
	db *gorm.DB
}

func NewGormViewportRepository(db *gorm.DB) *GormViewportRepository {
	return &GormViewportRepository{db: db}
}

func (r *GormViewportRepository) Find(ctx context.Context, key string) (*viewportDomain.MapViewport, error) {
	var model MapViewportModel
	if err := r.db.WithContext(ctx).Where("name = ?", key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Viewport", key)
		}
		return nil, fmt.Errorf("failed to find viewport: %w", err)
	}
	return viewportDomain.Reconstruct(
		locationDomain.Coordinate{Latitude: model.CenterLatitude, Longitude: model.CenterLongitude},
		model.LatitudeDelta, model.LongitudeDelta,
		model.UpdatedAt,
	), nil
}

func (r *GormViewportRepository) Upsert(ctx context.Context, key string, v *viewportDomain.MapViewport) error {
	model := MapViewportModel{
		Name:            key,
		CenterLatitude:  v.Center().Latitude,
		CenterLongitude: v.Center().Longitude,
		LatitudeDelta:   v.LatitudeDelta(),
		LongitudeDelta:  v.LongitudeDelta(),
		UpdatedAt:       v.UpdatedAt(),
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			UpdateAll: true,
		}).
		Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save viewport: %w", err)
	}
	return nil
}

// AllModels lists every GORM model owned by this service, for auto-migration.
func AllModels() []interface{} {
	return []interface{}{&LocationModel{}, &PhotoModel{}, &MapViewportModel{}}
}
