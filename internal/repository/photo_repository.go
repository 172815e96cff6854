package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	photoDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/photo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// photoListColumns are loaded for album listings; the payload blob is left out.
var photoListColumns = []string{"id", "location_id", "source_url", "content_type", "width", "height", "created_at", "hydrated_at"}

// PhotoModel is the GORM model for the photos table.
type PhotoModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	LocationID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	SourceURL   string     `gorm:"type:text;not null"`
	Data        []byte     `gorm:""`
	ContentType string     `gorm:"size:50"`
	Width       int        `gorm:"not null;default:0"`
	Height      int        `gorm:"not null;default:0"`
	CreatedAt   time.Time  `gorm:"not null"`
	HydratedAt  *time.Time `gorm:""`
}

// TableName sets the table name.
func (PhotoModel) TableName() string { return "photos" }

// GormPhotoRepository implements PhotoRepository using GORM.
type GormPhotoRepository struct {
	db *gorm.DB
}

// NewGormPhotoRepository creates a new GormPhotoRepository.
func NewGormPhotoRepository(db *gorm.DB) *GormPhotoRepository {
	return &GormPhotoRepository{db: db}
}

// FindByID returns a single photo, including its payload.
func (r *GormPhotoRepository) FindByID(ctx context.Context, id uuid.UUID) (*photoDomain.Photo, error) {
	var model PhotoModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Photo", id.String())
		}
		return nil, fmt.Errorf("failed to find photo by ID: %w", err)
	}
	return toPhotoDomain(&model), nil
}

// FindByLocationID returns the album of a location without payload bytes.
func (r *GormPhotoRepository) FindByLocationID(ctx context.Context, locationID uuid.UUID) ([]*photoDomain.Photo, error) {
	var models []PhotoModel
	if err := r.db.WithContext(ctx).
		Select(photoListColumns).
		Where("location_id = ?", locationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find location photos: %w", err)
	}

	photos := make([]*photoDomain.Photo, len(models))
	for i := range models {
		photos[i] = toPhotoDomain(&models[i])
	}
	return photos, nil
}

// CountByLocationIDs returns total and pending photo counts per location.
func (r *GormPhotoRepository) CountByLocationIDs(ctx context.Context, locationIDs []uuid.UUID) (map[uuid.UUID]photoDomain.Counts, error) {
	counts := make(map[uuid.UUID]photoDomain.Counts, len(locationIDs))
	if len(locationIDs) == 0 {
		return counts, nil
	}

	type locationCount struct {
		LocationID uuid.UUID
		Total      int64
		Pending    int64
	}
	var results []locationCount
	if err := r.db.WithContext(ctx).Model(&PhotoModel{}).
		Select("location_id, count(*) as total, sum(case when hydrated_at is null then 1 else 0 end) as pending").
		Where("location_id IN ?", locationIDs).
		Group("location_id").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count photos: %w", err)
	}

	for _, lc := range results {
		counts[lc.LocationID] = photoDomain.Counts{Total: lc.Total, Pending: lc.Pending}
	}
	return counts, nil
}

// ReplaceForLocation deletes the whole album and inserts the placeholders in one transaction.
func (r *GormPhotoRepository) ReplaceForLocation(ctx context.Context, locationID uuid.UUID, placeholders []*photoDomain.Photo) ([]uuid.UUID, error) {
	models := make([]PhotoModel, len(placeholders))
	for i, p := range placeholders {
		if p.LocationID() != locationID {
			return nil, domain.NewValidationError(fmt.Sprintf("photo %s is not owned by location %s", p.ID(), locationID))
		}
		models[i] = toPhotoModel(p)
	}

	var removed []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&LocationModel{}).Where("id = ?", locationID).Count(&exists).Error; err != nil {
			return fmt.Errorf("failed to check location: %w", err)
		}
		if exists == 0 {
			return domain.NewNotFoundError("Location", locationID.String())
		}

		if err := tx.Model(&PhotoModel{}).Where("location_id = ?", locationID).Pluck("id", &removed).Error; err != nil {
			return fmt.Errorf("failed to collect photos: %w", err)
		}
		if err := tx.Where("location_id = ?", locationID).Delete(&PhotoModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete photos: %w", err)
		}
		if len(models) == 0 {
			return nil
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("failed to insert placeholders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// SetPayload hydrates a pending photo.
func (r *GormPhotoRepository) SetPayload(ctx context.Context, id uuid.UUID, payload photoDomain.Payload) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model PhotoModel
		if err := tx.Select(photoListColumns).Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("Photo", id.String())
			}
			return fmt.Errorf("failed to load photo: %w", err)
		}

		p := toPhotoDomain(&model)
		if err := p.Hydrate(payload); err != nil {
			return err
		}

		result := tx.Model(&PhotoModel{}).
			Where("id = ? AND hydrated_at IS NULL", id).
			Updates(map[string]interface{}{
				"data":         p.Data(),
				"content_type": p.ContentType(),
				"width":        p.Width(),
				"height":       p.Height(),
				"hydrated_at":  p.HydratedAt(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to store photo payload: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return photoDomain.ErrAlreadyHydrated
		}
		return nil
	})
}

// DeleteByIDs removes the selected photos of one location.
func (r *GormPhotoRepository) DeleteByIDs(ctx context.Context, locationID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var removed []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&PhotoModel{}).
			Where("location_id = ? AND id IN ?", locationID, ids).
			Pluck("id", &removed).Error; err != nil {
			return fmt.Errorf("failed to collect photos: %w", err)
		}
		if len(removed) == 0 {
			return nil
		}
		if err := tx.Where("id IN ?", removed).Delete(&PhotoModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete photos: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func toPhotoModel(p *photoDomain.Photo) PhotoModel {
	return PhotoModel{
		ID:          p.ID(),
		LocationID:  p.LocationID(),
		SourceURL:   p.SourceURL(),
		Data:        p.Data(),
		ContentType: p.ContentType(),
		Width:       p.Width(),
		Height:      p.Height(),
		CreatedAt:   p.CreatedAt(),
		HydratedAt:  p.HydratedAt(),
	}
}

func toPhotoDomain(m *PhotoModel) *photoDomain.Photo {
	return photoDomain.Reconstruct(
		m.ID,
		m.LocationID,
		m.SourceURL,
		m.Data,
		m.ContentType,
		m.Width,
		m.Height,
		m.CreatedAt,
		m.HydratedAt,
	)
}
