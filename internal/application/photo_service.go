package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	locationDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/location"
	photoDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/photo"
	"github.com/Kilat-Pet-Delivery/service-album/internal/eventbus"
	"github.com/Kilat-Pet-Delivery/service-album/internal/thumbnail"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RemovePhotosRequest holds the photos to drop from an album.
type RemovePhotosRequest struct {
	PhotoIDs []uuid.UUID `json:"photo_ids" binding:"required,min=1"`
}

// PhotoDTO is the API response representation of a photo. The payload itself is served
// by the image endpoint.
type PhotoDTO struct {
	ID          uuid.UUID  `json:"id"`
	LocationID  uuid.UUID  `json:"location_id"`
	SourceURL   string     `json:"source_url"`
	Pending     bool       `json:"pending"`
	ContentType string     `json:"content_type,omitempty"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	HydratedAt  *time.Time `json:"hydrated_at,omitempty"`
}

// AlbumDTO is a location's photo collection.
type AlbumDTO struct {
	LocationID uuid.UUID       `json:"location_id"`
	Photos     []*PhotoDTO     `json:"photos"`
	Refresh    *RefreshSummary `json:"refresh,omitempty"`
}

// PhotoService handles album browsing use cases.
type PhotoService struct {
	locations     locationDomain.LocationRepository
	photos        photoDomain.PhotoRepository
	sync          *PhotoSyncService
	loop          *StoreLoop
	events        *eventbus.Emitter
	cache         *PhotoCache
	maxThumbWidth int
	logger        *zap.Logger
}

// NewPhotoService creates a new PhotoService.
func NewPhotoService(
	locations locationDomain.LocationRepository,
	photos photoDomain.PhotoRepository,
	sync *PhotoSyncService,
	loop *StoreLoop,
	events *eventbus.Emitter,
	cache *PhotoCache,
	maxThumbWidth int,
	logger *zap.Logger,
) *PhotoService {
	return &PhotoService{
		locations:     locations,
		photos:        photos,
		sync:          sync,
		loop:          loop,
		events:        events,
		cache:         cache,
		maxThumbWidth: maxThumbWidth,
		logger:        logger,
	}
}

// GetAlbum lists a location's photos. With autoRefresh, an empty album with no refresh
// in progress is refreshed first and the new placeholders are returned.
func (s *PhotoService) GetAlbum(ctx context.Context, locationID uuid.UUID, autoRefresh bool) (*AlbumDTO, error) {
	photos, err := s.listPhotos(ctx, locationID)
	if err != nil {
		return nil, err
	}

	album := &AlbumDTO{LocationID: locationID}
	if autoRefresh && len(photos) == 0 && !s.sync.IsActive(locationID) {
		r, err := s.sync.Refresh(ctx, locationID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("empty album refreshed on open",
			zap.String("location_id", locationID.String()),
			zap.String("refresh_id", r.ID().String()),
		)
		if photos, err = s.listPhotos(ctx, locationID); err != nil {
			return nil, err
		}
	}

	if summary, ok := s.sync.Status(locationID); ok {
		album.Refresh = &summary
	}
	album.Photos = make([]*PhotoDTO, len(photos))
	for i, p := range photos {
		album.Photos[i] = toPhotoDTO(p)
	}
	return album, nil
}

// RemovePhotos deletes the selected photos of a location and returns the ids actually
// removed. Ids that belong to another location are ignored.
func (s *PhotoService) RemovePhotos(ctx context.Context, locationID uuid.UUID, req RemovePhotosRequest) ([]uuid.UUID, error) {
	if len(req.PhotoIDs) == 0 {
		return nil, domain.NewValidationError("photo_ids must not be empty")
	}

	var removed []uuid.UUID
	if err := s.loop.Do(ctx, func() error {
		if _, err := s.locations.FindByID(ctx, locationID); err != nil {
			return err
		}
		var err error
		removed, err = s.photos.DeleteByIDs(ctx, locationID, req.PhotoIDs)
		return err
	}); err != nil {
		return nil, err
	}
	if removed == nil {
		removed = []uuid.UUID{}
	}
	s.cache.Invalidate(removed...)

	s.logger.Info("photos removed",
		zap.String("location_id", locationID.String()),
		zap.Int("requested", len(req.PhotoIDs)),
		zap.Int("removed", len(removed)),
	)
	if len(removed) > 0 {
		s.events.Emit(ctx, eventbus.PhotosRemoved, locationID.String(), eventbus.PhotosRemovedEvent{
			LocationID: locationID,
			PhotoIDs:   removed,
			OccurredAt: time.Now().UTC(),
		})
	}
	return removed, nil
}

// GetImage returns a photo's payload, or a JPEG thumbnail of it when width > 0.
// A photo that is still pending is reported as not found.
func (s *PhotoService) GetImage(ctx context.Context, photoID uuid.UUID, width int) (*CachedImage, error) {
	if width < 0 || width > s.maxThumbWidth {
		return nil, domain.NewValidationError(fmt.Sprintf("width must be within [0, %d]", s.maxThumbWidth))
	}
	if img, ok := s.cache.Get(photoID, width); ok {
		return img, nil
	}

	var p *photoDomain.Photo
	if err := s.loop.Do(ctx, func() error {
		var err error
		p, err = s.photos.FindByID(ctx, photoID)
		return err
	}); err != nil {
		return nil, err
	}
	if p.IsPending() {
		return nil, domain.NewNotFoundError("PhotoPayload", photoID.String())
	}

	img := &CachedImage{Data: p.Data(), ContentType: p.ContentType()}
	if width > 0 {
		data, err := thumbnail.Render(p.Data(), width)
		if err != nil {
			return nil, fmt.Errorf("failed to render thumbnail: %w", err)
		}
		img = &CachedImage{Data: data, ContentType: "image/jpeg"}
	}
	s.cache.Set(photoID, width, img)
	return img, nil
}

func (s *PhotoService) listPhotos(ctx context.Context, locationID uuid.UUID) ([]*photoDomain.Photo, error) {
	var photos []*photoDomain.Photo
	err := s.loop.Do(ctx, func() error {
		if _, err := s.locations.FindByID(ctx, locationID); err != nil {
			return err
		}
		var err error
		photos, err = s.photos.FindByLocationID(ctx, locationID)
		return err
	})
	return photos, err
}

func toPhotoDTO(p *photoDomain.Photo) *PhotoDTO {
	dto := &PhotoDTO{
		ID:          p.ID(),
		LocationID:  p.LocationID(),
		SourceURL:   p.SourceURL(),
		Pending:     p.IsPending(),
		ContentType: p.ContentType(),
		Width:       p.Width(),
		Height:      p.Height(),
		CreatedAt:   p.CreatedAt(),
		HydratedAt:  p.HydratedAt(),
	}
	if !dto.Pending {
		dto.ImageURL = "/api/v1/photos/" + p.ID().String() + "/image"
	}
	return dto
}
