package application

import (
	"context"
	"time"

	locationDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/location"
	photoDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/photo"
	"github.com/Kilat-Pet-Delivery/service-album/internal/eventbus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateLocationRequest holds the data needed to drop a pin.
type CreateLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	// Prefetch starts a photo refresh right after the pin is stored.
	Prefetch bool `json:"prefetch"`
}

// LocationDTO is the API response representation of a location.
type LocationDTO struct {
	ID           uuid.UUID `json:"id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	PhotoCount   int64     `json:"photo_count"`
	PendingCount int64     `json:"pending_count"`
	Refreshing   bool      `json:"refreshing"`
	CreatedAt    time.Time `json:"created_at"`
}

// LocationService handles pin use cases.
type LocationService struct {
	locations locationDomain.LocationRepository
	photos    photoDomain.PhotoRepository
	sync      *PhotoSyncService
	loop      *StoreLoop
	events    *eventbus.Emitter
	cache     *PhotoCache
	logger    *zap.Logger
}

// NewLocationService creates a new LocationService.
func NewLocationService(
	locations locationDomain.LocationRepository,
	photos photoDomain.PhotoRepository,
	sync *PhotoSyncService,
	loop *StoreLoop,
	events *eventbus.Emitter,
	cache *PhotoCache,
	logger *zap.Logger,
) *LocationService {
	return &LocationService{
		locations: locations,
		photos:    photos,
		sync:      sync,
		loop:      loop,
		events:    events,
		cache:     cache,
		logger:    logger,
	}
}

// CreateLocation stores a new pin. An exact duplicate coordinate is a conflict.
func (s *LocationService) CreateLocation(ctx context.Context, req CreateLocationRequest) (*LocationDTO, error) {
	loc, err := locationDomain.NewLocation(*req.Latitude, *req.Longitude)
	if err != nil {
		return nil, err
	}

	if err := s.loop.Do(ctx, func() error {
		return s.locations.Save(ctx, loc)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("location created",
		zap.String("location_id", loc.ID().String()),
		zap.Float64("latitude", loc.Latitude()),
		zap.Float64("longitude", loc.Longitude()),
	)
	s.events.Emit(ctx, eventbus.LocationCreated, loc.ID().String(), eventbus.LocationCreatedEvent{
		LocationID: loc.ID(),
		Latitude:   loc.Latitude(),
		Longitude:  loc.Longitude(),
		OccurredAt: time.Now().UTC(),
	})

	dto := toLocationDTO(loc, photoDomain.Counts{}, false)
	if req.Prefetch {
		if err := s.sync.Start(loc.ID()); err != nil {
			s.logger.Warn("prefetch not started", zap.String("location_id", loc.ID().String()), zap.Error(err))
		} else {
			dto.Refreshing = true
		}
	}
	return dto, nil
}

// ListLocations returns every pin ordered by latitude, then longitude.
func (s *LocationService) ListLocations(ctx context.Context) ([]*LocationDTO, error) {
	var (
		locations []*locationDomain.Location
		counts    map[uuid.UUID]photoDomain.Counts
	)
	if err := s.loop.Do(ctx, func() error {
		var err error
		locations, err = s.locations.List(ctx)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(locations))
		for i, l := range locations {
			ids[i] = l.ID()
		}
		counts, err = s.photos.CountByLocationIDs(ctx, ids)
		return err
	}); err != nil {
		return nil, err
	}

	dtos := make([]*LocationDTO, len(locations))
	for i, l := range locations {
		dtos[i] = toLocationDTO(l, counts[l.ID()], s.sync.IsActive(l.ID()))
	}
	return dtos, nil
}

// GetLocation returns one pin with its photo counts.
func (s *LocationService) GetLocation(ctx context.Context, id uuid.UUID) (*LocationDTO, error) {
	var (
		loc    *locationDomain.Location
		counts map[uuid.UUID]photoDomain.Counts
	)
	if err := s.loop.Do(ctx, func() error {
		var err error
		loc, err = s.locations.FindByID(ctx, id)
		if err != nil {
			return err
		}
		counts, err = s.photos.CountByLocationIDs(ctx, []uuid.UUID{id})
		return err
	}); err != nil {
		return nil, err
	}
	return toLocationDTO(loc, counts[id], s.sync.IsActive(id)), nil
}

// DeleteLocation removes a pin and all of its photos, cancelling any refresh in progress.
func (s *LocationService) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	s.sync.Cancel(id)

	var removed []uuid.UUID
	if err := s.loop.Do(ctx, func() error {
		var err error
		removed, err = s.locations.Delete(ctx, id)
		return err
	}); err != nil {
		return err
	}
	s.cache.Invalidate(removed...)

	s.logger.Info("location deleted",
		zap.String("location_id", id.String()),
		zap.Int("photos_removed", len(removed)),
	)
	s.events.Emit(ctx, eventbus.LocationDeleted, id.String(), eventbus.LocationDeletedEvent{
		LocationID:      id,
		RemovedPhotoIDs: removed,
		OccurredAt:      time.Now().UTC(),
	})
	return nil
}

func toLocationDTO(l *locationDomain.Location, counts photoDomain.Counts, refreshing bool) *LocationDTO {
	return &LocationDTO{
		ID:           l.ID(),
		Latitude:     l.Latitude(),
		Longitude:    l.Longitude(),
		PhotoCount:   counts.Total,
		PendingCount: counts.Pending,
		Refreshing:   refreshing,
		CreatedAt:    l.CreatedAt(),
	}
}
