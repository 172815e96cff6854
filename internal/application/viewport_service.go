package application

import (
	"context"
	"time"

	locationDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/location"
	viewportDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/viewport"
	"github.com/Kilat-Pet-Delivery/service-album/internal/eventbus"
	"go.uber.org/zap"
)

// ViewportDTO is the last viewed map region.
type ViewportDTO struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	LatitudeDelta  float64   `json:"latitude_delta"`
	LongitudeDelta float64   `json:"longitude_delta"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpdateViewportRequest holds a new map region.
type UpdateViewportRequest struct {
	Latitude       *float64 `json:"latitude" binding:"required"`
	Longitude      *float64 `json:"longitude" binding:"required"`
	LatitudeDelta  float64  `json:"latitude_delta" binding:"required"`
	LongitudeDelta float64  `json:"longitude_delta" binding:"required"`
}

// ViewportService persists the last viewed map region.
type ViewportService struct {
	repo   viewportDomain.ViewportRepository
	loop   *StoreLoop
	events *eventbus.Emitter
	logger *zap.Logger
}

// NewViewportService creates a new ViewportService.
func NewViewportService(repo viewportDomain.ViewportRepository, loop *StoreLoop, events *eventbus.Emitter, logger *zap.Logger) *ViewportService {
	return &ViewportService{repo: repo, loop: loop, events: events, logger: logger}
}

// GetViewport returns the saved region, or a not found error if none was saved yet.
func (s *ViewportService) GetViewport(ctx context.Context) (*ViewportDTO, error) {
	var v *viewportDomain.MapViewport
	if err := s.loop.Do(ctx, func() error {
		var err error
		v, err = s.repo.Find(ctx, viewportDomain.DefaultKey)
		return err
	}); err != nil {
		return nil, err
	}
	return toViewportDTO(v), nil
}

// UpdateViewport replaces the saved region.
func (s *ViewportService) UpdateViewport(ctx context.Context, req UpdateViewportRequest) (*ViewportDTO, error) {
	v, err := viewportDomain.NewMapViewport(
		locationDomain.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
		req.LatitudeDelta,
		req.LongitudeDelta,
	)
	if err != nil {
		return nil, err
	}

	if err := s.loop.Do(ctx, func() error {
		return s.repo.Upsert(ctx, viewportDomain.DefaultKey, v)
	}); err != nil {
		return nil, err
	}

	s.logger.Debug("viewport saved",
		zap.Float64("latitude", v.Center().Latitude),
		zap.Float64("longitude", v.Center().Longitude),
	)
	s.events.Emit(ctx, eventbus.ViewportUpdated, viewportDomain.DefaultKey, eventbus.ViewportUpdatedEvent{
		Latitude:       v.Center().Latitude,
		Longitude:      v.Center().Longitude,
		LatitudeDelta:  v.LatitudeDelta(),
		LongitudeDelta: v.LongitudeDelta(),
		OccurredAt:     v.UpdatedAt(),
	})
	return toViewportDTO(v), nil
}

func toViewportDTO(v *viewportDomain.MapViewport) *ViewportDTO {
	return &ViewportDTO{
		Latitude:       v.Center().Latitude,
		Longitude:      v.Center().Longitude,
		LatitudeDelta:  v.LatitudeDelta(),
		LongitudeDelta: v.LongitudeDelta(),
		UpdatedAt:      v.UpdatedAt(),
	}
}
