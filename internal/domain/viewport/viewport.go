package viewport

import (
	"context"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-album/internal/domain/location"
)

// DefaultKey identifies the single persisted map region.
const DefaultKey = "map"

// MapViewport is the last-viewed map region: a center coordinate and the visible span.
type MapViewport struct {
	center         location.Coordinate
	latitudeDelta  float64
	longitudeDelta float64
	updatedAt      time.Time
}

// NewMapViewport validates and creates a viewport.
func NewMapViewport(center location.Coordinate, latitudeDelta, longitudeDelta float64) (*MapViewport, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if latitudeDelta <= 0 || latitudeDelta > 180 {
		return nil, domain.NewValidationError(fmt.Sprintf("latitude delta %v out of range (0, 180]", latitudeDelta))
	}
	if longitudeDelta <= 0 || longitudeDelta > 360 {
		return nil, domain.NewValidationError(fmt.Sprintf("longitude delta %v out of range (0, 360]", longitudeDelta))
	}
	return &MapViewport{
		center:         center,
		latitudeDelta:  latitudeDelta,
		longitudeDelta: longitudeDelta,
		updatedAt:      time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a MapViewport from persistence.
func Reconstruct(center location.Coordinate, latitudeDelta, longitudeDelta float64, updatedAt time.Time) *MapViewport {
	return &MapViewport{
		center:         center,
		latitudeDelta:  latitudeDelta,
		longitudeDelta: longitudeDelta,
		updatedAt:      updatedAt,
	}
}

func (v *MapViewport) Center() location.Coordinate { return v.center }
func (v *MapViewport) LatitudeDelta() float64       { return v.latitudeDelta }
func (v *MapViewport) LongitudeDelta() float64      { return v.longitudeDelta }
func (v *MapViewport) UpdatedAt() time.Time         { return v.updatedAt }

// ViewportRepository stores key-value map regions.
type ViewportRepository interface {
	// Find returns the viewport stored under key, or a not-found error.
	Find(ctx context.Context, key string) (*MapViewport, error)
	// Upsert stores the viewport under key.
	Upsert(ctx context.Context, key string, v *MapViewport) error
}
