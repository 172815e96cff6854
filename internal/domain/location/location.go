package location

import (
	"fmt"
	"math"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	"github.com/google/uuid"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate lies within the valid latitude/longitude ranges.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < MinLatitude || c.Latitude > MaxLatitude {
		return domain.NewValidationError(fmt.Sprintf("latitude %v out of range [%v, %v]", c.Latitude, MinLatitude, MaxLatitude))
	}
	if math.IsNaN(c.Longitude) || c.Longitude < MinLongitude || c.Longitude > MaxLongitude {
		return domain.NewValidationError(fmt.Sprintf("longitude %v out of range [%v, %v]", c.Longitude, MinLongitude, MaxLongitude))
	}
	return nil
}

// Location is the aggregate root for a user-placed pin. It owns the pin's photo album.
type Location struct {
	id         uuid.UUID
	coordinate Coordinate
	createdAt  time.Time
}

// NewLocation creates a new pin at the given coordinate.
func NewLocation(latitude, longitude float64) (*Location, error) {
	coord := Coordinate{Latitude: latitude, Longitude: longitude}
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	return &Location{
		id:         uuid.New(),
		coordinate: coord,
		createdAt:  time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a Location from persistence (no validation).
func Reconstruct(id uuid.UUID, latitude, longitude float64, createdAt time.Time) *Location {
	return &Location{
		id:         id,
		coordinate: Coordinate{Latitude: latitude, Longitude: longitude},
		createdAt:  createdAt,
	}
}

// Getters.
func (l *Location) ID() uuid.UUID          { return l.id }
func (l *Location) Coordinate() Coordinate { return l.coordinate }
func (l *Location) Latitude() float64      { return l.coordinate.Latitude }
func (l *Location) Longitude() float64     { return l.coordinate.Longitude }
func (l *Location) CreatedAt() time.Time   { return l.createdAt }
