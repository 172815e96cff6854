package location

import (
	"context"

	"github.com/google/uuid"
)

// LocationRepository defines the persistence contract for pins.
type LocationRepository interface {
	// Save persists a new location. A duplicate coordinate yields a conflict error.
	Save(ctx context.Context, location *Location) error

	// FindByID retrieves a location by its identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Location, error)

	// List returns all locations ordered by latitude, then longitude.
	List(ctx context.Context) ([]*Location, error)

	// Delete removes the location and every photo it owns in one transaction.
	// It returns the ids of the removed photos.
	Delete(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}
