package photo

import (
	"context"

	"github.com/google/uuid"
)

// PhotoRepository defines persistence operations for album photos.
type PhotoRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Photo, error)
	FindByLocationID(ctx context.Context, locationID uuid.UUID) ([]*Photo, error)
	CountByLocationIDs(ctx context.Context, locationIDs []uuid.UUID) (map[uuid.UUID]Counts, error)

	// ReplaceForLocation deletes every photo owned by locationID and inserts placeholders,
	// atomically. It returns the ids of the removed photos.
	ReplaceForLocation(ctx context.Context, locationID uuid.UUID, placeholders []*Photo) ([]uuid.UUID, error)

	// SetPayload writes the payload of a pending photo. A missing id yields a not-found error.
	SetPayload(ctx context.Context, id uuid.UUID, payload Payload) error

	// DeleteByIDs removes the given photos of one location and returns the ids actually removed.
	DeleteByIDs(ctx context.Context, locationID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error)
}

// Counts summarises an album.
type Counts struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
}
