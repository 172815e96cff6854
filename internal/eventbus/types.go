// Package eventbus defines the album change events and delivers them to in-process
// subscribers and Kafka.
package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies this service in event envelopes.
const Source = "service-album"

// Topics.
const (
	TopicAlbumEvents   = "album.events"
	TopicAlbumCommands = "album.commands"
)

// Event types published on TopicAlbumEvents.
const (
	LocationCreated      = "album.location.created"
	LocationDeleted      = "album.location.deleted"
	PhotosReplaced       = "album.photos.replaced"
	PhotoHydrated        = "album.photo.hydrated"
	PhotoHydrationFailed = "album.photo.hydration_failed"
	PhotosRemoved        = "album.photos.removed"
	RefreshCompleted     = "album.refresh.completed"
	RefreshFailed        = "album.refresh.failed"
	ViewportUpdated      = "album.viewport.updated"
)

// Command types consumed from TopicAlbumCommands.
const (
	RefreshRequested = "album.refresh.requested"
)

type LocationCreatedEvent struct {
	LocationID uuid.UUID `json:"location_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	OccurredAt time.Time `json:"occurred_at"`
}

type LocationDeletedEvent struct {
	LocationID      uuid.UUID   `json:"location_id"`
	RemovedPhotoIDs []uuid.UUID `json:"removed_photo_ids"`
	OccurredAt      time.Time   `json:"occurred_at"`
}

// PhotosReplacedEvent announces a refresh's replace step. Removed ids were deleted in the
// same transaction that inserted the placeholders.
type PhotosReplacedEvent struct {
	LocationID      uuid.UUID   `json:"location_id"`
	RefreshID       uuid.UUID   `json:"refresh_id"`
	RemovedPhotoIDs []uuid.UUID `json:"removed_photo_ids"`
	PlaceholderIDs  []uuid.UUID `json:"placeholder_ids"`
	OccurredAt      time.Time   `json:"occurred_at"`
}

type PhotoHydratedEvent struct {
	LocationID  uuid.UUID `json:"location_id"`
	RefreshID   uuid.UUID `json:"refresh_id"`
	PhotoID     uuid.UUID `json:"photo_id"`
	ContentType string    `json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Remaining   int       `json:"remaining"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type PhotoHydrationFailedEvent struct {
	LocationID uuid.UUID `json:"location_id"`
	RefreshID  uuid.UUID `json:"refresh_id"`
	PhotoID    uuid.UUID `json:"photo_id"`
	Reason     string    `json:"reason"`
	Remaining  int       `json:"remaining"`
	OccurredAt time.Time `json:"occurred_at"`
}

type PhotosRemovedEvent struct {
	LocationID uuid.UUID   `json:"location_id"`
	PhotoIDs   []uuid.UUID `json:"photo_ids"`
	OccurredAt time.Time   `json:"occurred_at"`
}

type RefreshCompletedEvent struct {
	LocationID uuid.UUID `json:"location_id"`
	RefreshID  uuid.UUID `json:"refresh_id"`
	Total      int       `json:"total"`
	Hydrated   int       `json:"hydrated"`
	Failed     int       `json:"failed"`
	Discarded  int       `json:"discarded"`
	Superseded bool      `json:"superseded"`
	OccurredAt time.Time `json:"occurred_at"`
}

type RefreshFailedEvent struct {
	LocationID uuid.UUID `json:"location_id"`
	RefreshID  uuid.UUID `json:"refresh_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ViewportUpdatedEvent struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	LatitudeDelta  float64   `json:"latitude_delta"`
	LongitudeDelta float64   `json:"longitude_delta"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// RefreshRequestedCommand asks the service to refresh a location's album.
type RefreshRequestedCommand struct {
	LocationID uuid.UUID `json:"location_id"`
}
