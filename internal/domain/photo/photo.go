package photo

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyHydrated is returned when a payload is assigned to a photo that already has one.
var ErrAlreadyHydrated = errors.New("photo payload already assigned")

// Payload is the binary image content of a hydrated photo.
type Payload struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Photo belongs to exactly one location. It starts as a placeholder without payload and
// is hydrated at most once.
type Photo struct {
	id          uuid.UUID
	locationID  uuid.UUID
	sourceURL   string
	data        []byte
	contentType string
	width       int
	height      int
	createdAt   time.Time
	hydratedAt  *time.Time
}

// NewPlaceholder creates an empty photo owned by locationID, to be filled from sourceURL.
func NewPlaceholder(locationID uuid.UUID, sourceURL string) (*Photo, error) {
	if locationID == uuid.Nil {
		return nil, fmt.Errorf("location ID is required")
	}
	if sourceURL == "" {
		return nil, fmt.Errorf("source URL is required")
	}

	return &Photo{
		id:         uuid.New(),
		locationID: locationID,
		sourceURL:  sourceURL,
		createdAt:  time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a Photo from persistence.
func Reconstruct(
	id, locationID uuid.UUID,
	sourceURL string,
	data []byte,
	contentType string,
	width, height int,
	createdAt time.Time,
	hydratedAt *time.Time,
) *Photo {
	return &Photo{
		id:          id,
		locationID:  locationID,
		sourceURL:   sourceURL,
		data:        data,
		contentType: contentType,
		width:       width,
		height:      height,
		createdAt:   createdAt,
		hydratedAt:  hydratedAt,
	}
}

// Getters.
func (p *Photo) ID() uuid.UUID          { return p.id }
func (p *Photo) LocationID() uuid.UUID  { return p.locationID }
func (p *Photo) SourceURL() string      { return p.sourceURL }
func (p *Photo) Data() []byte           { return p.data }
func (p *Photo) ContentType() string    { return p.contentType }
func (p *Photo) Width() int             { return p.width }
func (p *Photo) Height() int            { return p.height }
func (p *Photo) CreatedAt() time.Time   { return p.createdAt }
func (p *Photo) HydratedAt() *time.Time { return p.hydratedAt }

// IsPending returns true while the photo has no payload. Listing queries omit the payload
// bytes, so the hydration timestamp is authoritative.
func (p *Photo) IsPending() bool {
	return p.hydratedAt == nil
}

// Hydrate assigns the payload. A photo can only be hydrated once.
func (p *Photo) Hydrate(payload Payload) error {
	if !p.IsPending() {
		return ErrAlreadyHydrated
	}
	if len(payload.Data) == 0 {
		return fmt.Errorf("payload is empty")
	}

	now := time.Now().UTC()
	p.data = payload.Data
	p.contentType = payload.ContentType
	p.width = payload.Width
	p.height = payload.Height
	p.hydratedAt = &now
	return nil
}
