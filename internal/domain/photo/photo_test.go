package photo_test

import (
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain/photo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlaceholder(t *testing.T) {
	locationID := uuid.New()

	p, err := photo.NewPlaceholder(locationID, "https://live.staticflickr.com/1/2_m.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID())
	assert.Equal(t, locationID, p.LocationID())
	assert.Equal(t, "https://live.staticflickr.com/1/2_m.jpg", p.SourceURL())
	assert.True(t, p.IsPending())
	assert.Empty(t, p.Data())
	assert.Nil(t, p.HydratedAt())
}

func TestNewPlaceholder_RequiresOwnerAndURL(t *testing.T) {
	_, err := photo.NewPlaceholder(uuid.Nil, "https://example.com/a.jpg")
	assert.Error(t, err)

	_, err = photo.NewPlaceholder(uuid.New(), "")
	assert.Error(t, err)
}

func TestHydrate_OnlyOnce(t *testing.T) {
	p, err := photo.NewPlaceholder(uuid.New(), "https://example.com/a.jpg")
	require.NoError(t, err)

	payload := photo.Payload{Data: []byte{0xff, 0xd8, 0xff}, ContentType: "image/jpeg", Width: 640, Height: 480}
	require.NoError(t, p.Hydrate(payload))

	assert.False(t, p.IsPending())
	assert.Equal(t, payload.Data, p.Data())
	assert.Equal(t, "image/jpeg", p.ContentType())
	assert.Equal(t, 640, p.Width())
	assert.Equal(t, 480, p.Height())
	require.NotNil(t, p.HydratedAt())

	err = p.Hydrate(photo.Payload{Data: []byte{1}})
	assert.ErrorIs(t, err, photo.ErrAlreadyHydrated)
	assert.Equal(t, payload.Data, p.Data(), "payload must not change")
}

func TestHydrate_RejectsEmptyPayload(t *testing.T) {
	p, err := photo.NewPlaceholder(uuid.New(), "https://example.com/a.jpg")
	require.NoError(t, err)

	assert.Error(t, p.Hydrate(photo.Payload{}))
	assert.True(t, p.IsPending())
}

func TestReconstruct_PendingFollowsHydratedAt(t *testing.T) {
	now := time.Now().UTC()

	listed := photo.Reconstruct(uuid.New(), uuid.New(), "u", nil, "image/jpeg", 10, 10, now, &now)
	assert.False(t, listed.IsPending(), "listing omits bytes but the photo is hydrated")

	pending := photo.Reconstruct(uuid.New(), uuid.New(), "u", nil, "", 0, 0, now, nil)
	assert.True(t, pending.IsPending())
}
