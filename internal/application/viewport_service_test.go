package application_test

import (
	"context"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-album/internal/application"
	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-album/internal/eventbus"
	"github.com/Kilat-Pet-Delivery/service-album/internal/provider/flickr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewport_GetBeforeSaveIsNotFound(t *testing.T) {
	h := newHarness(t, fixedSearch(&flickr.SearchResult{}), servePNG)

	_, err := h.viewports.GetViewport(context.Background())
	assert.True(t, domain.IsNotFound(err))
}

func TestViewport_UpdateThenGet(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixedSearch(&flickr.SearchResult{}), servePNG)

	saved, err := h.viewports.UpdateViewport(ctx, application.UpdateViewportRequest{
		Latitude:       float(37.77),
		Longitude:      float(-122.42),
		LatitudeDelta:  0.2,
		LongitudeDelta: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, 37.77, saved.Latitude)

	got, err := h.viewports.GetViewport(ctx)
	require.NoError(t, err)
	assert.Equal(t, -122.42, got.Longitude)
	assert.Equal(t, 0.2, got.LatitudeDelta)
	assert.Equal(t, 0.3, got.LongitudeDelta)
	assert.Equal(t, 1, countType(h.drain(), eventbus.ViewportUpdated))
}

func TestViewport_RejectsInvalidRegion(t *testing.T) {
	h := newHarness(t, fixedSearch(&flickr.SearchResult{}), servePNG)

	_, err := h.viewports.UpdateViewport(context.Background(), application.UpdateViewportRequest{
		Latitude:       float(0),
		Longitude:      float(0),
		LatitudeDelta:  500,
		LongitudeDelta: 1,
	})
	assert.True(t, domain.IsValidation(err))
}
