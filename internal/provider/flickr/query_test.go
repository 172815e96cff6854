package flickr_test

import (
	"testing"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-album/internal/provider/flickr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBox_CentredOnCoordinate(t *testing.T) {
	coords := []location.Coordinate{
		{Latitude: 52.52, Longitude: 13.405},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 0, Longitude: 0},
		{Latitude: 45.5, Longitude: -73.25},
	}
	for _, c := range coords {
		b := flickr.BoundingBox(c, 1, 1)
		assert.InDelta(t, c.Longitude-1, b.MinLongitude, 1e-9)
		assert.InDelta(t, c.Latitude-1, b.MinLatitude, 1e-9)
		assert.InDelta(t, c.Longitude+1, b.MaxLongitude, 1e-9)
		assert.InDelta(t, c.Latitude+1, b.MaxLatitude, 1e-9)
	}
}

func TestBoundingBox_ClampsAtEdges(t *testing.T) {
	b := flickr.BoundingBox(location.Coordinate{Latitude: 89.5, Longitude: 179.5}, 1, 1)

	assert.Equal(t, 90.0, b.MaxLatitude)
	assert.Equal(t, 180.0, b.MaxLongitude)
	assert.Equal(t, 88.5, b.MinLatitude)
	assert.Equal(t, 178.5, b.MinLongitude)

	b = flickr.BoundingBox(location.Coordinate{Latitude: -90, Longitude: -180}, 2, 2)
	assert.Equal(t, -90.0, b.MinLatitude)
	assert.Equal(t, -180.0, b.MinLongitude)
}

func TestBBox_String(t *testing.T) {
	b := flickr.BoundingBox(location.Coordinate{Latitude: 10, Longitude: 20}, 1, 0.5)
	assert.Equal(t, "19,9.5,21,10.5", b.String())
}

func TestPageCeiling(t *testing.T) {
	tests := []struct {
		name           string
		pages, perPage int
		want           int
	}{
		{"few pages", 10, 21, 10},
		{"capped by reachable results", 1000, 21, 190},
		{"exact cap", 16, 250, 16},
		{"no pages", 0, 21, 0},
		{"negative pages", -3, 21, 0},
		{"invalid per page", 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, flickr.PageCeiling(tt.pages, tt.perPage))
		})
	}
}

func TestPickPage_CoversRangeInclusive(t *testing.T) {
	lowest, err := flickr.PickPage(10, func(int) int { return 0 })
	require.NoError(t, err)
	assert.Equal(t, 1, lowest)

	highest, err := flickr.PickPage(10, func(n int) int { return n - 1 })
	require.NoError(t, err)
	assert.Equal(t, 10, highest)
}

func TestPickPage_RejectsEmptyRange(t *testing.T) {
	_, err := flickr.PickPage(0, func(int) int { return 0 })
	assert.Error(t, err)
}
