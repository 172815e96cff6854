package viewport_test

import (
	"testing"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-album/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-album/internal/domain/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMapViewport(t *testing.T) {
	center := location.Coordinate{Latitude: 37.77, Longitude: -122.42}

	v, err := viewport.NewMapViewport(center, 0.5, 0.75)
	require.NoError(t, err)

	assert.Equal(t, center, v.Center())
	assert.Equal(t, 0.5, v.LatitudeDelta())
	assert.Equal(t, 0.75, v.LongitudeDelta())
	assert.False(t, v.UpdatedAt().IsZero())
}

func TestNewMapViewport_Validation(t *testing.T) {
	ok := location.Coordinate{Latitude: 0, Longitude: 0}
	tests := []struct {
		name           string
		center         location.Coordinate
		latDelta, lonD float64
	}{
		{"bad center", location.Coordinate{Latitude: 100}, 1, 1},
		{"zero latitude delta", ok, 0, 1},
		{"latitude delta too wide", ok, 181, 1},
		{"negative longitude delta", ok, 1, -1},
		{"longitude delta too wide", ok, 1, 361},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := viewport.NewMapViewport(tt.center, tt.latDelta, tt.lonD)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
		})
	}
}
