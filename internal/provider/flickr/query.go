package flickr

import (
	"fmt"
	"math"
	"strconv"

	locationDomain "github.com/Kilat-Pet-Delivery/service-album/internal/domain/location"
)

// MaxReachableResults is the deepest result the search API will page to.
const MaxReachableResults = 4000

// BBox is a geographic bounding box in degrees.
type BBox struct {
	MinLongitude float64
	MinLatitude  float64
	MaxLongitude float64
	MaxLatitude  float64
}

// BoundingBox centres a box of the given half extents on c, clamped to valid ranges.
func BoundingBox(c locationDomain.Coordinate, halfWidth, halfHeight float64) BBox {
	return BBox{
		MinLongitude: math.Max(c.Longitude-halfWidth, locationDomain.MinLongitude),
		MinLatitude:  math.Max(c.Latitude-halfHeight, locationDomain.MinLatitude),
		MaxLongitude: math.Min(c.Longitude+halfWidth, locationDomain.MaxLongitude),
		MaxLatitude:  math.Min(c.Latitude+halfHeight, locationDomain.MaxLatitude),
	}
}

// String formats the box as "minLon,minLat,maxLon,maxLat".
func (b BBox) String() string {
	return formatDegrees(b.MinLongitude) + "," +
		formatDegrees(b.MinLatitude) + "," +
		formatDegrees(b.MaxLongitude) + "," +
		formatDegrees(b.MaxLatitude)
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PageCeiling is the highest page that can be requested: the reported page count, capped
// so that page*perPage never exceeds MaxReachableResults.
func PageCeiling(totalPages, perPage int) int {
	if perPage <= 0 || totalPages <= 0 {
		return 0
	}
	return min(totalPages, MaxReachableResults/perPage)
}

// PickPage returns a page uniformly distributed over [1, ceiling]. intN must return a
// value in [0, n).
func PickPage(ceiling int, intN func(int) int) (int, error) {
	if ceiling < 1 {
		return 0, fmt.Errorf("flickr: no page to pick from (ceiling %d)", ceiling)
	}
	return intN(ceiling) + 1, nil
}
