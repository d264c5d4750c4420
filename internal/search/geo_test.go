package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundingBoxFor(t *testing.T) {
	box := BoundingBoxFor(40.0, -100.0, 69.09)

	// One degree of latitude is ~69.09 miles
	assert.InDelta(t, 41.0, box.NorthLat, 0.01)
	assert.InDelta(t, 39.0, box.SouthLat, 0.01)
	assert.Less(t, box.WestLon, -101.0)
	assert.Greater(t, box.EastLon, -99.0)
}

func TestBoundingBoxForPole(t *testing.T) {
	box := BoundingBoxFor(89.5, 10, 100)

	assert.Equal(t, 90.0, box.NorthLat)
	assert.Equal(t, -180.0, box.WestLon)
	assert.Equal(t, 180.0, box.EastLon)
}

func TestBoundingBoxForAntimeridian(t *testing.T) {
	box := BoundingBoxFor(0, 179.9, 50)

	// The west edge stays east of the east edge once wrapped
	assert.Greater(t, box.WestLon, 179.0)
	assert.Less(t, box.EastLon, -179.0)
}

func TestBoundingBoxClause(t *testing.T) {
	box := BoundingBox{NorthLat: 41, WestLon: -101, SouthLat: 39, EastLon: -99}
	assert.Equal(t, "(range field=latlon ['41.000000,-101.000000','39.000000,-99.000000'])", box.clause())
}

func TestHaversineMiles(t *testing.T) {
	// San Francisco to Los Angeles
	d := HaversineMiles(37.7749, -122.4194, 34.0522, -118.2437)
	assert.InDelta(t, 347, d, 2)

	assert.Zero(t, HaversineMiles(10, 10, 10, 10))
}

func TestWrapLon(t *testing.T) {
	assert.Equal(t, -170.0, wrapLon(190))
	assert.Equal(t, 170.0, wrapLon(-190))
	assert.Equal(t, 45.0, wrapLon(45))
}
