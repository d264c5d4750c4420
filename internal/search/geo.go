package search

import (
	"fmt"
	"math"
	"strconv"
)

const (
	earthRadiusMiles = 3958.8
	kmPerMile        = 1.609344
)

// distanceExpr is the engine expression for great-circle distance in kilometres
func distanceExpr(lat, lon float64) string {
	return fmt.Sprintf("haversin(%s,%s,%s.latitude,%s.longitude)",
		formatCoord(lat), formatCoord(lon), FieldLatLon, FieldLatLon)
}

// BoundingBox is the north-west and south-east corner of a lat/lon rectangle
type BoundingBox struct {
	NorthLat float64
	WestLon  float64
	SouthLat float64
	EastLon  float64
}

// BoundingBoxFor returns the smallest box enclosing a circle of radiusMiles around lat/lon.
// Latitude is clamped to the poles and longitude wraps across the antimeridian.
func BoundingBoxFor(lat, lon, radiusMiles float64) BoundingBox {
	latDelta := radiusMiles / earthRadiusMiles * 180 / math.Pi

	north := math.Min(lat+latDelta, 90)
	south := math.Max(lat-latDelta, -90)

	// Near a pole every longitude is within the radius
	if north >= 90 || south <= -90 {
		return BoundingBox{NorthLat: north, WestLon: -180, SouthLat: south, EastLon: 180}
	}

	lonDelta := latDelta / math.Cos(lat*math.Pi/180)
	if lonDelta >= 180 {
		return BoundingBox{NorthLat: north, WestLon: -180, SouthLat: south, EastLon: 180}
	}

	return BoundingBox{
		NorthLat: north,
		WestLon:  wrapLon(lon - lonDelta),
		SouthLat: south,
		EastLon:  wrapLon(lon + lonDelta),
	}
}

// clause renders the box as a structured range on the latlon field
func (b BoundingBox) clause() string {
	return fmt.Sprintf("(range field=%s ['%s,%s','%s,%s'])", FieldLatLon,
		formatCoord(b.NorthLat), formatCoord(b.WestLon),
		formatCoord(b.SouthLat), formatCoord(b.EastLon))
}

// HaversineMiles returns the great-circle distance between two points
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(a)))
}

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
