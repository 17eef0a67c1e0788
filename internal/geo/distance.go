// Package geo provides great-circle distances and the coarse postcode
// centroid lookup used to annotate and filter search results.
//
// Postcode resolution is a static table keyed by outward-code prefix. It is
// deliberately approximate: callers get a district centroid, never an exact
// address.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius used by DistanceMiles.
const EarthRadiusMiles = 3959.0

// Named search radii in miles.
const (
	RadiusLocal    = 10.0
	RadiusRegional = 100.0
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceMiles returns the haversine distance between two coordinates.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// DistanceTo returns the distance in miles from p to q.
func (p Point) DistanceTo(q Point) float64 {
	return DistanceMiles(p.Lat, p.Lon, q.Lat, q.Lon)
}

// IsZero reports whether the point carries no coordinates.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lon == 0
}

// WithinRadius reports whether q lies within radius miles of p.
// A non-positive radius disables the check.
func WithinRadius(p, q Point, radius float64) bool {
	if radius <= 0 {
		return true
	}
	return p.DistanceTo(q) <= radius
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
