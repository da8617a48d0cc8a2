// Package geo holds great-circle math on a spherical Earth.
package geo

import "math"

const EarthRadiusKm = 6371.0

// kilometres per degree of latitude
const kmPerDegree = EarthRadiusKm * math.Pi / 180

// boxPad widens the box so it always contains the circle.
const boxPad = 1.01

// DistanceKm returns the haversine distance between two points in kilometres.
// Inputs outside ±90/±180 are the caller's problem.
func DistanceKm(aLat, aLon, bLat, bLon float64) float64 {
	dLat := radians(bLat - aLat)
	dLon := radians(bLon - aLon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(aLat))*math.Cos(radians(bLat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Valid reports whether lat/lon are finite and inside ±90/±180.
func Valid(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Box is a lat/lon rectangle used to prefilter candidates before the exact
// distance check. Latitudes are clamped to ±90. MinLon and MaxLon may fall
// outside ±180 when the box crosses the antimeridian; LonRanges splits them.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func BoundingBox(lat, lon, radiusKm float64) Box {
	radiusKm *= boxPad
	latDelta := radiusKm / kmPerDegree
	cosLat := math.Cos(radians(lat))
	if cosLat < 1e-6 {
		cosLat = 1e-6
	}
	lonDelta := radiusKm / (kmPerDegree * cosLat)
	b := Box{
		MinLat: math.Max(lat-latDelta, -90),
		MaxLat: math.Min(lat+latDelta, 90),
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
	// a circle around a pole covers every longitude
	if lat-latDelta <= -90 || lat+latDelta >= 90 || lonDelta >= 180 {
		b.MinLon, b.MaxLon = -180, 180
	}
	return b
}

// LonRanges returns the longitude span as one or two ranges inside ±180.
func (b Box) LonRanges() [][2]float64 {
	switch {
	case b.MinLon < -180:
		return [][2]float64{{b.MinLon + 360, 180}, {-180, b.MaxLon}}
	case b.MaxLon > 180:
		return [][2]float64{{b.MinLon, 180}, {-180, b.MaxLon - 360}}
	}
	return [][2]float64{{b.MinLon, b.MaxLon}}
}

func (b Box) Contains(lat, lon float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	for _, r := range b.LonRanges() {
		if lon >= r[0] && lon <= r[1] {
			return true
		}
	}
	return false
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
