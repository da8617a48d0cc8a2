package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceIdentity(t *testing.T) {
	for _, p := range [][2]float64{{0, 0}, {52.37, 4.89}, {-33.86, 151.2}, {90, 0}, {-90, 180}} {
		assert.Zero(t, DistanceKm(p[0], p[1], p[0], p[1]))
	}
}

func TestDistanceSymmetric(t *testing.T) {
	pairs := [][4]float64{
		{52.3676, 4.9041, 52.0907, 5.1214},
		{40.7128, -74.006, 51.5074, -0.1278},
		{-33.8688, 151.2093, 35.6762, 139.6503},
		{0, 179.9, 0, -179.9},
	}
	for _, p := range pairs {
		assert.InDelta(t, DistanceKm(p[0], p[1], p[2], p[3]), DistanceKm(p[2], p[3], p[0], p[1]), 1e-9)
	}
}

func TestDistanceKnown(t *testing.T) {
	// Amsterdam to Utrecht
	assert.InDelta(t, 34.2, DistanceKm(52.3676, 4.9041, 52.0907, 5.1214), 0.5)
	// one degree along the equator
	assert.InDelta(t, EarthRadiusKm*math.Pi/180, DistanceKm(0, 0, 0, 1), 1e-9)
	// across the antimeridian stays short
	assert.Less(t, DistanceKm(0, 179.9, 0, -179.9), 25.0)
	// antipodes
	assert.InDelta(t, EarthRadiusKm*math.Pi, DistanceKm(0, 0, 0, 180), 1e-6)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(90, 180))
	assert.True(t, Valid(-90, -180))
	assert.False(t, Valid(90.01, 0))
	assert.False(t, Valid(0, -180.01))
	assert.False(t, Valid(math.NaN(), 0))
}

// destination walks km from lat/lon along bearing and normalizes the
// longitude into ±180.
func destination(lat, lon, bearing, km float64) (float64, float64) {
	d := km / EarthRadiusKm
	theta := radians(bearing)
	lat1, lon1 := radians(lat), radians(lon)
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(math.Sin(theta)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))
	plon := math.Mod(lon2*180/math.Pi+540, 360) - 180
	return lat2 * 180 / math.Pi, plon
}

func TestBoundingBoxContainsCircle(t *testing.T) {
	tests := []struct {
		name          string
		lat, lon, rad float64
	}{
		{"amsterdam", 52.37, 4.89, 10},
		{"east of antimeridian", 0, 179.95, 25},
		{"west of antimeridian", -16.5, -179.99, 40},
		{"fiji", -17.7, 178.1, 300},
		{"near north pole", 89.95, 20, 25},
		{"near south pole", -89.9, -120, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := BoundingBox(tt.lat, tt.lon, tt.rad)
			assert.GreaterOrEqual(t, box.MinLat, -90.0)
			assert.LessOrEqual(t, box.MaxLat, 90.0)
			for _, r := range box.LonRanges() {
				assert.GreaterOrEqual(t, r[0], -180.0)
				assert.LessOrEqual(t, r[1], 180.0)
			}
			for bearing := 0.0; bearing < 360; bearing += 15 {
				// just inside the radius
				plat, plon := destination(tt.lat, tt.lon, bearing, tt.rad-0.01)
				assert.True(t, box.Contains(plat, plon), "bearing %v -> (%v, %v)", bearing, plat, plon)
			}
		})
	}
	assert.False(t, BoundingBox(52.37, 4.89, 10).Contains(53.37, 4.89))
}

func TestBoundingBoxAcrossAntimeridian(t *testing.T) {
	box := BoundingBox(0, 179.95, 25)
	assert.Len(t, box.LonRanges(), 2)
	assert.Less(t, DistanceKm(0, 179.95, 0, -179.95), 25.0)
	assert.True(t, box.Contains(0, -179.95))
	assert.False(t, box.Contains(0, 0))
	assert.False(t, box.Contains(0, -170))

	assert.Len(t, BoundingBox(52.37, 4.89, 10).LonRanges(), 1)
	full := BoundingBox(89.99, 0, 50)
	assert.Equal(t, [][2]float64{{-180, 180}}, full.LonRanges())
	assert.Equal(t, 90.0, full.MaxLat)
}
