package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateHaversineDistance(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		delta                  float64
	}{
		{"same point", -6.2, 106.8, -6.2, 106.8, 0, 0.0001},
		{"one degree of latitude", 0, 0, 1, 0, 111194.93, 1},
		{"one degree of longitude at equator", 0, 0, 0, 1, 111194.93, 1},
		{"jakarta to bandung", -6.2088, 106.8456, -6.9175, 107.6191, 116000, 2000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := CalculateHaversineDistance(c.lat1, c.lon1, c.lat2, c.lon2)
			assert.InDelta(t, c.want, got, c.delta)
		})
	}
}

func TestCalculateHaversineDistance_Symmetric(t *testing.T) {
	a := CalculateHaversineDistance(-6.2, 106.8, -6.21, 106.81)
	b := CalculateHaversineDistance(-6.21, 106.81, -6.2, 106.8)
	assert.InDelta(t, a, b, 1e-9)
}

func TestCalculateHaversineDistance_Antipodal(t *testing.T) {
	pairs := [][4]float64{
		{-89.98, -180, 89.98, 0},
		{0, 0, 0, 180},
		{45, 90, -45, -90},
	}
	for _, p := range pairs {
		d := CalculateHaversineDistance(p[0], p[1], p[2], p[3])
		assert.False(t, math.IsNaN(d))
		assert.InDelta(t, math.Pi*EarthRadiusMeters, d, 1)
	}
}
