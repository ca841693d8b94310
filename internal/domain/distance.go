package domain

import (
	"fmt"
	"math"
)

const (
	earthRadiusMeters = 6_371_000.0
	metersPerMile     = 1609.344
)

// LatLng is a WGS-84 latitude/longitude pair in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b LatLng) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Pow(math.Sin(dLng/2), 2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// MetersToMiles converts meters to statute miles.
func MetersToMiles(meters float64) float64 {
	return meters / metersPerMile
}

// FormatMiles renders a distance in miles with one decimal place.
func FormatMiles(miles float64) string {
	if math.IsNaN(miles) || math.IsInf(miles, 0) {
		return "n/a"
	}
	if miles < 0.05 {
		return "<0.1 mi"
	}
	return fmt.Sprintf("%.1f mi", math.Round(miles*10)/10)
}
