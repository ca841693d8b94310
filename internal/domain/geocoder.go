package domain

import (
	"context"
	"errors"
)

// ErrNotFound reports that a provider definitively could not resolve a name.
var ErrNotFound = errors.New("geocode: not found")

// Geocoder resolves place names to coordinates.
type Geocoder interface {
	// Geocode converts a free-text place name to a coordinate.
	Geocode(ctx context.Context, name string) (LatLng, error)
}
