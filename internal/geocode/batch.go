package geocode

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/campus-foryou-service/internal/domain"
)

// AdvisoryMissingKey is reported when the anchor falls back because no API key is configured.
const AdvisoryMissingKey = "Missing Google Maps API key for fallback geocoding."

// Batch is the result of resolving several names at once.
type Batch struct {
	// Coords has one entry per distinct requested name plus the anchor; nil means unresolved.
	Coords     map[string]*domain.LatLng `json:"coords"`
	Unresolved []string                  `json:"unresolved"`
	Advisory   string                    `json:"advisory,omitempty"`
}

// Many resolves names sequentially in order, skipping blanks and repeats.
// Coords is keyed by the names exactly as given.
// The anchor is always resolved first so distances can be computed even when
// the caller did not ask for it; its entry falls back to the fixed coordinate.
// Cancellation aborts the batch.
func (c *Cache) Many(ctx context.Context, names []string) (Batch, error) {
	ordered := dedupe(append([]string{c.anchor}, names...))
	batch := Batch{
		Coords:     make(map[string]*domain.LatLng, len(ordered)),
		Unresolved: []string{},
	}

	for _, name := range ordered {
		if name == c.anchor {
			coord, advisory, err := c.Anchor(ctx)
			if err != nil {
				return Batch{}, err
			}
			batch.Coords[name] = &coord
			batch.Advisory = advisory
			continue
		}
		coord, err := c.Lookup(ctx, name)
		if err != nil {
			return Batch{}, err
		}
		batch.Coords[name] = coord
		if coord == nil {
			batch.Unresolved = append(batch.Unresolved, name)
		}
	}
	return batch, nil
}

// Anchor resolves the anchor place. When it cannot be resolved the fallback
// coordinate is returned with an advisory explaining why.
func (c *Cache) Anchor(ctx context.Context) (domain.LatLng, string, error) {
	if c.provider == nil {
		c.metrics.GeocodeFallbacks.Inc()
		return c.fallback, AdvisoryMissingKey, nil
	}
	coord, err := c.Lookup(ctx, c.anchor)
	if err != nil {
		return domain.LatLng{}, "", err
	}
	if coord == nil {
		c.metrics.GeocodeFallbacks.Inc()
		c.logger.Info("anchor not resolvable, using fallback", "anchor", c.anchor)
		return c.fallback, fmt.Sprintf("Unable to geocode %s fallback.", c.anchor), nil
	}
	return *coord, "", nil
}

// ReferenceStatus says where a reference coordinate came from.
type ReferenceStatus string

const (
	// StatusGranted means the caller supplied its own position.
	StatusGranted ReferenceStatus = "granted"
	// StatusFallback means the anchor (or its fixed fallback) was used.
	StatusFallback ReferenceStatus = "fallback"
)

// Reference is the location distances are measured from.
type Reference struct {
	Status   ReferenceStatus `json:"status"`
	Coord    domain.LatLng   `json:"coord"`
	Advisory string          `json:"advisory,omitempty"`
}

// Reference returns user when known, otherwise the anchor.
func (c *Cache) Reference(ctx context.Context, user *domain.LatLng) (Reference, error) {
	if user != nil {
		return Reference{Status: StatusGranted, Coord: *user}, nil
	}
	coord, advisory, err := c.Anchor(ctx)
	if err != nil {
		return Reference{}, err
	}
	return Reference{Status: StatusFallback, Coord: coord, Advisory: advisory}, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
