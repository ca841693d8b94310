package domain

import "time"

// Boost fractions and thresholds for ApplyPersonalization.
const (
	EveningBoost   = 0.15
	FavoriteBoost  = 0.20
	ProximityBoost = 0.25

	// ProximityMiles is the exclusive upper bound for the proximity boost.
	ProximityMiles = 0.3

	eveningStartHour = 17
	eveningEndHour   = 5
)

// PersonalizationContext is computed per request and never persisted.
type PersonalizationContext struct {
	Evening   bool
	Reference *LatLng
	Favorite  *Category
}

// IsEvening reports whether t falls in the evening bucket, using t's location.
func IsEvening(t time.Time) bool {
	h := t.Hour()
	return h >= eveningStartHour || h < eveningEndHour
}

// NewPersonalizationContext builds a context for the given wall-clock time.
func NewPersonalizationContext(now time.Time, reference *LatLng, favorite *Category) PersonalizationContext {
	return PersonalizationContext{
		Evening:   IsEvening(now),
		Reference: reference,
		Favorite:  favorite,
	}
}

func eveningFavored(c Category) bool {
	return c == CategoryDining || c == CategoryStudy
}

// ApplyPersonalization returns a new pool with per-item weights boosted for
// contextual fit. The input slice and its items are left untouched.
func ApplyPersonalization(items []Item, pc PersonalizationContext) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		base := item.BaseWeight()
		adjusted := base

		if pc.Evening && eveningFavored(item.Category) {
			adjusted += base * EveningBoost
		}
		if pc.Favorite != nil && item.Category == *pc.Favorite {
			adjusted += base * FavoriteBoost
		}
		if pc.Reference != nil && item.Coord != nil {
			miles := MetersToMiles(HaversineMeters(*pc.Reference, *item.Coord))
			if miles < ProximityMiles {
				adjusted += base * ProximityBoost
			}
		}

		out = append(out, item.WithWeight(adjusted))
	}
	return out
}
