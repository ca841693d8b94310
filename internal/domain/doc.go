// Package domain models the campus "For You" rail: the recommendable places,
// the context used to personalize them, and the geocoding port used to place
// them on the map.
//
// # Item Pool
//
// The rail draws from a small, fixed pool of campus places (study spots,
// dining halls, libraries, rec facilities, events). Each [Item] may carry an
// explicit base weight; an absent weight means 1. A weight of exactly 0 is
// kept as 0. Such an item is drawn after every positive-weight item, unless a
// draw lands exactly on zero while it heads the remaining pool.
//
// # Personalization
//
// [ApplyPersonalization] derives an adjusted pool per request. Boosts are
// additive fractions of the base weight and stack:
//
//	evening (hour >= 17 or < 5) and category Dining or Study   +0.15 x base
//	category equals the caller's favorite category             +0.20 x base
//	within 0.3 mi of the reference coordinate                  +0.25 x base
//
// An item matching all three ends at 1.60 x base. The source pool is never
// mutated.
//
// # Distances
//
// Distances are great-circle (haversine) over a spherical earth of radius
// 6,371,000 m and reported in statute miles (1 mi = 1609.344 m). Labels are
// rounded to one decimal; anything under 0.05 mi renders as "<0.1 mi".
//
// # Geocoding
//
// [Geocoder] resolves free-text place names. Implementations return
// [ErrNotFound] for a definitive miss (cacheable for the session), any other
// error for a transient failure, and the context error on cancellation.
package domain
