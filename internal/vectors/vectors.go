// Package vectors produces and checks determinism fixtures for the weighted
// shuffle: for a seed and a personalization context, the exact generator
// draws and the exact resulting order of the default pool. Any port that
// reproduces a fixture file bit-for-bit serves the same rail to the same
// session.
package vectors

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/campus-foryou-service/internal/domain"
	"github.com/couchcryptid/campus-foryou-service/internal/sampler"
)

// DrawCount is how many raw generator outputs each vector pins.
const DrawCount = 3

// File is a fixture file.
type File struct {
	Generator string   `json:"generator"`
	Vectors   []Vector `json:"vectors"`
}

// Vector pins one seed and context.
type Vector struct {
	Name      string           `json:"name"`
	Seed      uint32           `json:"seed"`
	Evening   bool             `json:"evening"`
	Favorite  *domain.Category `json:"favorite,omitempty"`
	Reference *domain.LatLng   `json:"reference,omitempty"`
	Draws     []uint32         `json:"draws"`
	Order     []string         `json:"order"`
}

// Context is a named personalization context.
type Context struct {
	Name string
	domain.PersonalizationContext
}

// DefaultSeeds covers the zero remap, the uint32 extremes and a few ordinary values.
var DefaultSeeds = []uint32{0, 1, 7, 42, 99, 2024, 123456789, 4294967295}

// DefaultContexts returns the contexts fixtures are generated for.
func DefaultContexts() []Context {
	southside := domain.LatLng{Lat: 30.6129, Lng: -96.3399}
	dining := domain.CategoryDining
	study := domain.CategoryStudy
	return []Context{
		{Name: "base"},
		{Name: "evening", PersonalizationContext: domain.PersonalizationContext{Evening: true}},
		{Name: "evening-dining-southside", PersonalizationContext: domain.PersonalizationContext{
			Evening: true, Favorite: &dining, Reference: &southside,
		}},
		{Name: "study-southside", PersonalizationContext: domain.PersonalizationContext{
			Favorite: &study, Reference: &southside,
		}},
	}
}

// Generate builds a fixture for every seed and context pair.
func Generate(seeds []uint32, contexts []Context) File {
	f := File{Generator: "mulberry32", Vectors: make([]Vector, 0, len(seeds)*len(contexts))}
	for _, seed := range seeds {
		for _, c := range contexts {
			f.Vectors = append(f.Vectors, Vector{
				Name:      fmt.Sprintf("%s/%d", c.Name, seed),
				Seed:      seed,
				Evening:   c.Evening,
				Favorite:  c.Favorite,
				Reference: c.Reference,
				Draws:     draws(seed),
				Order:     order(seed, c.PersonalizationContext),
			})
		}
	}
	return f
}

// Check recomputes every vector and returns one message per mismatch.
func Check(f File) []string {
	var problems []string
	if f.Generator != "mulberry32" {
		problems = append(problems, fmt.Sprintf("unsupported generator %q", f.Generator))
		return problems
	}
	for _, v := range f.Vectors {
		if len(v.Draws) > 0 {
			got := draws(v.Seed)[:min(len(v.Draws), DrawCount)]
			if !slices.Equal(got, v.Draws[:len(got)]) {
				problems = append(problems, fmt.Sprintf("%s: draws = %v, want %v", v.Name, got, v.Draws))
			}
		}
		pc := domain.PersonalizationContext{Evening: v.Evening, Favorite: v.Favorite, Reference: v.Reference}
		if got := order(v.Seed, pc); !slices.Equal(got, v.Order) {
			problems = append(problems, fmt.Sprintf("%s: order = %v, want %v", v.Name, got, v.Order))
		}
	}
	return problems
}

func draws(seed uint32) []uint32 {
	r := sampler.NewRand(seed)
	out := make([]uint32, DrawCount)
	for i := range out {
		out[i] = r.Uint32()
	}
	return out
}

func order(seed uint32, pc domain.PersonalizationContext) []string {
	items := sampler.WeightedShuffle(domain.ApplyPersonalization(domain.DefaultPool(), pc), seed)
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
