package sampler

import "math"

// HasWeight is implemented by anything the sampler can rank. ok=false means no
// weight was declared and the item counts as weight 1.
type HasWeight interface {
	ItemWeight() (w float64, ok bool)
}

type entry[T any] struct {
	item   T
	weight float64
}

// normalizeWeight applies the defaulting policy: absent -> 1; negative, NaN
// or infinite -> 0. Zero stays zero.
func normalizeWeight(w float64, ok bool) float64 {
	if !ok {
		return 1
	}
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}

// WeightedShuffle returns a deterministic permutation of items: weighted
// sampling without replacement driven by a generator seeded with seed.
// The same seed and the same ordered pool always yield the same order.
// Zero-weight items are still included, after every positive-weight item
// has been drawn or when the draw lands on them exactly.
func WeightedShuffle[T HasWeight](items []T, seed uint32) []T {
	result := make([]T, 0, len(items))
	if len(items) == 0 {
		return result
	}

	pool := make([]entry[T], len(items))
	for i, item := range items {
		pool[i] = entry[T]{item: item, weight: normalizeWeight(item.ItemWeight())}
	}

	rng := NewRand(seed)
	for len(pool) > 0 {
		var total float64
		for _, e := range pool {
			total += e.weight
		}

		// When rounding leaves target above zero after the last entry nothing
		// is picked and the next draw decides, matching other ports.
		target := rng.Float64() * total
		picked := -1
		for i, e := range pool {
			target -= e.weight
			if target <= 0 {
				picked = i
				break
			}
		}
		if picked < 0 && (math.IsInf(target, 0) || math.IsNaN(target)) {
			// Weights summed past float64 range; take the tail so the loop terminates.
			picked = len(pool) - 1
		}
		if picked >= 0 {
			result = append(result, pool[picked].item)
			pool = append(pool[:picked], pool[picked+1:]...)
		}
	}
	return result
}

// PickTop returns the first n items of items, in order, as a new slice.
// n <= 0 yields an empty slice.
func PickTop[T any](items []T, n int) []T {
	if n <= 0 {
		return []T{}
	}
	if n > len(items) {
		n = len(items)
	}
	out := make([]T, n)
	copy(out, items[:n])
	return out
}
