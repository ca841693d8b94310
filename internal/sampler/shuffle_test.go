package sampler

import (
	"math"
	"testing"

	"github.com/couchcryptid/campus-foryou-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weighted struct {
	id string
	w  *float64
}

func (w weighted) ItemWeight() (float64, bool) {
	if w.w == nil {
		return 0, false
	}
	return *w.w, true
}

func f(v float64) *float64 { return &v }

func ids[T interface{ key() string }](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.key()
	}
	return out
}

func (w weighted) key() string { return w.id }

type poolItem struct{ domain.Item }

func (p poolItem) key() string { return p.ID }

func defaultPool() []poolItem {
	pool := domain.DefaultPool()
	out := make([]poolItem, len(pool))
	for i, it := range pool {
		out[i] = poolItem{it}
	}
	return out
}

// Permutations of the default pool produced by the JavaScript client.
var goldenShuffles = map[uint32][]string{
	0: {"zachry-pods", "sbisa", "evans-quiet", "msc-lounge", "west-campus-library", "peap-building", "msc-career-booths", "southside-commons", "rec-center"},
	1: {"msc-lounge", "zachry-pods", "rec-center", "msc-career-booths", "peap-building", "sbisa", "southside-commons", "west-campus-library", "evans-quiet"},
	42: {"msc-lounge", "southside-commons", "msc-career-booths", "rec-center", "zachry-pods", "sbisa", "evans-quiet", "peap-building", "west-campus-library"},
	123456789: {"evans-quiet", "msc-career-booths", "west-campus-library", "zachry-pods", "southside-commons", "msc-lounge", "peap-building", "sbisa", "rec-center"},
	4294967295: {"msc-career-booths", "evans-quiet", "msc-lounge", "peap-building", "west-campus-library", "southside-commons", "sbisa", "zachry-pods", "rec-center"},
}

func TestWeightedShuffle_MatchesReference(t *testing.T) {
	for seed, want := range goldenShuffles {
		got := WeightedShuffle(defaultPool(), seed)
		assert.Equal(t, want, ids(got), "seed %d", seed)
	}
}

func TestWeightedShuffle_PersonalizedPoolMatchesReference(t *testing.T) {
	ref := domain.LatLng{Lat: 30.6129, Lng: -96.3399}
	fav := domain.CategoryDining
	personalized := domain.ApplyPersonalization(domain.DefaultPool(), domain.PersonalizationContext{
		Evening:   true,
		Reference: &ref,
		Favorite:  &fav,
	})

	got := WeightedShuffle(personalized, 42)

	gotIDs := make([]string, len(got))
	for i, it := range got {
		gotIDs[i] = it.ID
	}
	assert.Equal(t, []string{
		"msc-lounge", "southside-commons", "msc-career-booths", "rec-center", "zachry-pods",
		"sbisa", "evans-quiet", "peap-building", "west-campus-library",
	}, gotIDs)
}

func TestWeightedShuffle_Deterministic(t *testing.T) {
	a := WeightedShuffle(defaultPool(), 2024)
	b := WeightedShuffle(defaultPool(), 2024)
	assert.Equal(t, ids(a), ids(b))
}

func TestWeightedShuffle_IsPermutation(t *testing.T) {
	pool := defaultPool()
	for seed := uint32(0); seed < 200; seed++ {
		got := WeightedShuffle(pool, seed)
		require.Len(t, got, len(pool))
		assert.ElementsMatch(t, ids(pool), ids(got), "seed %d", seed)
	}
}

func TestWeightedShuffle_ZeroWeightsIncluded(t *testing.T) {
	items := []weighted{{id: "a"}, {id: "b", w: f(2)}, {id: "c", w: f(0)}, {id: "d", w: f(3)}}

	assert.Equal(t, []string{"a", "b", "d", "c"}, ids(WeightedShuffle(items, 7)))
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(WeightedShuffle(items, 99)))
}

func TestWeightedShuffle_AllZeroWeights(t *testing.T) {
	items := []weighted{{id: "a", w: f(0)}, {id: "b", w: f(0)}, {id: "c", w: f(0)}}

	// A zero total always lands on the head of the remaining pool.
	assert.Equal(t, []string{"a", "b", "c"}, ids(WeightedShuffle(items, 5)))
}

func TestWeightedShuffle_Empty(t *testing.T) {
	got := WeightedShuffle([]weighted{}, 1)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, WeightedShuffle[weighted](nil, 1))
}

func TestWeightedShuffle_SingleItem(t *testing.T) {
	got := WeightedShuffle([]weighted{{id: "only", w: f(0)}}, 3)
	assert.Equal(t, []string{"only"}, ids(got))
}

func TestWeightedShuffle_MalformedWeights(t *testing.T) {
	items := []weighted{
		{id: "neg", w: f(-5)},
		{id: "nan", w: f(math.NaN())},
		{id: "inf", w: f(math.Inf(1))},
		{id: "ok", w: f(1)},
	}

	got := WeightedShuffle(items, 11)

	require.Len(t, got, 4)
	// Only "ok" carries positive weight, so it is always drawn first.
	assert.Equal(t, "ok", got[0].id)
	assert.ElementsMatch(t, []string{"neg", "nan", "inf", "ok"}, ids(got))
}

func TestWeightedShuffle_HugeWeightsTerminate(t *testing.T) {
	items := []weighted{{id: "a", w: f(math.MaxFloat64)}, {id: "b", w: f(math.MaxFloat64)}}

	got := WeightedShuffle(items, 1)

	assert.ElementsMatch(t, []string{"a", "b"}, ids(got))
}

func TestWeightedShuffle_DoesNotMutateInput(t *testing.T) {
	pool := defaultPool()
	before := ids(pool)

	_ = WeightedShuffle(pool, 9)

	assert.Equal(t, before, ids(pool))
}

func TestWeightedShuffle_HeavierItemsLeadMoreOften(t *testing.T) {
	items := []weighted{{id: "light", w: f(1)}, {id: "heavy", w: f(9)}}

	heavyFirst := 0
	for seed := uint32(1); seed <= 1000; seed++ {
		if WeightedShuffle(items, seed)[0].id == "heavy" {
			heavyFirst++
		}
	}
	assert.Greater(t, heavyFirst, 800)
}

func TestPickTop(t *testing.T) {
	seq := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{}, PickTop(seq, 0))
	assert.Equal(t, []int{}, PickTop(seq, -3))
	assert.Equal(t, []int{1, 2}, PickTop(seq, 2))
	assert.Equal(t, seq, PickTop(seq, 5))
	assert.Equal(t, seq, PickTop(seq, 50))
	assert.Equal(t, []int{}, PickTop([]int(nil), 4))
}

func TestPickTop_ReturnsCopy(t *testing.T) {
	seq := []int{1, 2, 3}

	full := PickTop(seq, 10)
	full[0] = 99
	head := PickTop(seq, 2)
	head[1] = 42

	assert.Equal(t, []int{1, 2, 3}, seq)
}
