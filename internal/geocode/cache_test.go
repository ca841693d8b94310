package geocode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/campus-foryou-service/internal/domain"
	"github.com/couchcryptid/campus-foryou-service/internal/observability"
	"github.com/couchcryptid/campus-foryou-service/internal/session"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	evans     = domain.LatLng{Lat: 30.6163, Lng: -96.3381}
	southside = domain.LatLng{Lat: 30.6080, Lng: -96.3420}
)

type fakeGeocoder struct {
	mu     sync.Mutex
	calls  map[string]int
	coords map[string]domain.LatLng
	errs   map[string]error
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		calls:  make(map[string]int),
		coords: make(map[string]domain.LatLng),
		errs:   make(map[string]error),
	}
}

func (f *fakeGeocoder) Geocode(ctx context.Context, name string) (domain.LatLng, error) {
	f.mu.Lock()
	f.calls[name]++
	coord, ok := f.coords[name]
	err := f.errs[name]
	f.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.LatLng{}, ctxErr
	}
	if err != nil {
		return domain.LatLng{}, err
	}
	if !ok {
		return domain.LatLng{}, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}
	return coord, nil
}

func (f *fakeGeocoder) callsFor(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeGeocoder) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("quota exceeded")
}
func (failingStore) Set(context.Context, string, string) error { return errors.New("quota exceeded") }
func (failingStore) Remove(context.Context, string) error     { return errors.New("quota exceeded") }

func newTestCache(provider domain.Geocoder, store session.Store) *Cache {
	return New(Options{
		Provider: provider,
		Store:    store,
		Metrics:  observability.NewMetricsForTesting(),
		Logger:   observability.DiscardLogger(),
	})
}

func TestLookup_CachesHit(t *testing.T) {
	geo := newFakeGeocoder()
	geo.coords["Evans Library"] = evans
	c := newTestCache(geo, session.NewMemoryStore())

	first, err := c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	second, err := c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)

	require.NotNil(t, first)
	assert.Equal(t, evans, *first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, geo.callsFor("Evans Library"))
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeCache.WithLabelValues("memory", "hit")), 0)
}

func TestLookup_CachesNotFound(t *testing.T) {
	geo := newFakeGeocoder()
	store := session.NewMemoryStore()
	c := newTestCache(geo, store)

	for range 3 {
		got, err := c.Lookup(context.Background(), "Atlantis")
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, 1, geo.callsFor("Atlantis"))

	raw, ok, err := store.Get(context.Background(), DefaultSessionKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"Atlantis":null}`, raw)
}

func TestLookup_TransientNotCached(t *testing.T) {
	geo := newFakeGeocoder()
	geo.errs["Evans Library"] = errors.New("connection reset")
	store := session.NewMemoryStore()
	c := newTestCache(geo, store)

	got, err := c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, ok, err := store.Get(context.Background(), DefaultSessionKey)
	require.NoError(t, err)
	assert.False(t, ok)

	geo.mu.Lock()
	delete(geo.errs, "Evans Library")
	geo.coords["Evans Library"] = evans
	geo.mu.Unlock()

	got, err = c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, evans, *got)
	assert.Equal(t, 2, geo.callsFor("Evans Library"))
}

func TestLookup_DeadlineIsTransient(t *testing.T) {
	geo := newFakeGeocoder()
	geo.coords["Evans Library"] = evans
	c := newTestCache(geo, nil)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	got, err := c.Lookup(ctx, "Evans Library")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestLookup_Canceled(t *testing.T) {
	geo := newFakeGeocoder()
	geo.coords["Evans Library"] = evans
	c := newTestCache(geo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := c.Lookup(ctx, "Evans Library")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.Equal(t, 0, geo.total())
}

func TestLookup_CanceledByProvider(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestCache(geocoderFunc(func(context.Context, string) (domain.LatLng, error) {
		cancel()
		return domain.LatLng{}, context.Canceled
	}), nil)

	_, err := c.Lookup(ctx, "Evans Library")
	assert.ErrorIs(t, err, context.Canceled)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("canceled")), 0)
}

func TestLookup_EmptyName(t *testing.T) {
	geo := newFakeGeocoder()
	c := newTestCache(geo, nil)

	got, err := c.Lookup(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, geo.total())
}

func TestLookup_KeysAreVerbatim(t *testing.T) {
	geo := newFakeGeocoder()
	geo.coords["Evans Library"] = evans
	c := newTestCache(geo, session.NewMemoryStore())

	got, err := c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	require.NotNil(t, got)

	padded, err := c.Lookup(context.Background(), " Evans Library")
	require.NoError(t, err)
	assert.Nil(t, padded)
	assert.Equal(t, 1, geo.callsFor(" Evans Library"))

	lower, err := c.Lookup(context.Background(), "evans library")
	require.NoError(t, err)
	assert.Nil(t, lower)
	assert.Equal(t, 1, geo.callsFor("evans library"))
	assert.Equal(t, 1, geo.callsFor("Evans Library"))
}

func TestLookup_NoProvider(t *testing.T) {
	store := session.NewMemoryStore()
	c := newTestCache(nil, store)

	got, err := c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, ok, err := store.Get(context.Background(), DefaultSessionKey)
	require.NoError(t, err)
	assert.False(t, ok, "misses without a key are not persisted")
	assert.InDelta(t, 0, testutil.ToFloat64(c.metrics.GeocodeEnabled), 0)
}

func TestLookup_NoProviderStillReadsSessionTier(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), DefaultSessionKey, `{"Evans Library":{"lat":30.6163,"lng":-96.3381}}`))
	c := newTestCache(nil, store)

	got, err := c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, evans, *got)
}

func TestLookup_PromotesFromSessionTier(t *testing.T) {
	geo := newFakeGeocoder()
	geo.coords["Evans Library"] = evans
	store := session.NewMemoryStore()

	warm := newTestCache(geo, store)
	_, err := warm.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)

	// A fresh cache over the same store simulates a process reload.
	cold := newTestCache(geo, store)
	got, err := cold.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, evans, *got)
	assert.Equal(t, 1, geo.callsFor("Evans Library"))
	assert.InDelta(t, 1, testutil.ToFloat64(cold.metrics.GeocodeCache.WithLabelValues("session", "hit")), 0)

	_, err = cold.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(cold.metrics.GeocodeCache.WithLabelValues("memory", "hit")), 0)
}

func TestLookup_SessionBlobMerges(t *testing.T) {
	geo := newFakeGeocoder()
	geo.coords["Evans Library"] = evans
	geo.coords["Southside Commons"] = southside
	store := session.NewMemoryStore()
	c := newTestCache(geo, store)

	for _, name := range []string{"Evans Library", "Southside Commons", "Atlantis"} {
		_, err := c.Lookup(context.Background(), name)
		require.NoError(t, err)
	}

	raw, _, err := store.Get(context.Background(), DefaultSessionKey)
	require.NoError(t, err)
	var entries map[string]*domain.LatLng
	require.NoError(t, json.Unmarshal([]byte(raw), &entries))
	assert.Len(t, entries, 3)
	assert.Equal(t, evans, *entries["Evans Library"])
	assert.Equal(t, southside, *entries["Southside Commons"])
	assert.Contains(t, entries, "Atlantis")
	assert.Nil(t, entries["Atlantis"])
}

func TestLookup_CorruptSessionBlob(t *testing.T) {
	geo := newFakeGeocoder()
	geo.coords["Evans Library"] = evans
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), DefaultSessionKey, "{not json"))
	c := newTestCache(geo, store)

	got, err := c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, evans, *got)

	raw, ok, err := store.Get(context.Background(), DefaultSessionKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"Evans Library":{"lat":30.6163,"lng":-96.3381}}`, raw)
}

func TestLookup_StoreUnavailable(t *testing.T) {
	geo := newFakeGeocoder()
	geo.coords["Evans Library"] = evans
	c := newTestCache(geo, failingStore{})

	for range 2 {
		got, err := c.Lookup(context.Background(), "Evans Library")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, evans, *got)
	}
	assert.Equal(t, 1, geo.callsFor("Evans Library"))
	assert.Positive(t, testutil.ToFloat64(c.metrics.StoreErrors.WithLabelValues("get")))
}

func TestLookup_ReturnsCopies(t *testing.T) {
	geo := newFakeGeocoder()
	geo.coords["Evans Library"] = evans
	c := newTestCache(geo, nil)

	first, err := c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	first.Lat = 0

	second, err := c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	assert.Equal(t, evans, *second)
}

func TestLookup_ConcurrentMissesShareOneCall(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	c := newTestCache(geocoderFunc(func(context.Context, string) (domain.LatLng, error) {
		calls.Add(1)
		<-release
		return evans, nil
	}), nil)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*domain.LatLng, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.Lookup(context.Background(), "Evans Library")
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, evans, *r)
	}
}

func TestClear_KeepsSessionTier(t *testing.T) {
	geo := newFakeGeocoder()
	geo.coords["Evans Library"] = evans
	c := newTestCache(geo, session.NewMemoryStore())

	_, err := c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)
	c.Clear()
	_, err = c.Lookup(context.Background(), "Evans Library")
	require.NoError(t, err)

	assert.Equal(t, 1, geo.callsFor("Evans Library"))
}

type geocoderFunc func(ctx context.Context, name string) (domain.LatLng, error)

func (f geocoderFunc) Geocode(ctx context.Context, name string) (domain.LatLng, error) {
	return f(ctx, name)
}
