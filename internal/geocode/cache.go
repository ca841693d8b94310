// Package geocode resolves campus place names to coordinates through a
// two-tier cache (process memory, then the session store) in front of a
// domain.Geocoder, and supplies the anchor fallback used as the default
// reference location.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/couchcryptid/campus-foryou-service/internal/domain"
	"github.com/couchcryptid/campus-foryou-service/internal/observability"
	"github.com/couchcryptid/campus-foryou-service/internal/session"
	"github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSessionKey is the store key holding the persisted name -> coordinate map.
	DefaultSessionKey = "aggie-map-geocoder-cache"
	// DefaultAnchor is the place used as the reference location when the user's own is unknown.
	DefaultAnchor = "Southside Commons, College Station, TX"
)

// DefaultFallback is substituted for the anchor when it cannot be geocoded.
var DefaultFallback = domain.LatLng{Lat: 30.6079, Lng: -96.3411}

// Options configures a Cache. A nil Provider means no API key is configured.
// A nil Store disables the session tier. Entries are meant to live no longer
// than the process, so Store should not be a durable backend.
type Options struct {
	Provider   domain.Geocoder
	Store      session.Store
	SessionKey string
	Anchor     string
	Fallback   *domain.LatLng
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// Cache resolves names memory first, then session store, then provider.
// A cached nil coordinate is a remembered "not found".
type Cache struct {
	provider   domain.Geocoder
	store      session.Store
	sessionKey string
	anchor     string
	fallback   domain.LatLng
	logger     *slog.Logger
	metrics    *observability.Metrics

	memory *gocache.Cache
	flight singleflight.Group
	// mu serializes read-merge-write of the session blob.
	mu sync.Mutex
}

// New creates a Cache with an empty memory tier.
func New(opts Options) *Cache {
	c := &Cache{
		provider:   opts.Provider,
		store:      opts.Store,
		sessionKey: opts.SessionKey,
		anchor:     opts.Anchor,
		fallback:   DefaultFallback,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		memory:     gocache.New(gocache.NoExpiration, 0),
	}
	if c.sessionKey == "" {
		c.sessionKey = DefaultSessionKey
	}
	if c.anchor == "" {
		c.anchor = DefaultAnchor
	}
	if opts.Fallback != nil {
		c.fallback = *opts.Fallback
	}
	if c.logger == nil {
		c.logger = observability.DiscardLogger()
	}
	if c.metrics == nil {
		c.metrics = observability.NewMetricsForTesting()
	}
	if c.provider != nil {
		c.metrics.GeocodeEnabled.Set(1)
	} else {
		c.metrics.GeocodeEnabled.Set(0)
	}
	return c
}

// AnchorName returns the configured anchor place name.
func (c *Cache) AnchorName() string { return c.anchor }

// Lookup resolves name to a coordinate, or nil when it is unknown. Names are
// cache keys verbatim: case and surrounding whitespace are significant.
//
// Permanent misses are cached in both tiers. Transient provider failures
// return nil without caching so a later call retries. Caller cancellation is
// returned as an error matching context.Canceled.
func (c *Cache) Lookup(ctx context.Context, name string) (*domain.LatLng, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("geocode %q: %w", name, err)
	}

	if coord, ok := c.fromMemory(name); ok {
		c.metrics.GeocodeCache.WithLabelValues("memory", "hit").Inc()
		return coord, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("memory", "miss").Inc()

	if coord, ok := c.fromSession(ctx, name); ok {
		c.metrics.GeocodeCache.WithLabelValues("session", "hit").Inc()
		c.memory.Set(name, coord, gocache.NoExpiration)
		return clone(coord), nil
	}
	c.metrics.GeocodeCache.WithLabelValues("session", "miss").Inc()

	if c.provider == nil {
		return nil, nil
	}

	v, err, _ := c.flight.Do(name, func() (any, error) {
		if coord, ok := c.fromMemory(name); ok {
			return coord, nil
		}
		return c.resolve(ctx, name)
	})
	if err != nil {
		// A shared flight canceled by another caller is a transient miss for us.
		if ctx.Err() == nil {
			return nil, nil
		}
		return nil, err
	}
	coord, _ := v.(*domain.LatLng)
	return clone(coord), nil
}

func (c *Cache) resolve(ctx context.Context, name string) (*domain.LatLng, error) {
	coord, err := c.provider.Geocode(ctx, name)
	switch {
	case err == nil:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		c.remember(ctx, name, &coord)
		return &coord, nil
	case errors.Is(err, domain.ErrNotFound):
		c.metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		c.logger.Debug("geocode not found", "name", name, "error", err)
		c.remember(ctx, name, nil)
		return nil, nil
	case errors.Is(err, context.Canceled):
		c.metrics.GeocodeRequests.WithLabelValues("canceled").Inc()
		return nil, fmt.Errorf("geocode %q: %w", name, err)
	default:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		c.logger.Warn("geocode failed, will retry on next lookup", "name", name, "error", err)
		return nil, nil
	}
}

func (c *Cache) remember(ctx context.Context, name string, coord *domain.LatLng) {
	c.memory.Set(name, coord, gocache.NoExpiration)
	c.writeSession(ctx, name, coord)
}

func (c *Cache) fromMemory(name string) (*domain.LatLng, bool) {
	v, ok := c.memory.Get(name)
	if !ok {
		return nil, false
	}
	coord, _ := v.(*domain.LatLng)
	return clone(coord), true
}

func (c *Cache) fromSession(ctx context.Context, name string) (*domain.LatLng, bool) {
	if c.store == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.readBlob(ctx)
	if err != nil {
		return nil, false
	}
	coord, ok := entries[name]
	return coord, ok
}

func (c *Cache) writeSession(ctx context.Context, name string, coord *domain.LatLng) {
	if c.store == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.readBlob(ctx)
	if err != nil {
		return
	}
	entries[name] = coord
	raw, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warn("encode geocode session cache", "error", err)
		return
	}
	if err := c.store.Set(ctx, c.sessionKey, string(raw)); err != nil {
		c.metrics.StoreErrors.WithLabelValues("set").Inc()
		c.logger.Warn("write geocode session cache, continuing in memory only", "key", c.sessionKey, "error", err)
	}
}

// readBlob returns the persisted entries. A corrupt blob is removed and
// reported as empty. Callers must hold c.mu.
func (c *Cache) readBlob(ctx context.Context) (map[string]*domain.LatLng, error) {
	raw, ok, err := c.store.Get(ctx, c.sessionKey)
	if err != nil {
		c.metrics.StoreErrors.WithLabelValues("get").Inc()
		c.logger.Warn("read geocode session cache", "key", c.sessionKey, "error", err)
		return nil, err
	}
	entries := make(map[string]*domain.LatLng)
	if !ok || raw == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		c.logger.Warn("discarding corrupt geocode session cache", "key", c.sessionKey, "error", err)
		if rmErr := c.store.Remove(ctx, c.sessionKey); rmErr != nil {
			c.metrics.StoreErrors.WithLabelValues("remove").Inc()
		}
		return make(map[string]*domain.LatLng), nil
	}
	return entries, nil
}

// Clear drops the memory tier. The session tier is left intact.
func (c *Cache) Clear() {
	c.memory.Flush()
}

func clone(coord *domain.LatLng) *domain.LatLng {
	if coord == nil {
		return nil
	}
	cp := *coord
	return &cp
}
