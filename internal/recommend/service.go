// Package recommend assembles the personalized "For You" rail for a session.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/campus-foryou-service/internal/domain"
	"github.com/couchcryptid/campus-foryou-service/internal/geocode"
	"github.com/couchcryptid/campus-foryou-service/internal/observability"
	"github.com/couchcryptid/campus-foryou-service/internal/sampler"
	"github.com/couchcryptid/campus-foryou-service/internal/session"
	"github.com/google/uuid"
)

// DefaultMaxItems is the list length used when a request does not ask for one.
const DefaultMaxItems = 8

// ErrNoSession is returned when a request carries no session id.
var ErrNoSession = errors.New("session id is required")

// ReferenceResolver supplies the location distances are measured from.
type ReferenceResolver interface {
	Reference(ctx context.Context, user *domain.LatLng) (geocode.Reference, error)
}

// ImpressionPublisher receives every served list.
type ImpressionPublisher interface {
	PublishImpression(ctx context.Context, imp domain.Impression) error
}

// Options configures a Service. Zero values select the defaults.
type Options struct {
	MaxItems int
	Location *time.Location
	SeedKey  string
	// Pool overrides the default campus pool.
	Pool []domain.Item
}

// Request asks for one session's rail.
type Request struct {
	SessionID string
	Count     int
	Reference *domain.LatLng
	Favorite  *domain.Category
}

// Recommendation is one served item with its adjusted weight and distance.
type Recommendation struct {
	domain.Item
	Miles    *float64 `json:"miles,omitempty"`
	Distance string   `json:"distance,omitempty"`
}

// Result is a served rail.
type Result struct {
	SessionID string            `json:"session_id"`
	Seed      uint32            `json:"seed"`
	Evening   bool              `json:"evening"`
	Favorite  *domain.Category  `json:"favorite,omitempty"`
	Reference geocode.Reference `json:"reference"`
	Items     []Recommendation  `json:"items"`
}

// Service combines the session seed, personalization and the weighted
// shuffle into a stable-per-session ordering.
type Service struct {
	store     session.Store
	seeds     *session.Seeds
	refs      ReferenceResolver
	publisher ImpressionPublisher
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Service. publisher may be nil.
func New(store session.Store, seeds *session.Seeds, refs ReferenceResolver, publisher ImpressionPublisher, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.SeedKey == "" {
		opts.SeedKey = session.DefaultSeedKey
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		store:     store,
		seeds:     seeds,
		refs:      refs,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the fallback reference has been resolved
// at least once.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("reference location has not been resolved yet")
	}
	return nil
}

// Warm resolves the fallback reference so the first request does not pay for it.
func (s *Service) Warm(ctx context.Context) error {
	ref, err := s.refs.Reference(ctx, nil)
	if err != nil {
		return fmt.Errorf("warm reference: %w", err)
	}
	s.ready.Store(true)
	s.logger.Info("reference location resolved",
		"lat", ref.Coord.Lat, "lng", ref.Coord.Lng, "advisory", ref.Advisory)
	return nil
}

// Recommend returns the session's rail. The order is stable for a session
// until Refresh is called, apart from changes in context (time of day,
// reference, favorite).
func (s *Service) Recommend(ctx context.Context, req Request) (Result, error) {
	if req.SessionID == "" {
		return Result{}, ErrNoSession
	}
	store := session.Scoped(s.store, req.SessionID)

	seed := s.seeds.Get(ctx, store, s.opts.SeedKey)

	favorite := req.Favorite
	if favorite == nil {
		favorite = session.FavoriteCategory(ctx, store)
	}

	ref, err := s.refs.Reference(ctx, req.Reference)
	if err != nil {
		return Result{}, fmt.Errorf("resolve reference: %w", err)
	}
	if ref.Status == geocode.StatusFallback {
		s.ready.Store(true)
	}

	now := domain.Now(s.opts.Location)
	pc := domain.NewPersonalizationContext(now, &ref.Coord, favorite)

	pool := s.opts.Pool
	if pool == nil {
		pool = domain.DefaultPool()
	}
	shuffled := sampler.WeightedShuffle(domain.ApplyPersonalization(pool, pc), seed)

	count := req.Count
	if count <= 0 {
		count = s.opts.MaxItems
	}
	top := sampler.PickTop(shuffled, count)

	result := Result{
		SessionID: req.SessionID,
		Seed:      seed,
		Evening:   pc.Evening,
		Favorite:  favorite,
		Reference: ref,
		Items:     make([]Recommendation, 0, len(top)),
	}
	for _, item := range top {
		result.Items = append(result.Items, withDistance(item, ref.Coord))
	}

	s.metrics.RecommendationsServed.Inc()
	s.metrics.RecommendationSize.Observe(float64(len(result.Items)))
	s.publish(ctx, result, now)

	return result, nil
}

// Refresh reseeds the session so the next Recommend returns a new order.
func (s *Service) Refresh(ctx context.Context, sessionID string) (uint32, error) {
	if sessionID == "" {
		return 0, ErrNoSession
	}
	seed := s.seeds.Reseed(ctx, session.Scoped(s.store, sessionID), s.opts.SeedKey)
	s.metrics.Reseeds.Inc()
	s.logger.Debug("session reseeded", "session_id", sessionID, "seed", seed)
	return seed, nil
}

// SetFavorite stores the session's favorite category. An empty category
// clears it; an unknown one fails with domain.ErrInvalidCategory.
func (s *Service) SetFavorite(ctx context.Context, sessionID, category string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if err := session.SetFavoriteCategory(ctx, session.Scoped(s.store, sessionID), category); err != nil {
		return fmt.Errorf("set favorite: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, result Result, now time.Time) {
	if s.publisher == nil {
		return
	}
	imp := domain.Impression{
		ID:              uuid.NewString(),
		SessionID:       result.SessionID,
		Seed:            result.Seed,
		ItemIDs:         make([]string, len(result.Items)),
		Evening:         result.Evening,
		ReferenceStatus: string(result.Reference.Status),
		ServedAt:        now.UTC(),
	}
	for i, item := range result.Items {
		imp.ItemIDs[i] = item.ID
	}
	if result.Favorite != nil {
		imp.Favorite = string(*result.Favorite)
	}

	if err := s.publisher.PublishImpression(ctx, imp); err != nil {
		s.metrics.ImpressionsPublished.WithLabelValues("error").Inc()
		s.logger.Warn("publish impression failed", "session_id", result.SessionID, "error", err)
		return
	}
	s.metrics.ImpressionsPublished.WithLabelValues("success").Inc()
}

func withDistance(item domain.Item, ref domain.LatLng) Recommendation {
	rec := Recommendation{Item: item}
	if item.Coord == nil {
		return rec
	}
	miles := domain.MetersToMiles(domain.HaversineMeters(ref, *item.Coord))
	if math.IsNaN(miles) || math.IsInf(miles, 0) {
		return rec
	}
	rec.Miles = &miles
	rec.Distance = domain.FormatMiles(miles)
	return rec
}
