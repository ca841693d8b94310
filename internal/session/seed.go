package session

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"io"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/campus-foryou-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultSeedKey is the stream key used by the "For You" rail.
const DefaultSeedKey = "forYouSeed"

// Seeds manages session-stable seeds for named randomization streams.
// Storage failures never reach the caller: they are logged and the call
// falls back to a seed that lives only for that call.
type Seeds struct {
	entropy io.Reader
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSeeds creates a seed manager drawing from crypto/rand.
func NewSeeds(clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Seeds {
	return &Seeds{
		entropy: rand.Reader,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Get returns the seed stored under key, creating and persisting one if
// none is stored or the stored value is not an integer.
func (s *Seeds) Get(ctx context.Context, store Store, key string) uint32 {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("unable to read session seed", "key", key, "error", err)
		s.metrics.StoreErrors.WithLabelValues("get").Inc()
	} else if ok {
		if seed, perr := parseSeed(raw); perr == nil {
			return seed
		}
		s.logger.Debug("ignoring malformed session seed", "key", key, "value", raw)
	}
	return s.Reseed(ctx, store, key)
}

// Reseed generates a new seed, stores it under key and returns it.
func (s *Seeds) Reseed(ctx context.Context, store Store, key string) uint32 {
	seed := s.generate()
	if err := store.Set(ctx, key, strconv.FormatUint(uint64(seed), 10)); err != nil {
		s.logger.Warn("unable to store session seed", "key", key, "error", err)
		s.metrics.StoreErrors.WithLabelValues("set").Inc()
	}
	return seed
}

func (s *Seeds) generate() uint32 {
	var buf [4]byte
	if _, err := io.ReadFull(s.entropy, buf[:]); err == nil {
		if seed := binary.LittleEndian.Uint32(buf[:]); seed != 0 {
			return seed
		}
	} else {
		s.logger.Warn("secure seed source unavailable, using clock", "error", err)
	}
	// Time fallback in milliseconds, truncated to 32 bits.
	seed := uint32(s.clock.Now().UnixMilli())
	if seed == 0 {
		seed = 1
	}
	return seed
}

// parseSeed accepts any decimal integer and keeps its low 32 bits.
func parseSeed(raw string) (uint32, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
