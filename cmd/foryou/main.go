package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	badgerstore "github.com/couchcryptid/campus-foryou-service/internal/adapter/badger"
	"github.com/couchcryptid/campus-foryou-service/internal/adapter/google"
	httpadapter "github.com/couchcryptid/campus-foryou-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/campus-foryou-service/internal/adapter/kafka"
	"github.com/couchcryptid/campus-foryou-service/internal/config"
	"github.com/couchcryptid/campus-foryou-service/internal/domain"
	"github.com/couchcryptid/campus-foryou-service/internal/geocode"
	"github.com/couchcryptid/campus-foryou-service/internal/observability"
	"github.com/couchcryptid/campus-foryou-service/internal/recommend"
	"github.com/couchcryptid/campus-foryou-service/internal/session"
	"github.com/couchcryptid/storm-data-shared/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, closer, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open session store", "backend", cfg.SessionBackend, "error", err)
		os.Exit(1)
	}

	// Geocoding is feature-flagged via GEOCODE_ENABLED / GOOGLE_MAPS_API_KEY.
	var provider domain.Geocoder
	if cfg.GeocodeEnabled {
		provider = google.NewClient(cfg.GoogleMapsAPIKey, cfg.GeocodeBaseURL, cfg.GeocodeTimeout, metrics, logger)
		logger.Info("google geocoding enabled", "timeout", cfg.GeocodeTimeout)
	} else {
		logger.Info("google geocoding disabled, anchor will use the fallback coordinate")
	}
	geo := newGeocodeCache(cfg, provider, logger, metrics)

	var publisher recommend.ImpressionPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("impression publishing enabled", "topic", cfg.KafkaImpressionsTopic, "brokers", cfg.KafkaBrokers)
	}

	seeds := session.NewSeeds(domain.Clock(), logger, metrics)
	svc := recommend.New(store, seeds, geo, publisher, recommend.Options{
		MaxItems: cfg.MaxItems,
		Location: cfg.Location,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc, geo, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Resolve the anchor in the background; readiness flips once it succeeds.
	go warm(ctx, svc, logger)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closer.Close(); err != nil {
		logger.Error("session store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func openStore(cfg *config.Config, logger *slog.Logger) (session.Store, io.Closer, error) {
	if cfg.SessionBackend == config.BackendBadger {
		s, err := badgerstore.Open(cfg.BadgerPath, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("badger session store opened", "path", cfg.BadgerPath)
		return s, s, nil
	}
	s := session.NewMemoryStore()
	return s, s, nil
}

// newGeocodeCache builds the geocode cache on its own in-memory store so cached
// results, including remembered misses, never survive a restart.
func newGeocodeCache(cfg *config.Config, provider domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *geocode.Cache {
	return geocode.New(geocode.Options{
		Provider: provider,
		Store:    session.NewMemoryStore(),
		Anchor:   cfg.AnchorName,
		Fallback: &domain.LatLng{Lat: cfg.FallbackLat, Lng: cfg.FallbackLng},
		Logger:   logger,
		Metrics:  metrics,
	})
}

func warm(ctx context.Context, svc *recommend.Service, logger *slog.Logger) {
	backoff := 200 * time.Millisecond
	maxBackoff := 30 * time.Second
	for {
		err := svc.Warm(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		logger.Warn("reference warm-up failed, retrying", "error", err, "backoff", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}
