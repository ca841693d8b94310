package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	// Embedded zone database so FORYOU_TIMEZONE resolves in minimal images.
	_ "time/tzdata"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Session store backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Google geocoding configuration.
	GoogleMapsAPIKey string
	GeocodeEnabled   bool
	GeocodeTimeout   time.Duration
	GeocodeBaseURL   string
	AnchorName       string
	FallbackLat      float64
	FallbackLng      float64

	// Session storage.
	SessionBackend string
	BadgerPath     string

	// For You rail.
	MaxItems int
	Location *time.Location

	// Impression sink.
	KafkaEnabled          bool
	KafkaBrokers          []string
	KafkaImpressionsTopic string
	KafkaAsync            bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocodeTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("GEOCODE_TIMEOUT", "5s"))
	if err != nil || geocodeTimeout <= 0 {
		return nil, errors.New("invalid GEOCODE_TIMEOUT")
	}

	fallbackLat, err := parseFloat("FALLBACK_LAT", "30.6079", -90, 90)
	if err != nil {
		return nil, err
	}
	fallbackLng, err := parseFloat("FALLBACK_LNG", "-96.3411", -180, 180)
	if err != nil {
		return nil, err
	}

	maxItems, err := strconv.Atoi(sharedcfg.EnvOrDefault("FORYOU_MAX_ITEMS", "8"))
	if err != nil || maxItems < 1 || maxItems > 100 {
		return nil, errors.New("invalid FORYOU_MAX_ITEMS: must be between 1 and 100")
	}

	tz := sharedcfg.EnvOrDefault("FORYOU_TIMEZONE", "America/Chicago")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid FORYOU_TIMEZONE %q: %w", tz, err)
	}

	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	geocodeEnabled := apiKey != ""
	if v := os.Getenv("GEOCODE_ENABLED"); v != "" {
		geocodeEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GoogleMapsAPIKey: apiKey,
		GeocodeEnabled:   geocodeEnabled,
		GeocodeTimeout:   geocodeTimeout,
		GeocodeBaseURL:   os.Getenv("GEOCODE_BASE_URL"),
		AnchorName:       sharedcfg.EnvOrDefault("ANCHOR_NAME", "Southside Commons, College Station, TX"),
		FallbackLat:      fallbackLat,
		FallbackLng:      fallbackLng,

		SessionBackend: sharedcfg.EnvOrDefault("SESSION_BACKEND", BackendMemory),
		BadgerPath:     sharedcfg.EnvOrDefault("BADGER_PATH", "data/sessions"),

		MaxItems: maxItems,
		Location: loc,

		KafkaEnabled:          os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:          sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaImpressionsTopic: sharedcfg.EnvOrDefault("KAFKA_IMPRESSIONS_TOPIC", "foryou-impressions"),
		KafkaAsync:            os.Getenv("KAFKA_ASYNC") == "true",
	}

	if cfg.GeocodeEnabled && cfg.GoogleMapsAPIKey == "" {
		return nil, errors.New("GEOCODE_ENABLED is true but GOOGLE_MAPS_API_KEY is not set")
	}
	if cfg.SessionBackend != BackendMemory && cfg.SessionBackend != BackendBadger {
		return nil, fmt.Errorf("invalid SESSION_BACKEND %q: must be %s or %s", cfg.SessionBackend, BackendMemory, BackendBadger)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parseFloat(key, def string, lo, hi float64) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("invalid %s: must be a number between %g and %g", key, lo, hi)
	}
	return v, nil
}
