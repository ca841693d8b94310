package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/campus-foryou-service/internal/domain"
	"github.com/couchcryptid/campus-foryou-service/internal/observability"
	"github.com/goccy/go-json"
)

// DefaultBaseURL is the Google Geocoding API endpoint, without the output format suffix.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode"

// Client implements domain.Geocoder using the Google Geocoding API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Google geocoding client. An empty baseURL uses DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode resolves name to the coordinate of the provider's first result.
// A non-OK status, an empty result list, a missing location, an undecodable
// body or a 4xx response yield domain.ErrNotFound. Transport failures, 5xx
// and 429 responses are returned as transient errors; context cancellation
// is returned as-is.
func (c *Client) Geocode(ctx context.Context, name string) (domain.LatLng, error) {
	params := url.Values{
		"address": {name},
		"key":     {c.apiKey},
	}
	fullURL := c.baseURL + "/json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.LatLng{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.LatLng{}, ctxErr
		}
		return domain.LatLng{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("google geocoding API error: status %d: %s", resp.StatusCode, body)
		if retryable(resp.StatusCode) {
			return domain.LatLng{}, statusErr
		}
		c.logger.Debug("geocode rejected", "name", name, "status", resp.StatusCode)
		return domain.LatLng{}, fmt.Errorf("%w: %w", domain.ErrNotFound, statusErr)
	}

	var gr response
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.LatLng{}, ctxErr
		}
		return domain.LatLng{}, fmt.Errorf("%w: decode response: %w", domain.ErrNotFound, err)
	}

	if gr.Status != statusOK || len(gr.Results) == 0 {
		return domain.LatLng{}, fmt.Errorf("%w: status %q", domain.ErrNotFound, gr.Status)
	}
	loc := gr.Results[0].Geometry.Location
	if loc == nil || loc.Lat == nil || loc.Lng == nil {
		return domain.LatLng{}, fmt.Errorf("%w: first result has no location", domain.ErrNotFound)
	}
	return domain.LatLng{Lat: *loc.Lat, Lng: *loc.Lng}, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// IsTransient reports whether err from Geocode is worth retrying on a later call.
func IsTransient(err error) bool {
	return err != nil && !errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, context.Canceled)
}

// Google Geocoding API response types.

const statusOK = "OK"

type response struct {
	Status  string   `json:"status"`
	Results []result `json:"results"`
}

type result struct {
	Geometry struct {
		Location *location `json:"location"`
	} `json:"geometry"`
}

type location struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}
