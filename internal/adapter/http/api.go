package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/campus-foryou-service/internal/domain"
	"github.com/couchcryptid/campus-foryou-service/internal/geocode"
	"github.com/couchcryptid/campus-foryou-service/internal/recommend"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SessionHeader carries the caller's session id in both directions.
const SessionHeader = "X-Session-ID"

const (
	maxBodyBytes    = 64 << 10
	maxBatchNames   = 50
	maxCount        = 100
	maxSessionIDLen = 128
)

// Recommender serves the For You rail.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (recommend.Result, error)
	Refresh(ctx context.Context, sessionID string) (uint32, error)
	SetFavorite(ctx context.Context, sessionID, category string) error
}

// Geocoder resolves place names.
type Geocoder interface {
	Lookup(ctx context.Context, name string) (*domain.LatLng, error)
	Many(ctx context.Context, names []string) (geocode.Batch, error)
}

type handlers struct {
	rec    Recommender
	geo    Geocoder
	logger *slog.Logger
}

func (h *handlers) recommend(w http.ResponseWriter, r *http.Request) {
	req, err := parseRecommendRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.SessionID = sessionID(w, r)

	res, err := h.rec.Recommend(r.Context(), req)
	if err != nil {
		h.fail(w, r, "recommend", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	seed, err := h.rec.Refresh(r.Context(), id)
	if err != nil {
		h.fail(w, r, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "seed": seed})
}

type favoriteBody struct {
	Category string `json:"category"`
}

func (h *handlers) setFavorite(w http.ResponseWriter, r *http.Request) {
	var body favoriteBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := sessionID(w, r)
	if err := h.rec.SetFavorite(r.Context(), id, body.Category); err != nil {
		if errors.Is(err, domain.ErrInvalidCategory) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.fail(w, r, "set favorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type lookupResponse struct {
	Name  string         `json:"name"`
	Coord *domain.LatLng `json:"coord"`
}

func (h *handlers) lookup(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	coord, err := h.geo.Lookup(r.Context(), name)
	if err != nil {
		h.fail(w, r, "geocode", err)
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{Name: name, Coord: coord})
}

type batchBody struct {
	Names []string `json:"names"`
}

func (h *handlers) batch(w http.ResponseWriter, r *http.Request) {
	var body batchBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.Names) > maxBatchNames {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("at most %d names per batch", maxBatchNames))
		return
	}
	res, err := h.geo.Many(r.Context(), body.Names)
	if err != nil {
		h.fail(w, r, "geocode batch", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// fail maps a service error to a response. A request whose client went away
// gets no response body.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		h.logger.Debug("request canceled by client", "op", op, "req_id", middleware.GetReqID(r.Context()))
		return
	}
	if errors.Is(err, recommend.ErrNoSession) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error(op+" failed", "error", err, "req_id", middleware.GetReqID(r.Context()))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

// sessionID returns the caller's session id, minting one when absent or
// unusable, and echoes it on the response.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" || len(id) > maxSessionIDLen || strings.ContainsAny(id, ": ") {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	return id
}

func parseRecommendRequest(r *http.Request) (recommend.Request, error) {
	q := r.URL.Query()
	var req recommend.Request

	if s := q.Get("count"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > maxCount {
			return req, fmt.Errorf("count must be an integer between 0 and %d", maxCount)
		}
		req.Count = n
	}

	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr != "" || lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return req, errors.New("lat and lng must both be valid coordinates")
		}
		req.Reference = &domain.LatLng{Lat: lat, Lng: lng}
	}

	if s := q.Get("favorite"); s != "" {
		c, err := domain.ParseCategory(s)
		if err != nil {
			return req, err
		}
		req.Favorite = &c
	}
	return req, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":      message,
		"request_id": middleware.GetReqID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
