package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/safezone/server/internal/geo"
	"github.com/safezone/server/internal/http/response"
)

// HandlerFunc is an HTTP handler that reports failure by returning an error
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Wrap adapts fn to http.Handler. Returned errors go to the central error writer.
func Wrap(logger *zap.Logger, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			response.Error(w, r, logger, err)
		}
	}
}

// queryPoint reads a coordinate pair from the query string. Missing or
// unparsable values yield nil rather than an error.
func queryPoint(r *http.Request, latKey, lngKey string) *geo.Point {
	lat, okLat := queryFloat(r, latKey)
	lng, okLng := queryFloat(r, lngKey)
	if !okLat || !okLng {
		return nil
	}
	p := geo.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return nil
	}
	return &p
}

func queryFloat(r *http.Request, key string) (float64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func queryInt(r *http.Request, key string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
