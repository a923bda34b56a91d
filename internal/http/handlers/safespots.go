package handlers

import (
	"net/http"

	"github.com/safezone/server/internal/http/response"
	"github.com/safezone/server/internal/safety"
)

type SafeSpotHandler struct {
	spots *safety.SafeSpotService
}

func NewSafeSpotHandler(spots *safety.SafeSpotService) *SafeSpotHandler {
	return &SafeSpotHandler{spots: spots}
}

// List handles GET /safe-spots
func (h *SafeSpotHandler) List(w http.ResponseWriter, r *http.Request) error {
	spots, err := h.spots.List(r.Context())
	if err != nil {
		return err
	}
	response.OK(w, "Safe spots fetched successfully", spots)
	return nil
}

// Nearby handles /safe-spots/nearby?lat=&lng=&limit=
func (h *SafeSpotHandler) Nearby(w http.ResponseWriter, r *http.Request) error {
	limit, ok := queryInt(r, "limit")
	if !ok || limit <= 0 {
		limit = safety.DefaultNearbyLimit
	}

	spots, err := h.spots.Nearest(r.Context(), queryPoint(r, "lat", "lng"), limit)
	if err != nil {
		return err
	}
	response.OK(w, "Nearby safe spots fetched successfully", spots)
	return nil
}
