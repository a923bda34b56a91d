package handlers

import (
	"net/http"

	"github.com/safezone/server/internal/http/response"
	"github.com/safezone/server/internal/safety"
)

type ZoneHandler struct {
	zones  *safety.ZoneService
	routes *safety.RouteService
}

func NewZoneHandler(zones *safety.ZoneService, routes *safety.RouteService) *ZoneHandler {
	return &ZoneHandler{zones: zones, routes: routes}
}

type zoneResponse struct {
	ZoneType string `json:"zoneType"`
	safety.ZoneAnalysis
}

// Unsafe handles GET /zones/unsafe
func (h *ZoneHandler) Unsafe(w http.ResponseWriter, r *http.Request) error {
	return h.analyze(w, r, "unsafe", "Unsafe zone analysis generated successfully")
}

// Safe handles GET /zones/safe
func (h *ZoneHandler) Safe(w http.ResponseWriter, r *http.Request) error {
	return h.analyze(w, r, "safe", "Safe zone suggestions generated successfully")
}

func (h *ZoneHandler) analyze(w http.ResponseWriter, r *http.Request, zoneType, message string) error {
	analysis, err := h.zones.Analyze(r.Context(), queryPoint(r, "lat", "lng"))
	if err != nil {
		return err
	}
	response.OK(w, message, zoneResponse{ZoneType: zoneType, ZoneAnalysis: analysis})
	return nil
}

// SaferRoute handles GET /routes/safer
func (h *ZoneHandler) SaferRoute(w http.ResponseWriter, r *http.Request) error {
	route := h.routes.Safer(queryPoint(r, "fromLat", "fromLng"), queryPoint(r, "toLat", "toLng"))
	response.OK(w, "Safer route generated successfully", route)
	return nil
}
