package safety

import (
	"context"
	"fmt"

	"github.com/safezone/server/internal/geo"
	"github.com/safezone/server/internal/model"
	"github.com/safezone/server/internal/repo"
)

const (
	zoneAlertWindow = 20

	RiskHigh   = "high"
	RiskMedium = "medium"
	RiskLow    = "low"

	recommendHighRisk = "Avoid this area during late hours. Stay in groups and use well-lit paths."
	recommendLowRisk  = "Area currently appears relatively safe based on recent alerts."
)

// ZoneAnalysis is the placeholder zone risk assessment
type ZoneAnalysis struct {
	ZoneID         string        `json:"zoneId"`
	Location       *geo.Point    `json:"location"`
	RiskLevel      string        `json:"riskLevel"`
	Alerts         []model.Alert `json:"alerts"`
	Recommendation string        `json:"recommendation"`
}

type ZoneService struct {
	alerts repo.AlertRepo
}

func NewZoneService(alerts repo.AlertRepo) *ZoneService {
	return &ZoneService{alerts: alerts}
}

// Analyze rates risk from the most recent alerts anywhere in the store.
// The location is echoed back but does not filter the alerts.
func (s *ZoneService) Analyze(ctx context.Context, loc *geo.Point) (ZoneAnalysis, error) {
	alerts, err := s.alerts.ListRecent(ctx, zoneAlertWindow)
	if err != nil {
		return ZoneAnalysis{}, fmt.Errorf("load recent alerts: %w", err)
	}

	out := ZoneAnalysis{
		ZoneID:         "zone-placeholder",
		Location:       loc,
		RiskLevel:      RiskLow,
		Alerts:         alerts,
		Recommendation: recommendLowRisk,
	}
	if len(alerts) > 0 {
		out.RiskLevel = RiskHigh
		out.Recommendation = recommendHighRisk
	}
	return out, nil
}

// Checkpoint is a labelled point along a route. Coordinates are omitted when
// the corresponding endpoint was not given.
type Checkpoint struct {
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	Label     string   `json:"label"`
	RiskLevel string   `json:"riskLevel"`
}

// Route is the synthetic safer-route answer
type Route struct {
	RouteID     string       `json:"routeId"`
	From        *geo.Point   `json:"from"`
	To          *geo.Point   `json:"to"`
	RiskScore   float64      `json:"riskScore"`
	Checkpoints []Checkpoint `json:"checkpoints"`
}

type RouteService struct{}

func NewRouteService() *RouteService { return &RouteService{} }

// Safer returns a fixed two-checkpoint route; no pathfinding takes place
func (s *RouteService) Safer(from, to *geo.Point) Route {
	return Route{
		RouteID:   "route-placeholder",
		From:      from,
		To:        to,
		RiskScore: 0.3,
		Checkpoints: []Checkpoint{
			checkpoint(from, "Start", RiskMedium),
			checkpoint(to, "Destination", RiskLow),
		},
	}
}

func checkpoint(p *geo.Point, label, risk string) Checkpoint {
	c := Checkpoint{Label: label, RiskLevel: risk}
	if p != nil {
		lat, lng := p.Lat, p.Lng
		c.Lat, c.Lng = &lat, &lng
	}
	return c
}
