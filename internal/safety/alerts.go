// Package safety implements the alert, safe spot, SOS, zone and route services.
package safety

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safezone/server/internal/apperr"
	"github.com/safezone/server/internal/events"
	"github.com/safezone/server/internal/geo"
	"github.com/safezone/server/internal/model"
	"github.com/safezone/server/internal/repo"
)

// MaxListedAlerts caps GET /alerts
const MaxListedAlerts = 100

// Counters receives domain counts for monitoring
type Counters interface {
	AlertReported(severity string)
	SOSTriggered()
}

type nopCounters struct{}

func (nopCounters) AlertReported(string) {}
func (nopCounters) SOSTriggered()        {}

// CreateAlertInput is a validated alert report
type CreateAlertInput struct {
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	Timestamp   *time.Time `json:"timestamp"`
	Location    geo.Point  `json:"location"`
	Description string     `json:"description"`
	ReportedBy  *uuid.UUID `json:"-"`
}

type AlertService struct {
	alerts    repo.AlertRepo
	publisher events.Publisher
	counters  Counters
	logger    *zap.Logger
}

func NewAlertService(alerts repo.AlertRepo, publisher events.Publisher, counters Counters, logger *zap.Logger) *AlertService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if counters == nil {
		counters = nopCounters{}
	}
	return &AlertService{alerts: alerts, publisher: publisher, counters: counters, logger: logger}
}

// Create stores an alert. Timestamp defaults to the time of the report.
func (s *AlertService) Create(ctx context.Context, in CreateAlertInput) (model.Alert, error) {
	if !in.Location.Valid() {
		return model.Alert{}, apperr.Validation([]string{`"location" must contain finite lat and lng`})
	}

	alert := model.Alert{
		Type:        in.Type,
		Severity:    in.Severity,
		Location:    in.Location.Location(),
		Description: in.Description,
		ReportedBy:  in.ReportedBy,
		Timestamp:   time.Now().UTC(),
	}
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		alert.Timestamp = in.Timestamp.UTC()
	}

	created, err := s.alerts.Create(ctx, alert)
	if err != nil {
		return model.Alert{}, fmt.Errorf("create alert: %w", err)
	}

	s.counters.AlertReported(created.Severity)
	publish(ctx, s.publisher, s.logger, events.AlertReported, events.AlertReportedEvent{
		AlertID:   created.ID.String(),
		Type:      created.Type,
		Severity:  created.Severity,
		Lat:       created.Location.Lat,
		Lng:       created.Location.Lng,
		Timestamp: created.Timestamp,
	})
	return created, nil
}

// List returns the most recent alerts, newest first
func (s *AlertService) List(ctx context.Context) ([]model.Alert, error) {
	alerts, err := s.alerts.ListRecent(ctx, MaxListedAlerts)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// publish never fails the caller; a lost event is logged
func publish(ctx context.Context, p events.Publisher, logger *zap.Logger, subject string, payload interface{}) {
	if err := p.Publish(ctx, subject, payload); err != nil {
		logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
