package handlers

import (
	"net/http"

	"github.com/safezone/server/internal/http/response"
	"github.com/safezone/server/internal/middleware"
	"github.com/safezone/server/internal/safety"
	"github.com/safezone/server/internal/validate"
)

type AlertHandler struct {
	alerts *safety.AlertService
}

func NewAlertHandler(alerts *safety.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// List handles GET /alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) error {
	alerts, err := h.alerts.List(r.Context())
	if err != nil {
		return err
	}
	response.OK(w, "Alerts fetched successfully", alerts)
	return nil
}

// Report handles POST /alerts/report and POST /report
func (h *AlertHandler) Report(w http.ResponseWriter, r *http.Request) error {
	in, err := validate.Decode[safety.CreateAlertInput](r.Context())
	if err != nil {
		return err
	}
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		id := user.ID
		in.ReportedBy = &id
	}

	alert, err := h.alerts.Create(r.Context(), in)
	if err != nil {
		return err
	}
	response.Created(w, "Alert reported successfully", alert)
	return nil
}
