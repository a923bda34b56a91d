// Package response writes the uniform {success, message, data} envelope.
package response

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/safezone/server/internal/apperr"
)

// Envelope wraps every API response
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type validationData struct {
	Errors []string `json:"errors"`
}

// JSON writes an envelope with the given status code
func JSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// OK writes a 200 success envelope
func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created writes a 201 success envelope
func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Error maps err to its status code and writes a failure envelope.
// Internal causes are logged and never sent to the client.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	e := apperr.As(err)
	status := e.Status()

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
	}

	env := Envelope{Success: false, Message: e.Message}
	if e.Kind == apperr.KindValidation {
		env.Data = validationData{Errors: e.Details}
	}
	JSON(w, status, env)
}

// NotFound is the handler for unmatched routes and methods
func NotFound(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusNotFound, Envelope{Success: false, Message: "Route not found"})
}
