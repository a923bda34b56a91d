package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/safezone/server/internal/apperr"
	"github.com/safezone/server/internal/geo"
	"github.com/safezone/server/internal/http/response"
	"github.com/safezone/server/internal/middleware"
	"github.com/safezone/server/internal/safety"
	"github.com/safezone/server/internal/storage"
	"github.com/safezone/server/internal/validate"
)

const (
	attachmentField = "attachment"
	formMemory      = 10 << 20
)

type attachmentKey struct{}

type SOSHandler struct {
	sos            *safety.SOSService
	store          storage.AttachmentStore
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewSOSHandler(sos *safety.SOSService, store storage.AttachmentStore, maxUploadBytes int64, logger *zap.Logger) *SOSHandler {
	return &SOSHandler{sos: sos, store: store, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Upload saves the optional "attachment" file of a multipart request before
// the body is validated. A failed write ends the request with 500.
func (h *SOSHandler) Upload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType != "multipart/form-data" {
			next.ServeHTTP(w, r)
			return
		}

		if h.maxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		}
		if err := r.ParseMultipartForm(formMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, r, h.logger, apperr.TooLarge("Request body too large"))
				return
			}
			response.Error(w, r, h.logger, apperr.BadRequest("Malformed multipart body"))
			return
		}

		file, header, err := r.FormFile(attachmentField)
		if errors.Is(err, http.ErrMissingFile) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			response.Error(w, r, h.logger, apperr.BadRequest("Malformed attachment"))
			return
		}
		defer file.Close()

		path, err := h.store.Save(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
		if err != nil {
			response.Error(w, r, h.logger, fmt.Errorf("save attachment: %w", err))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), attachmentKey{}, path)))
	})
}

type sosInput struct {
	Location    *geo.Point `json:"location"`
	Description string     `json:"description"`
}

// Trigger handles POST /sos/trigger
func (h *SOSHandler) Trigger(w http.ResponseWriter, r *http.Request) error {
	in, err := validate.Decode[sosInput](r.Context())
	if err != nil {
		return err
	}

	req := safety.SOSRequest{Location: in.Location, Description: in.Description}
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		req.User = user
	}
	if path, ok := r.Context().Value(attachmentKey{}).(string); ok {
		req.AttachmentPath = path
	}

	result, err := h.sos.Trigger(r.Context(), req)
	if err != nil {
		return err
	}
	response.Created(w, "SOS processed successfully", result)
	return nil
}
