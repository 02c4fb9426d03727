package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Kakrote/udyam-registration-app/internal/location/models"
	dErrors "github.com/Kakrote/udyam-registration-app/pkg/domain-errors"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/httputil"
	"github.com/Kakrote/udyam-registration-app/pkg/requestcontext"
)

// Service resolves raw postal codes.
type Service interface {
	Resolve(ctx context.Context, raw string) (models.Resolution, error)
}

// Handler serves postal code lookups for form auto-fill.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the lookup route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/pincode/{code}", h.handleLookup)
}

// LocationResponse is the data payload of a successful lookup.
type LocationResponse struct {
	Pincode  string `json:"pincode"`
	City     string `json:"city"`
	District string `json:"district"`
	State    string `json:"state"`
}

// Envelope is the shape of every lookup response.
type Envelope struct {
	Success bool              `json:"success"`
	Data    *LocationResponse `json:"data"`
	Message string            `json:"message"`
}

const (
	msgFound    = "Location details retrieved successfully"
	msgNotFound = "Location details not found for the provided PIN code."
)

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	raw := chi.URLParam(r, "code")

	res, err := h.service.Resolve(ctx, raw)
	if err != nil {
		switch {
		case dErrors.HasCode(err, dErrors.CodeInvalidFormat):
			h.logger.InfoContext(ctx, "rejected malformed pincode", "request_id", requestID, "pincode", raw)
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"message": models.ErrInvalidPostalCode,
			})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			h.logger.InfoContext(ctx, "pincode lookup abandoned", "request_id", requestID, "error", err)
		default:
			h.logger.ErrorContext(ctx, "pincode lookup failed", "request_id", requestID, "error", err)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "lookup failed"))
		}
		return
	}

	if !res.Found() {
		h.logger.InfoContext(ctx, "pincode not resolved",
			"request_id", requestID,
			"pincode", raw,
			"outcome", res.Outcome,
			"reason", res.Reason,
		)
		httputil.WriteJSON(w, http.StatusNotFound, Envelope{Success: false, Message: msgNotFound})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data: &LocationResponse{
			Pincode:  res.PostalCode.String(),
			City:     res.Record.City,
			District: res.Record.District,
			State:    res.Record.State,
		},
		Message: msgFound,
	})
}
