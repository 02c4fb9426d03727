package formschema

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	audit "github.com/Kakrote/udyam-registration-app/pkg/platform/audit"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/httputil"
	"github.com/Kakrote/udyam-registration-app/pkg/requestcontext"
)

// AuditPublisher receives one event per schema request.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler serves the prebuilt schema document.
type Handler struct {
	doc     *Document
	auditor AuditPublisher
	logger  *slog.Logger
}

func NewHandler(doc *Document, auditor AuditPublisher, logger *slog.Logger) *Handler {
	return &Handler{doc: doc, auditor: auditor, logger: logger}
}

// Register registers the schema route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/form-schema", h.handleGetSchema)
}

// Response is the body of GET /api/form-schema.
type Response struct {
	Success bool      `json:"success"`
	Data    *Document `json:"data"`
	Message string    `json:"message"`
}

func (h *Handler) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	httputil.WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    h.doc,
		Message: "Form schema retrieved successfully",
	})

	if h.auditor == nil {
		return
	}
	err := h.auditor.Emit(ctx, audit.Event{
		Action:     string(audit.EventSchemaServed),
		Outcome:    "served",
		RequestID:  requestcontext.RequestID(ctx),
		ClientIP:   requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
		Endpoint:   r.URL.Path,
		Method:     r.Method,
		StatusCode: http.StatusOK,
		DurationMs: time.Since(start).Milliseconds(),
	})
	if err != nil {
		h.logger.DebugContext(ctx, "audit emit failed", "action", audit.EventSchemaServed, "error", err)
	}
}
