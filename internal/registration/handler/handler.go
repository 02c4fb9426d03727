package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Kakrote/udyam-registration-app/internal/registration/models"
	"github.com/Kakrote/udyam-registration-app/pkg/domain"
	dErrors "github.com/Kakrote/udyam-registration-app/pkg/domain-errors"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/httputil"
	"github.com/Kakrote/udyam-registration-app/pkg/requestcontext"
)

// Service runs the registration pipeline.
type Service interface {
	Submit(ctx context.Context, identity models.Identity, enterprise models.Enterprise, meta models.ClientMeta) (*models.Registration, error)
	StartDraft(ctx context.Context) (*models.Draft, error)
	GetDraft(ctx context.Context, id domain.DraftID) (*models.Draft, error)
	SubmitIdentity(ctx context.Context, id domain.DraftID, identity models.Identity) (*models.Draft, error)
	SubmitEnterprise(ctx context.Context, id domain.DraftID, enterprise models.Enterprise, meta models.ClientMeta) (*models.Draft, *models.Registration, error)
	GoBack(ctx context.Context, id domain.DraftID) (*models.Draft, error)
}

// Handler serves form submission and the stepwise draft flow.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the registration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/submit", h.handleSubmit)

	r.Route("/api/registrations", func(r chi.Router) {
		r.Post("/", h.handleStartDraft)
		r.Get("/{id}", h.handleGetDraft)
		r.Post("/{id}/identity", h.handleSubmitIdentity)
		r.Post("/{id}/enterprise", h.handleSubmitEnterprise)
		r.Post("/{id}/back", h.handleGoBack)
	})
}

// SubmitRequest is the one-shot form body: every identity and enterprise
// field at the top level.
type SubmitRequest struct {
	models.Identity
	models.Enterprise
}

// SubmitData is returned for a created registration.
type SubmitData struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	SubmissionStep int       `json:"submissionStep"`
	IsCompleted    bool      `json:"isCompleted"`
}

// SubmitResponse is the 201 body of POST /api/submit.
type SubmitResponse struct {
	Success bool       `json:"success"`
	Data    SubmitData `json:"data"`
	Message string     `json:"message"`
}

// DraftData describes a draft. The Aadhaar number is masked.
type DraftData struct {
	ID             string             `json:"id"`
	Stage          models.Stage       `json:"stage"`
	Identity       *models.Identity   `json:"identity"`
	Enterprise     *models.Enterprise `json:"enterprise"`
	RegistrationID string             `json:"registrationId,omitempty"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// DraftResponse is the body of every successful draft operation.
type DraftResponse struct {
	Success bool      `json:"success"`
	Data    DraftData `json:"data"`
	Message string    `json:"message,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, err := httputil.DecodeJSON[SubmitRequest](r)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to decode submission", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	reg, err := h.service.Submit(ctx, req.Identity, req.Enterprise, clientMeta(r))
	if err != nil {
		h.writeError(ctx, w, "submission", err)
		return
	}

	h.logger.InfoContext(ctx, "registration submitted",
		"request_id", requestID,
		"registration_id", reg.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, SubmitResponse{
		Success: true,
		Data: SubmitData{
			ID:             reg.ID.String(),
			CreatedAt:      reg.CreatedAt,
			SubmissionStep: reg.SubmissionStep,
			IsCompleted:    reg.IsCompleted,
		},
		Message: "Form submitted successfully",
	})
}

func (h *Handler) handleStartDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.StartDraft(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "start draft", err)
		return
	}
	writeDraft(w, http.StatusCreated, d, "Registration started")
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}
	d, err := h.service.GetDraft(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, "get draft", err)
		return
	}
	writeDraft(w, http.StatusOK, d, "")
}

func (h *Handler) handleSubmitIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}
	identity, err := httputil.DecodeJSON[models.Identity](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.SubmitIdentity(r.Context(), id, *identity)
	if err != nil {
		h.writeError(r.Context(), w, "submit identity", err)
		return
	}
	writeDraft(w, http.StatusOK, d, "Identity details verified")
}

func (h *Handler) handleSubmitEnterprise(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}
	enterprise, err := httputil.DecodeJSON[models.Enterprise](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, _, err := h.service.SubmitEnterprise(r.Context(), id, *enterprise, clientMeta(r))
	if err != nil {
		h.writeError(r.Context(), w, "submit enterprise", err)
		return
	}
	writeDraft(w, http.StatusCreated, d, "Form submitted successfully")
}

func (h *Handler) handleGoBack(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}
	d, err := h.service.GoBack(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, "go back", err)
		return
	}
	writeDraft(w, http.StatusOK, d, "")
}

func (h *Handler) draftID(w http.ResponseWriter, r *http.Request) (domain.DraftID, bool) {
	id, err := domain.ParseDraftID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.InfoContext(r.Context(), "invalid draft id",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return domain.DraftID{}, false
	}
	return id, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	requestID := requestcontext.RequestID(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.InfoContext(ctx, op+" abandoned", "request_id", requestID, "error", err)
		return
	case dErrors.CodeOf(err) == dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, op+" failed", "request_id", requestID, "error", err)
	default:
		h.logger.InfoContext(ctx, op+" rejected", "request_id", requestID, "error", err)
	}
	httputil.WriteError(w, err)
}

func writeDraft(w http.ResponseWriter, status int, d *models.Draft, message string) {
	data := DraftData{
		ID:         d.ID.String(),
		Stage:      d.Stage,
		Enterprise: d.Enterprise,
		UpdatedAt:  d.UpdatedAt,
	}
	if d.Identity != nil {
		masked := d.Identity.Masked()
		data.Identity = &masked
	}
	if !d.RegistrationID.IsNil() {
		data.RegistrationID = d.RegistrationID.String()
	}
	httputil.WriteJSON(w, status, DraftResponse{Success: true, Data: data, Message: message})
}

func clientMeta(r *http.Request) models.ClientMeta {
	ctx := r.Context()
	return models.ClientMeta{
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		Endpoint:  r.URL.Path,
		Method:    r.Method,
	}
}
