// Package service runs the two-stage registration pipeline: identity, then
// enterprise details with postal code auto-fill, then exactly one persisted
// registration.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	locmodels "github.com/Kakrote/udyam-registration-app/internal/location/models"
	"github.com/Kakrote/udyam-registration-app/internal/registration/metrics"
	"github.com/Kakrote/udyam-registration-app/internal/registration/models"
	"github.com/Kakrote/udyam-registration-app/internal/registration/validation"
	"github.com/Kakrote/udyam-registration-app/pkg/domain"
	dErrors "github.com/Kakrote/udyam-registration-app/pkg/domain-errors"
	audit "github.com/Kakrote/udyam-registration-app/pkg/platform/audit"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/sentinel"
	"github.com/Kakrote/udyam-registration-app/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// DraftStore holds in-progress drafts.
type DraftStore interface {
	Create(ctx context.Context, d models.Draft) error
	FindByID(ctx context.Context, id domain.DraftID) (*models.Draft, error)
	Save(ctx context.Context, d models.Draft) error
}

// RegistrationStore persists completed registrations.
type RegistrationStore interface {
	Create(ctx context.Context, r *models.Registration) error
	FindByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error)
}

// LocationResolver resolves a raw postal code. A non-nil error means the code
// was malformed or ctx ended.
type LocationResolver interface {
	Resolve(ctx context.Context, raw string) (locmodels.Resolution, error)
}

// AuditPublisher receives one entry per enterprise submission attempt.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is safe for concurrent use. Operations on the same draft are
// serialized.
type Service struct {
	drafts        DraftStore
	registrations RegistrationStore
	resolver      LocationResolver
	validator     *validation.Validator
	auditor       AuditPublisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tracer        trace.Tracer
	now           func() time.Time

	locks sync.Map // domain.DraftID -> *sync.Mutex
}

type Option func(*Service)

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(drafts DraftStore, registrations RegistrationStore, resolver LocationResolver, opts ...Option) *Service {
	s := &Service{
		drafts:        drafts,
		registrations: registrations,
		resolver:      resolver,
		validator:     validation.New(),
		logger:        slog.Default(),
		tracer:        otel.Tracer("udyam/registration/service"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var errDraftNotFound = dErrors.New(dErrors.CodeNotFound, "registration draft not found")

// StartDraft creates an empty draft waiting for its identity.
func (s *Service) StartDraft(ctx context.Context) (*models.Draft, error) {
	d := models.NewDraft(domain.NewDraftID(), s.now())
	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create draft")
	}
	s.metrics.IncDraftsCreated()
	s.logger.InfoContext(ctx, "registration draft started", "draft_id", d.ID.String())
	return &d, nil
}

// GetDraft returns a draft by ID.
func (s *Service) GetDraft(ctx context.Context, id domain.DraftID) (*models.Draft, error) {
	return s.loadDraft(ctx, id)
}

// SubmitIdentity validates the identity as a unit. Only a draft in
// stage1_pending accepts an identity. On failure the draft stays there and the
// error carries every rejected field.
func (s *Service) SubmitIdentity(ctx context.Context, id domain.DraftID, identity models.Identity) (*models.Draft, error) {
	unlock := s.lock(id)
	defer unlock()

	d, err := s.loadDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := models.Accepts(*d, models.EventIdentitySubmitted); err != nil {
		return nil, err
	}

	errs := s.validator.Identity(&identity)
	if len(errs) > 0 {
		s.metrics.RecordStage("identity", "rejected")
		s.emit(ctx, audit.EventIdentityRejected, id.String(), "rejected")
		next, err := s.apply(ctx, *d, models.Event{Kind: models.EventIdentityRejected, At: s.now()})
		if err != nil {
			return nil, err
		}
		return next, errs.Err()
	}

	s.metrics.RecordStage("identity", "accepted")
	s.emit(ctx, audit.EventIdentityAccepted, id.String(), "accepted")
	return s.apply(ctx, *d, models.Event{Kind: models.EventIdentitySubmitted, Identity: &identity, At: s.now()})
}

// SubmitEnterprise validates stage 2, auto-fills location fields from the
// postal code and persists the registration. It returns the updated draft,
// and the registration when one was created.
func (s *Service) SubmitEnterprise(ctx context.Context, id domain.DraftID, enterprise models.Enterprise, meta models.ClientMeta) (*models.Draft, *models.Registration, error) {
	unlock := s.lock(id)
	defer unlock()

	d, err := s.loadDraft(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := models.Accepts(*d, models.EventEnterpriseAccepted); err != nil {
		return nil, nil, err
	}

	start := s.now()
	errs, err := s.checkEnterprise(ctx, &enterprise)
	if err != nil {
		s.recordAttempt(ctx, meta, start, *d.Identity, enterprise, err)
		return nil, nil, err
	}
	if len(errs) > 0 {
		s.recordAttempt(ctx, meta, start, *d.Identity, enterprise, errs.Err())
		next, err := s.apply(ctx, *d, models.Event{Kind: models.EventEnterpriseRejected, Enterprise: &enterprise, At: s.now()})
		if err != nil {
			return nil, nil, err
		}
		return next, nil, errs.Err()
	}

	reg, err := s.persist(ctx, *d.Identity, enterprise, meta)
	s.recordAttempt(ctx, meta, start, *d.Identity, enterprise, err)
	if err != nil {
		if _, applyErr := s.apply(ctx, *d, models.Event{Kind: models.EventEnterpriseRejected, Enterprise: &enterprise, At: s.now()}); applyErr != nil {
			s.logger.WarnContext(ctx, "failed to keep enterprise data on draft", "draft_id", id.String(), "error", applyErr)
		}
		return nil, nil, err
	}

	next, err := s.apply(ctx, *d, models.Event{
		Kind:           models.EventEnterpriseAccepted,
		Enterprise:     &reg.Enterprise,
		RegistrationID: reg.ID,
		At:             s.now(),
	})
	if next != nil && next.Stage == models.StageCompleted {
		// Completed drafts are never mutated again.
		s.locks.Delete(id)
	}
	if err != nil {
		// The registration exists; only the draft bookkeeping failed.
		return nil, reg, err
	}
	return next, reg, nil
}

// GoBack returns the draft to stage1_pending keeping everything entered.
func (s *Service) GoBack(ctx context.Context, id domain.DraftID) (*models.Draft, error) {
	unlock := s.lock(id)
	defer unlock()

	d, err := s.loadDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, *d, models.Event{Kind: models.EventWentBack, At: s.now()})
}

// Submit runs both stages in one call. Field errors from both stages are
// reported together.
func (s *Service) Submit(ctx context.Context, identity models.Identity, enterprise models.Enterprise, meta models.ClientMeta) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Submit")
	defer span.End()
	start := s.now()

	d := models.NewDraft(domain.NewDraftID(), start)
	errs := s.validator.Identity(&identity)
	if len(errs) > 0 {
		s.metrics.RecordStage("identity", "rejected")
		d = s.reduce(d, models.Event{Kind: models.EventIdentityRejected})
	} else {
		s.metrics.RecordStage("identity", "accepted")
		d = s.reduce(d, models.Event{Kind: models.EventIdentitySubmitted, Identity: &identity})
	}

	entErrs, err := s.checkEnterprise(ctx, &enterprise)
	if err != nil {
		s.recordAttempt(ctx, meta, start, identity, enterprise, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return nil, err
	}
	errs.Merge(entErrs)
	if len(errs) > 0 {
		if d.Stage == models.StageIdentityValidated {
			d = s.reduce(d, models.Event{Kind: models.EventEnterpriseRejected, Enterprise: &enterprise})
		}
		s.recordAttempt(ctx, meta, start, identity, enterprise, errs.Err())
		span.SetAttributes(
			attribute.Int("registration.field_errors", len(errs)),
			attribute.String("registration.stage", string(d.Stage)),
		)
		span.SetStatus(codes.Error, "validation failed")
		return nil, errs.Err()
	}

	if err := models.Accepts(d, models.EventEnterpriseAccepted); err != nil {
		s.recordAttempt(ctx, meta, start, identity, enterprise, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "out of order")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "registration cannot be completed")
	}

	reg, err := s.persist(ctx, identity, enterprise, meta)
	s.recordAttempt(ctx, meta, start, identity, enterprise, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, err
	}
	d = s.reduce(d, models.Event{Kind: models.EventEnterpriseAccepted, Enterprise: &reg.Enterprise, RegistrationID: reg.ID})
	span.SetAttributes(
		attribute.String("registration.id", reg.ID.String()),
		attribute.String("registration.stage", string(d.Stage)),
	)
	return reg, nil
}

// checkEnterprise validates the entered fields, overwrites state, district
// and city when the postal code resolves, then validates those derived
// fields. Resolution failures never produce field errors.
func (s *Service) checkEnterprise(ctx context.Context, e *models.Enterprise) (dErrors.FieldErrors, error) {
	errs := s.validator.EnterpriseFields(e)
	if !errs.Has(models.FieldPincode) {
		if err := s.autofill(ctx, e); err != nil {
			return nil, err
		}
	}
	errs.Merge(s.validator.DerivedFields(*e))
	return errs, nil
}

func (s *Service) autofill(ctx context.Context, e *models.Enterprise) error {
	res, err := s.resolver.Resolve(ctx, e.Pincode)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.WarnContext(ctx, "postal code auto-fill skipped", "pincode", e.Pincode, "error", err)
		s.metrics.RecordAutofill("error")
		return nil
	}
	s.metrics.RecordAutofill(string(res.Outcome))
	if !res.Found() {
		s.logger.InfoContext(ctx, "postal code not resolved, keeping entered location",
			"pincode", e.Pincode,
			"outcome", res.Outcome,
			"reason", res.Reason,
		)
		return nil
	}
	e.State = res.Record.State
	e.District = res.Record.District
	e.City = res.Record.City
	return nil
}

func (s *Service) persist(ctx context.Context, identity models.Identity, enterprise models.Enterprise, meta models.ClientMeta) (*models.Registration, error) {
	reg := &models.Registration{
		ID:             domain.NewRegistrationID(),
		Identity:       identity,
		Enterprise:     enterprise,
		SubmissionStep: models.CompletedStep,
		IsCompleted:    true,
		ClientIP:       meta.ClientIP,
		UserAgent:      meta.UserAgent,
		CreatedAt:      s.now(),
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		s.metrics.IncPersistFailures()
		s.metrics.RecordStage("enterprise", "failed")
		s.logger.ErrorContext(ctx, "failed to save registration",
			"registration_id", reg.ID.String(),
			"request_id", meta.RequestID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration")
	}
	s.metrics.IncRegistrations()
	s.metrics.RecordStage("enterprise", "accepted")
	s.logger.InfoContext(ctx, "registration completed",
		"registration_id", reg.ID.String(),
		"pincode", enterprise.Pincode,
		"request_id", meta.RequestID,
	)
	return reg, nil
}

// apply reduces and saves the draft.
func (s *Service) apply(ctx context.Context, d models.Draft, e models.Event) (*models.Draft, error) {
	t := models.Reduce(d, e)
	if t.Err != nil {
		return nil, t.Err
	}
	if err := s.drafts.Save(ctx, t.Draft); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save draft")
	}
	s.metrics.RecordTransition(string(t.From), string(t.To))
	return &t.Draft, nil
}

// reduce applies an event to a draft that is never stored.
func (s *Service) reduce(d models.Draft, e models.Event) models.Draft {
	t := models.Reduce(d, e)
	if t.Err != nil {
		s.logger.Warn("unexpected draft transition", "event", e.Kind, "stage", d.Stage, "error", t.Err)
		return d
	}
	s.metrics.RecordTransition(string(t.From), string(t.To))
	return t.Draft
}

func (s *Service) loadDraft(ctx context.Context, id domain.DraftID) (*models.Draft, error) {
	d, err := s.drafts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errDraftNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load draft")
	}
	return d, nil
}

func (s *Service) lock(id domain.DraftID) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// submissionPayload is the logged form body. The Aadhaar number is masked.
type submissionPayload struct {
	models.Identity
	models.Enterprise
}

// statusClientClosedRequest is logged for attempts abandoned by the caller.
const statusClientClosedRequest = 499

// recordAttempt emits one submission log entry for a stage 2 attempt. The
// entry is recorded even when the caller has gone away.
func (s *Service) recordAttempt(ctx context.Context, meta models.ClientMeta, start time.Time, identity models.Identity, enterprise models.Enterprise, result error) {
	ctx = context.WithoutCancel(ctx)
	elapsed := s.now().Sub(start)
	s.metrics.ObserveSubmit(elapsed.Seconds())

	action, outcome, status := audit.EventSubmissionAccepted, "accepted", http.StatusCreated
	errMsg := ""
	switch {
	case result == nil:
	case dErrors.HasCode(result, dErrors.CodeValidation):
		action, outcome, status = audit.EventSubmissionRejected, "rejected", http.StatusBadRequest
		errMsg = result.Error()
		s.metrics.RecordStage("enterprise", "rejected")
	case errors.Is(result, context.Canceled), errors.Is(result, context.DeadlineExceeded):
		action, outcome, status = audit.EventSubmissionFailed, "cancelled", statusClientClosedRequest
		errMsg = result.Error()
		s.metrics.RecordStage("enterprise", "cancelled")
	default:
		action, outcome, status = audit.EventSubmissionFailed, "failed", http.StatusInternalServerError
		errMsg = result.Error()
	}

	if s.auditor == nil {
		return
	}
	payload, err := json.Marshal(submissionPayload{Identity: identity.Masked(), Enterprise: enterprise})
	if err != nil {
		payload = nil
	}
	err = s.auditor.Emit(ctx, audit.Event{
		Action:       string(action),
		Subject:      enterprise.Pincode,
		Outcome:      outcome,
		RequestID:    meta.RequestID,
		ClientIP:     meta.ClientIP,
		UserAgent:    meta.UserAgent,
		Endpoint:     meta.Endpoint,
		Method:       meta.Method,
		StatusCode:   status,
		DurationMs:   elapsed.Milliseconds(),
		Payload:      payload,
		ErrorMessage: errMsg,
	})
	if err != nil {
		s.logger.DebugContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, subject, outcome string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Action:    string(action),
		Subject:   subject,
		Outcome:   outcome,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	})
	if err != nil {
		s.logger.DebugContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}
