// Package service implements the tiered postal code lookup: validate, read the
// local store, fall back to the upstream registry, write newly discovered
// mappings through to the store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/Kakrote/udyam-registration-app/internal/location/metrics"
	"github.com/Kakrote/udyam-registration-app/internal/location/models"
	"github.com/Kakrote/udyam-registration-app/internal/location/upstream"
	audit "github.com/Kakrote/udyam-registration-app/pkg/platform/audit"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/sentinel"
	"github.com/Kakrote/udyam-registration-app/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store is the append-only location cache.
type Store interface {
	Get(ctx context.Context, code models.PostalCode) (*models.LocationRecord, error)
	PutIfAbsent(ctx context.Context, rec models.LocationRecord) (bool, error)
}

// Resolver queries the upstream registry. Failures are *upstream.LookupError
// unless the caller's context ended.
type Resolver interface {
	Resolve(ctx context.Context, code models.PostalCode) (*models.LocationRecord, error)
}

// AuditPublisher receives one event per resolution attempt.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is safe for concurrent use.
type Service struct {
	store    Store
	upstream Resolver
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	flights  singleflight.Group
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

func New(store Store, resolver Resolver, opts ...Option) *Service {
	s := &Service{
		store:    store,
		upstream: resolver,
		logger:   slog.Default(),
		tracer:   otel.Tracer("udyam/location/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// flightResult is shared by every caller collapsed onto one upstream call.
type flightResult struct {
	record  *models.LocationRecord
	outcome models.Outcome
	reason  string
}

// Resolve maps a raw postal code to a Resolution. The error is non-nil only
// for a malformed code (CodeInvalidFormat, no I/O performed) or when ctx
// ends first. NotFound and Unavailable are outcomes, not errors.
func (s *Service) Resolve(ctx context.Context, raw string) (models.Resolution, error) {
	code, err := models.ParsePostalCode(raw)
	if err != nil {
		s.emit(ctx, audit.EventLocationInvalidFormat, raw, "invalid_format")
		return models.Resolution{}, err
	}

	ctx, span := s.tracer.Start(ctx, "location.Resolve",
		trace.WithAttributes(attribute.String("pincode", code.String())))
	defer span.End()
	start := time.Now()

	if rec, ok := s.fromStore(ctx, code); ok {
		return s.finish(ctx, span, start, models.Resolution{
			PostalCode: code,
			Outcome:    models.OutcomeFound,
			Record:     rec,
		}), nil
	}

	res, err := s.resolveUpstream(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return models.Resolution{}, err
	}
	return s.finish(ctx, span, start, res), nil
}

// fromStore treats any store error as a miss so the upstream tier can still
// answer.
func (s *Service) fromStore(ctx context.Context, code models.PostalCode) (*models.LocationRecord, bool) {
	rec, err := s.store.Get(ctx, code)
	switch {
	case err == nil:
		s.metrics.RecordCacheLookup("hit")
		out := *rec
		out.Source = models.SourceCache
		return &out, true
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.RecordCacheLookup("miss")
	default:
		s.metrics.RecordCacheLookup("error")
		s.logger.WarnContext(ctx, "location cache read failed, falling back to upstream",
			"pincode", code.String(),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	return nil, false
}

// resolveUpstream collapses concurrent misses for the same code onto one
// upstream call. If the caller that started the flight is cancelled, the
// others retry once with their own context.
func (s *Service) resolveUpstream(ctx context.Context, code models.PostalCode) (models.Resolution, error) {
	for attempt := 0; ; attempt++ {
		ch := s.flights.DoChan(code.String(), func() (any, error) {
			return s.fetchAndStore(ctx, code)
		})
		select {
		case <-ctx.Done():
			return models.Resolution{}, ctx.Err()
		case r := <-ch:
			if r.Err != nil {
				if ctx.Err() == nil && attempt == 0 && isContextErr(r.Err) {
					continue
				}
				if ctx.Err() != nil {
					return models.Resolution{}, ctx.Err()
				}
				return models.Resolution{}, r.Err
			}
			fr := r.Val.(flightResult)
			res := models.Resolution{PostalCode: code, Outcome: fr.outcome, Reason: fr.reason}
			if fr.record != nil {
				rec := *fr.record
				res.Record = &rec
			}
			return res, nil
		}
	}
}

func (s *Service) fetchAndStore(ctx context.Context, code models.PostalCode) (flightResult, error) {
	rec, err := s.upstream.Resolve(ctx, code)
	if err != nil {
		if ctx.Err() != nil {
			return flightResult{}, ctx.Err()
		}
		var le *upstream.LookupError
		if errors.As(err, &le) {
			return flightResult{outcome: le.Outcome(), reason: string(le.Category)}, nil
		}
		s.logger.WarnContext(ctx, "unexpected upstream error", "pincode", code.String(), "error", err)
		return flightResult{outcome: models.OutcomeUnavailable, reason: string(upstream.ErrorUnavailable)}, nil
	}

	if ctx.Err() != nil {
		return flightResult{}, ctx.Err()
	}

	stored, err := s.store.PutIfAbsent(ctx, *rec)
	switch {
	case err != nil:
		s.metrics.RecordCacheWrite("error")
		s.logger.WarnContext(ctx, "location cache write failed",
			"pincode", code.String(),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		s.emit(ctx, audit.EventLocationCacheWriteErr, code.String(), "cache_write_failed")
	case stored:
		s.metrics.RecordCacheWrite("stored")
	default:
		// Another writer got there first; return its value so every caller
		// agrees on one record.
		s.metrics.RecordCacheWrite("exists")
		if existing, getErr := s.store.Get(ctx, code); getErr == nil {
			existing.Source = models.SourceCache
			rec = existing
		}
	}
	return flightResult{record: rec, outcome: models.OutcomeFound}, nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, start time.Time, res models.Resolution) models.Resolution {
	source := "none"
	if res.Record != nil {
		source = string(res.Record.Source)
	}
	span.SetAttributes(
		attribute.String("location.outcome", string(res.Outcome)),
		attribute.String("location.source", source),
	)
	s.metrics.RecordResolution(string(res.Outcome), source, time.Since(start).Seconds())

	switch res.Outcome {
	case models.OutcomeFound:
		s.emit(ctx, audit.EventLocationResolved, res.PostalCode.String(), source)
	case models.OutcomeNotFound:
		s.emit(ctx, audit.EventLocationNotFound, res.PostalCode.String(), res.Reason)
	default:
		s.logger.WarnContext(ctx, "postal registry unavailable",
			"pincode", res.PostalCode.String(),
			"reason", res.Reason,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.emit(ctx, audit.EventLocationUnavailable, res.PostalCode.String(), res.Reason)
	}
	return res
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

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
