package audit

import (
	"context"
	"encoding/json"
	"time"
)

// EventCategory classifies audit events by their primary purpose so stores
// can route or retain them differently.
type EventCategory string

const (
	// CategorySubmission covers registration attempts. One entry per
	// attempt, success or failure.
	CategorySubmission EventCategory = "submission"

	// CategoryOperations covers lookups and other routine traffic.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// Subject is the entity involved: a postal code, draft ID or registration ID.
	Subject   string
	Outcome   string
	RequestID string
	ClientIP  string
	UserAgent string

	// Endpoint metadata for submission log entries.
	Endpoint   string
	Method     string
	StatusCode int
	DurationMs int64

	Payload      json.RawMessage
	ErrorMessage string
}

type AuditEvent string

const (
	// Location events
	EventLocationResolved      AuditEvent = "location_resolved"
	EventLocationNotFound      AuditEvent = "location_not_found"
	EventLocationUnavailable   AuditEvent = "location_unavailable"
	EventLocationInvalidFormat AuditEvent = "location_invalid_format"
	EventLocationCacheWriteErr AuditEvent = "location_cache_write_failed"

	// Submission events
	EventSubmissionAccepted AuditEvent = "submission_accepted"
	EventSubmissionRejected AuditEvent = "submission_rejected"
	EventSubmissionFailed   AuditEvent = "submission_failed"
	EventIdentityAccepted   AuditEvent = "identity_accepted"
	EventIdentityRejected   AuditEvent = "identity_rejected"

	// Schema events
	EventSchemaServed AuditEvent = "form_schema_served"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventSubmissionAccepted: CategorySubmission,
	EventSubmissionRejected: CategorySubmission,
	EventSubmissionFailed:   CategorySubmission,
	EventIdentityAccepted:   CategorySubmission,
	EventIdentityRejected:   CategorySubmission,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
