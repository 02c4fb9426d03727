package models

import (
	"fmt"
	"time"

	"github.com/Kakrote/udyam-registration-app/pkg/domain"
	dErrors "github.com/Kakrote/udyam-registration-app/pkg/domain-errors"
)

// Stage is the position of a draft in the two-stage form.
type Stage string

const (
	StageIdentityPending   Stage = "stage1_pending"
	StageIdentityValidated Stage = "stage1_validated"
	StageEnterprisePending Stage = "stage2_pending"
	StageCompleted         Stage = "completed"
)

// EventKind names what happened to a draft.
type EventKind string

const (
	EventIdentitySubmitted  EventKind = "identity_submitted"
	EventIdentityRejected   EventKind = "identity_rejected"
	EventEnterpriseAccepted EventKind = "enterprise_accepted"
	EventEnterpriseRejected EventKind = "enterprise_rejected"
	EventWentBack           EventKind = "went_back"
)

// Event is an input to Reduce. Identity is carried by EventIdentitySubmitted;
// Enterprise by both enterprise events; RegistrationID by
// EventEnterpriseAccepted.
type Event struct {
	Kind           EventKind
	Identity       *Identity
	Enterprise     *Enterprise
	RegistrationID domain.RegistrationID
	At             time.Time
}

// Draft is an in-progress registration.
type Draft struct {
	ID             domain.DraftID
	Stage          Stage
	Identity       *Identity
	Enterprise     *Enterprise
	RegistrationID domain.RegistrationID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewDraft returns a draft waiting for its identity.
func NewDraft(id domain.DraftID, now time.Time) Draft {
	return Draft{ID: id, Stage: StageIdentityPending, CreatedAt: now, UpdatedAt: now}
}

// Transition is the result of applying one event.
type Transition struct {
	From  Stage
	To    Stage
	Draft Draft
	// Err is set when the event is not allowed in From; Draft is then
	// returned unchanged.
	Err error
}

// Reduce applies e to d. It has no side effects. A rejected submission never
// fails the draft: it stays where it can be resubmitted. Identity events are
// only accepted in stage1_pending; the way back there is EventWentBack, which
// keeps all entered data.
func Reduce(d Draft, e Event) Transition {
	t := Transition{From: d.Stage, To: d.Stage, Draft: d}
	if d.Stage == StageCompleted {
		t.Err = dErrors.New(dErrors.CodeInvalidState, "registration is already completed")
		return t
	}

	next := d
	switch e.Kind {
	case EventIdentitySubmitted:
		if d.Stage != StageIdentityPending {
			return illegal(t, e)
		}
		next.Identity = copyIdentity(e.Identity)
		next.Stage = StageIdentityValidated

	case EventIdentityRejected:
		if d.Stage != StageIdentityPending {
			return illegal(t, e)
		}

	case EventEnterpriseAccepted:
		if !enterpriseAllowed(d.Stage) {
			return illegal(t, e)
		}
		next.Enterprise = copyEnterprise(e.Enterprise)
		next.RegistrationID = e.RegistrationID
		next.Stage = StageCompleted

	case EventEnterpriseRejected:
		if !enterpriseAllowed(d.Stage) {
			return illegal(t, e)
		}
		next.Enterprise = copyEnterprise(e.Enterprise)
		next.Stage = StageEnterprisePending

	case EventWentBack:
		next.Stage = StageIdentityPending

	default:
		return illegal(t, e)
	}

	if !e.At.IsZero() {
		next.UpdatedAt = e.At
	}
	t.To = next.Stage
	t.Draft = next
	return t
}

// Accepts returns the error Reduce would report for an event of kind in d's
// current stage, without applying it.
func Accepts(d Draft, kind EventKind) error {
	return Reduce(d, Event{Kind: kind}).Err
}

func enterpriseAllowed(s Stage) bool {
	return s == StageIdentityValidated || s == StageEnterprisePending
}

func illegal(t Transition, e Event) Transition {
	t.Err = dErrors.New(dErrors.CodeInvalidState,
		fmt.Sprintf("%s is not allowed in stage %s", e.Kind, t.From))
	return t
}

func copyIdentity(i *Identity) *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func copyEnterprise(e *Enterprise) *Enterprise {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
