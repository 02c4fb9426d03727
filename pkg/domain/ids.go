// Package domain holds identifier primitives shared across modules.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "github.com/Kakrote/udyam-registration-app/pkg/domain-errors"
)

// RegistrationID identifies a persisted, completed registration.
type RegistrationID uuid.UUID

// DraftID identifies an in-progress two-step submission.
type DraftID uuid.UUID

func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }
func NewDraftID() DraftID               { return DraftID(uuid.New()) }

func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id DraftID) String() string        { return uuid.UUID(id).String() }

func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DraftID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// ParseRegistrationID parses a canonical UUID; the nil UUID is rejected.
func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s, "registration ID")
	return RegistrationID(u), err
}

// ParseDraftID parses a canonical UUID; the nil UUID is rejected.
func ParseDraftID(s string) (DraftID, error) {
	u, err := parseUUID(s, "draft ID")
	return DraftID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
