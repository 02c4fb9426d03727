// Package models holds the postal code and location types shared by the
// location store, upstream client and resolution service.
package models

import (
	"time"

	dErrors "github.com/Kakrote/udyam-registration-app/pkg/domain-errors"
)

const postalCodeLen = 6

// PostalCode is a syntactically valid six digit PIN code. The zero value is
// not valid; construct with ParsePostalCode.
type PostalCode struct {
	value string
}

// ErrInvalidPostalCode is the message carried by parse failures.
const ErrInvalidPostalCode = "Invalid PIN code format. Please provide a 6-digit PIN code."

// ParsePostalCode accepts exactly six ASCII digits. Nothing is trimmed.
func ParsePostalCode(raw string) (PostalCode, error) {
	if len(raw) != postalCodeLen {
		return PostalCode{}, dErrors.New(dErrors.CodeInvalidFormat, ErrInvalidPostalCode)
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return PostalCode{}, dErrors.New(dErrors.CodeInvalidFormat, ErrInvalidPostalCode)
		}
	}
	return PostalCode{value: raw}, nil
}

// MustPostalCode panics on invalid input. For tests and constants only.
func MustPostalCode(raw string) PostalCode {
	pc, err := ParsePostalCode(raw)
	if err != nil {
		panic(err)
	}
	return pc
}

func (p PostalCode) String() string { return p.value }
func (p PostalCode) IsZero() bool   { return p.value == "" }

// Source records which tier produced a LocationRecord.
type Source string

const (
	SourceCache    Source = "cache"
	SourceUpstream Source = "upstream"
)

// LocationRecord maps a postal code to its administrative location. Once
// stored it is never modified.
type LocationRecord struct {
	PostalCode PostalCode
	City       string
	District   string
	State      string
	Source     Source
	ResolvedAt time.Time
}

// Outcome tags how a resolution ended.
type Outcome string

const (
	OutcomeFound       Outcome = "found"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeUnavailable Outcome = "unavailable"
)

// Resolution is the result of resolving a well-formed postal code. Record is
// set only when Outcome is OutcomeFound.
type Resolution struct {
	PostalCode PostalCode
	Outcome    Outcome
	Record     *LocationRecord
	// Reason carries the upstream failure category for NotFound/Unavailable.
	Reason string
}

// Found reports whether a location was resolved.
func (r Resolution) Found() bool {
	return r.Outcome == OutcomeFound && r.Record != nil
}
