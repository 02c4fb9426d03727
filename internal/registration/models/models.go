// Package models holds the registration form payloads, the persisted
// registration record and the draft state machine.
package models

import (
	"time"

	"github.com/Kakrote/udyam-registration-app/pkg/domain"
)

// Identity is the stage 1 payload.
type Identity struct {
	AadhaarNumber string `json:"aadhaarNumber"`
	ApplicantName string `json:"applicantName"`
	MobileNumber  string `json:"mobileNumber"`
	EmailAddress  string `json:"emailAddress"`
	PANNumber     string `json:"panNumber,omitempty"`
}

// Values returns the identity fields keyed by wire name.
func (i Identity) Values() map[string]string {
	return map[string]string{
		FieldAadhaarNumber: i.AadhaarNumber,
		FieldApplicantName: i.ApplicantName,
		FieldMobileNumber:  i.MobileNumber,
		FieldEmailAddress:  i.EmailAddress,
		FieldPANNumber:     i.PANNumber,
	}
}

// Set assigns a field by its wire name. Unknown names are ignored.
func (i *Identity) Set(field, value string) {
	switch field {
	case FieldAadhaarNumber:
		i.AadhaarNumber = value
	case FieldApplicantName:
		i.ApplicantName = value
	case FieldMobileNumber:
		i.MobileNumber = value
	case FieldEmailAddress:
		i.EmailAddress = value
	case FieldPANNumber:
		i.PANNumber = value
	}
}

// Masked returns a copy safe for logs: only the last four Aadhaar digits
// survive.
func (i Identity) Masked() Identity {
	i.AadhaarNumber = MaskAadhaar(i.AadhaarNumber)
	return i
}

// MaskAadhaar replaces every character but the last four with X.
func MaskAadhaar(v string) string {
	const keep = 4
	if len(v) <= keep {
		return v
	}
	masked := make([]byte, len(v))
	for i := range masked {
		if i < len(v)-keep {
			masked[i] = 'X'
		} else {
			masked[i] = v[i]
		}
	}
	return string(masked)
}

// Enterprise is the stage 2 payload. State, District and City are derived
// from the postal code when it resolves.
type Enterprise struct {
	BusinessName      string `json:"businessName"`
	BusinessType      string `json:"businessType"`
	BusinessAddress   string `json:"businessAddress"`
	Pincode           string `json:"pincode"`
	State             string `json:"state"`
	District          string `json:"district"`
	City              string `json:"city,omitempty"`
	GSTINNumber       string `json:"gstinNumber,omitempty"`
	BankAccountNumber string `json:"bankAccountNumber,omitempty"`
	IFSCCode          string `json:"ifscCode,omitempty"`
}

// Values returns the enterprise fields keyed by wire name.
func (e Enterprise) Values() map[string]string {
	return map[string]string{
		FieldBusinessName:      e.BusinessName,
		FieldBusinessType:      e.BusinessType,
		FieldBusinessAddress:   e.BusinessAddress,
		FieldPincode:           e.Pincode,
		FieldState:             e.State,
		FieldDistrict:          e.District,
		FieldCity:              e.City,
		FieldGSTINNumber:       e.GSTINNumber,
		FieldBankAccountNumber: e.BankAccountNumber,
		FieldIFSCCode:          e.IFSCCode,
	}
}

// Set assigns a field by its wire name. Unknown names are ignored.
func (e *Enterprise) Set(field, value string) {
	switch field {
	case FieldBusinessName:
		e.BusinessName = value
	case FieldBusinessType:
		e.BusinessType = value
	case FieldBusinessAddress:
		e.BusinessAddress = value
	case FieldPincode:
		e.Pincode = value
	case FieldState:
		e.State = value
	case FieldDistrict:
		e.District = value
	case FieldCity:
		e.City = value
	case FieldGSTINNumber:
		e.GSTINNumber = value
	case FieldBankAccountNumber:
		e.BankAccountNumber = value
	case FieldIFSCCode:
		e.IFSCCode = value
	}
}

// Registration is a completed two-stage submission. Records are append-only.
type Registration struct {
	ID             domain.RegistrationID
	Identity       Identity
	Enterprise     Enterprise
	SubmissionStep int
	IsCompleted    bool
	ClientIP       string
	UserAgent      string
	CreatedAt      time.Time
}

// CompletedStep is the submission step recorded on every persisted
// registration.
const CompletedStep = 2

// ClientMeta describes the request that carried a submission attempt.
type ClientMeta struct {
	RequestID string
	ClientIP  string
	UserAgent string
	Endpoint  string
	Method    string
}
