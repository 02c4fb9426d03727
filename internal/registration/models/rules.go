package models

import (
	"strconv"
	"strings"
)

// Wire names of every form field.
const (
	FieldAadhaarNumber     = "aadhaarNumber"
	FieldApplicantName     = "applicantName"
	FieldMobileNumber      = "mobileNumber"
	FieldEmailAddress      = "emailAddress"
	FieldPANNumber         = "panNumber"
	FieldBusinessName      = "businessName"
	FieldBusinessType      = "businessType"
	FieldBusinessAddress   = "businessAddress"
	FieldPincode           = "pincode"
	FieldState             = "state"
	FieldDistrict          = "district"
	FieldCity              = "city"
	FieldGSTINNumber       = "gstinNumber"
	FieldBankAccountNumber = "bankAccountNumber"
	FieldIFSCCode          = "ifscCode"
)

// Field error codes.
const (
	CodeRequired      = "required"
	CodeInvalidLength = "invalid_length"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodeInvalidEmail  = "invalid_email"
	CodeInvalidOption = "invalid_option"
	CodeInvalidFormat = "invalid_format"
)

// BusinessTypes are the accepted organization types, in display order.
var BusinessTypes = []Option{
	{Value: "proprietorship", Text: "Proprietorship"},
	{Value: "partnership", Text: "Partnership"},
	{Value: "llp", Text: "Limited Liability Partnership (LLP)"},
	{Value: "private_limited", Text: "Private Limited Company"},
	{Value: "public_limited", Text: "Public Limited Company"},
	{Value: "cooperative", Text: "Cooperative Society"},
}

// Option is one accepted value of an enumerated field.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Messages holds the user-facing message for each kind of failure.
type Messages struct {
	Required string
	Length   string
	Min      string
	Max      string
	Email    string
	Option   string
	Pattern  string
}

// Rule is the single definition of a form field's constraints. The validator
// and the published form schema are both built from it.
type Rule struct {
	Field string
	Label string
	Step  int
	// SchemaKey names the rule in the schema's validationRules block.
	SchemaKey string
	Required  bool
	// Derived fields are overwritten from a resolved postal code.
	Derived bool
	// FreeText fields have markup stripped before validation.
	FreeText bool
	Len      int
	MinLen   int
	MaxLen   int
	Email    bool
	Options  []Option
	Pattern  string
	// PatternTag is the validator tag registered for Pattern.
	PatternTag string
	Messages   Messages
}

// Tag renders the rule as a validator tag. Constraints are checked in order
// and the first failure is reported.
func (r Rule) Tag() string {
	parts := make([]string, 0, 6)
	if r.Required {
		parts = append(parts, "required")
	} else {
		parts = append(parts, "omitempty")
	}
	if r.Len > 0 {
		parts = append(parts, "len="+strconv.Itoa(r.Len))
	}
	if r.MinLen > 0 {
		parts = append(parts, "min="+strconv.Itoa(r.MinLen))
	}
	if r.MaxLen > 0 {
		parts = append(parts, "max="+strconv.Itoa(r.MaxLen))
	}
	if r.Email {
		parts = append(parts, "email")
	}
	if len(r.Options) > 0 {
		values := make([]string, len(r.Options))
		for i, o := range r.Options {
			values[i] = o.Value
		}
		parts = append(parts, "oneof="+strings.Join(values, " "))
	}
	if r.PatternTag != "" {
		parts = append(parts, r.PatternTag)
	}
	return strings.Join(parts, ",")
}

// Failure maps a failed validator tag to a field error code and message.
func (r Rule) Failure(tag string) (code, message string) {
	pick := func(code, msg string) (string, string) {
		if msg == "" {
			msg = r.Label + " is invalid"
		}
		return code, msg
	}
	switch tag {
	case "required":
		msg := r.Messages.Required
		if msg == "" {
			msg = r.Label + " is required"
		}
		return CodeRequired, msg
	case "len":
		return pick(CodeInvalidLength, r.Messages.Length)
	case "min":
		return pick(CodeTooShort, r.Messages.Min)
	case "max":
		return pick(CodeTooLong, r.Messages.Max)
	case "email":
		return pick(CodeInvalidEmail, r.Messages.Email)
	case "oneof":
		return pick(CodeInvalidOption, r.Messages.Option)
	default:
		return pick(CodeInvalidFormat, r.Messages.Pattern)
	}
}

// IdentityRules are the stage 1 rules.
var IdentityRules = []Rule{
	{
		Field: FieldAadhaarNumber, Label: "Aadhaar Number", Step: 1, SchemaKey: "aadhaar",
		Required: true, Len: 12,
		Pattern: `^[0-9]{12}$`, PatternTag: "aadhaar",
		Messages: Messages{
			Length:  "Aadhaar number must be exactly 12 digits",
			Pattern: "Aadhaar number must contain only digits",
		},
	},
	{
		Field: FieldApplicantName, Label: "Name of Applicant", Step: 1,
		Required: true, FreeText: true, MinLen: 2, MaxLen: 100,
		Pattern: `^[a-zA-Z\s.]+$`, PatternTag: "person_name",
		Messages: Messages{
			Min:     "Name must be at least 2 characters long",
			Max:     "Name must not exceed 100 characters",
			Pattern: "Name must contain only letters, spaces, and dots",
		},
	},
	{
		Field: FieldMobileNumber, Label: "Mobile Number", Step: 1, SchemaKey: "mobile",
		Required: true, Len: 10,
		Pattern: `^[6-9][0-9]{9}$`, PatternTag: "mobile_in",
		Messages: Messages{
			Length:  "Mobile number must be exactly 10 digits",
			Pattern: "Mobile number must start with 6-9 and be 10 digits long",
		},
	},
	{
		Field: FieldEmailAddress, Label: "Email Address", Step: 1, SchemaKey: "email",
		Required: true, MaxLen: 255, Email: true,
		Messages: Messages{
			Max:   "Email address is too long",
			Email: "Please provide a valid email address",
		},
	},
	{
		Field: FieldPANNumber, Label: "PAN Number", Step: 1, SchemaKey: "pan",
		Len:     10,
		Pattern: `^[A-Z]{5}[0-9]{4}[A-Z]$`, PatternTag: "pan",
		Messages: Messages{
			Length:  "PAN number must be exactly 10 characters",
			Pattern: "PAN must be in format ABCDE1234F",
		},
	},
}

// EnterpriseRules are the stage 2 rules.
var EnterpriseRules = []Rule{
	{
		Field: FieldBusinessName, Label: "Name of Enterprise", Step: 2,
		Required: true, FreeText: true, MinLen: 2, MaxLen: 200,
		Messages: Messages{
			Min: "Business name must be at least 2 characters long",
			Max: "Business name must not exceed 200 characters",
		},
	},
	{
		Field: FieldBusinessType, Label: "Type of Organization", Step: 2,
		Required: true, Options: BusinessTypes,
		Messages: Messages{
			Required: "Please select a valid business type",
			Option:   "Please select a valid business type",
		},
	},
	{
		Field: FieldBusinessAddress, Label: "Business Address", Step: 2,
		Required: true, FreeText: true, MinLen: 10, MaxLen: 500,
		Messages: Messages{
			Min: "Business address must be at least 10 characters long",
			Max: "Business address must not exceed 500 characters",
		},
	},
	{
		Field: FieldPincode, Label: "PIN Code", Step: 2, SchemaKey: "pincode",
		Required: true, Len: 6,
		Pattern: `^[0-9]{6}$`, PatternTag: "pincode",
		Messages: Messages{
			Length:  "PIN code must be exactly 6 digits",
			Pattern: "PIN code must contain only digits",
		},
	},
	{
		Field: FieldState, Label: "State", Step: 2,
		Required: true, Derived: true, FreeText: true, MinLen: 2, MaxLen: 100,
		Messages: Messages{
			Min: "State name must be at least 2 characters long",
			Max: "State name is too long",
		},
	},
	{
		Field: FieldDistrict, Label: "District", Step: 2,
		Required: true, Derived: true, FreeText: true, MinLen: 2, MaxLen: 100,
		Messages: Messages{
			Min: "District name must be at least 2 characters long",
			Max: "District name is too long",
		},
	},
	{
		Field: FieldCity, Label: "City", Step: 2,
		Derived: true, FreeText: true, MinLen: 2, MaxLen: 100,
		Messages: Messages{
			Min: "City name must be at least 2 characters long",
			Max: "City name is too long",
		},
	},
	{
		Field: FieldGSTINNumber, Label: "GSTIN", Step: 2, SchemaKey: "gstin",
		Len:     15,
		Pattern: `^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`, PatternTag: "gstin",
		Messages: Messages{
			Length:  "GSTIN must be exactly 15 characters",
			Pattern: "Invalid GSTIN format",
		},
	},
	{
		Field: FieldBankAccountNumber, Label: "Bank Account Number", Step: 2,
		MinLen: 9, MaxLen: 18,
		Pattern: `^[0-9]{9,18}$`, PatternTag: "account_number",
		Messages: Messages{
			Min:     "Bank account number must be 9 to 18 digits",
			Max:     "Bank account number must be 9 to 18 digits",
			Pattern: "Bank account number must contain only digits",
		},
	},
	{
		Field: FieldIFSCCode, Label: "IFSC Code", Step: 2, SchemaKey: "ifsc",
		Len:     11,
		Pattern: `^[A-Z]{4}0[A-Z0-9]{6}$`, PatternTag: "ifsc",
		Messages: Messages{
			Length:  "IFSC code must be exactly 11 characters",
			Pattern: "IFSC must be in format ABCD0123456",
		},
	},
}

// AllRules returns the identity and enterprise rules in form order.
func AllRules() []Rule {
	out := make([]Rule, 0, len(IdentityRules)+len(EnterpriseRules))
	out = append(out, IdentityRules...)
	return append(out, EnterpriseRules...)
}
