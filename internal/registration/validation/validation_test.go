package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kakrote/udyam-registration-app/internal/registration/models"
	dErrors "github.com/Kakrote/udyam-registration-app/pkg/domain-errors"
)

func identity() models.Identity {
	return models.Identity{
		AadhaarNumber: "123456789012",
		ApplicantName: "Asha Rao",
		MobileNumber:  "9876543210",
		EmailAddress:  "asha@example.com",
		PANNumber:     "ABCDE1234F",
	}
}

func enterprise() models.Enterprise {
	return models.Enterprise{
		BusinessName:    "Rao Textiles",
		BusinessType:    "partnership",
		BusinessAddress: "12 Market Road, Connaught Place",
		Pincode:         "110001",
		State:           "Delhi",
		District:        "Central Delhi",
		City:            "New Delhi",
		GSTINNumber:     "07ABCDE1234F1Z5",
	}
}

func find(errs dErrors.FieldErrors, field string) *dErrors.FieldError {
	for i := range errs {
		if errs[i].Field == field {
			return &errs[i]
		}
	}
	return nil
}

func TestIdentity(t *testing.T) {
	v := New()

	t.Run("valid identity", func(t *testing.T) {
		id := identity()
		assert.Empty(t, v.Identity(&id))
	})

	t.Run("optional PAN may be empty", func(t *testing.T) {
		id := identity()
		id.PANNumber = ""
		assert.Empty(t, v.Identity(&id))
	})

	t.Run("short aadhaar", func(t *testing.T) {
		id := identity()
		id.AadhaarNumber = "123"
		errs := v.Identity(&id)
		require.Len(t, errs, 1)
		assert.Equal(t, models.FieldAadhaarNumber, errs[0].Field)
		assert.Equal(t, models.CodeInvalidLength, errs[0].Code)
		assert.Equal(t, "Aadhaar number must be exactly 12 digits", errs[0].Message)
	})

	t.Run("errors are aggregated across fields", func(t *testing.T) {
		id := models.Identity{
			AadhaarNumber: "12345678901a",
			ApplicantName: "A",
			MobileNumber:  "5876543210",
			EmailAddress:  "not-an-email",
			PANNumber:     "abcde1234f",
		}
		errs := v.Identity(&id)
		require.Len(t, errs, 5)

		assert.Equal(t, models.CodeInvalidFormat, find(errs, models.FieldAadhaarNumber).Code)
		assert.Equal(t, models.CodeTooShort, find(errs, models.FieldApplicantName).Code)
		assert.Equal(t, "Mobile number must start with 6-9 and be 10 digits long", find(errs, models.FieldMobileNumber).Message)
		assert.Equal(t, models.CodeInvalidEmail, find(errs, models.FieldEmailAddress).Code)
		assert.Equal(t, "PAN must be in format ABCDE1234F", find(errs, models.FieldPANNumber).Message)
	})

	t.Run("missing required fields", func(t *testing.T) {
		var id models.Identity
		errs := v.Identity(&id)
		require.Len(t, errs, 4)
		for _, e := range errs {
			assert.Equal(t, models.CodeRequired, e.Code)
		}
	})

	t.Run("markup is stripped from the name", func(t *testing.T) {
		id := identity()
		id.ApplicantName = "  <b>Asha</b> Rao "
		assert.Empty(t, v.Identity(&id))
		assert.Equal(t, "Asha Rao", id.ApplicantName)
	})
}

func TestEnterprise(t *testing.T) {
	v := New()

	t.Run("valid enterprise", func(t *testing.T) {
		e := enterprise()
		assert.Empty(t, v.EnterpriseFields(&e))
		assert.Empty(t, v.DerivedFields(e))
	})

	t.Run("field checks skip derived fields", func(t *testing.T) {
		e := enterprise()
		e.State = ""
		e.District = "X"
		assert.Empty(t, v.EnterpriseFields(&e))

		errs := v.DerivedFields(e)
		require.Len(t, errs, 2)
		assert.Equal(t, models.CodeRequired, find(errs, models.FieldState).Code)
		assert.Equal(t, models.CodeTooShort, find(errs, models.FieldDistrict).Code)
	})

	t.Run("invalid business type and pincode", func(t *testing.T) {
		e := enterprise()
		e.BusinessType = "trust"
		e.Pincode = "11000a"
		errs := v.EnterpriseFields(&e)
		require.Len(t, errs, 2)
		assert.Equal(t, "Please select a valid business type", find(errs, models.FieldBusinessType).Message)
		assert.Equal(t, models.CodeInvalidFormat, find(errs, models.FieldPincode).Code)
	})

	t.Run("long address", func(t *testing.T) {
		e := enterprise()
		e.BusinessAddress = strings.Repeat("a", 501)
		errs := v.EnterpriseFields(&e)
		require.Len(t, errs, 1)
		assert.Equal(t, models.CodeTooLong, errs[0].Code)
	})

	t.Run("bank details", func(t *testing.T) {
		e := enterprise()
		e.BankAccountNumber = "12345678"
		e.IFSCCode = "SBIN1234567"
		errs := v.EnterpriseFields(&e)
		require.Len(t, errs, 2)
		assert.Equal(t, models.CodeTooShort, find(errs, models.FieldBankAccountNumber).Code)
		assert.Equal(t, "IFSC must be in format ABCD0123456", find(errs, models.FieldIFSCCode).Message)

		e.BankAccountNumber = "123456789012"
		e.IFSCCode = "SBIN0001234"
		assert.Empty(t, v.EnterpriseFields(&e))
	})

	t.Run("bad GSTIN", func(t *testing.T) {
		e := enterprise()
		e.GSTINNumber = "07ABCDE1234F1X5"
		errs := v.EnterpriseFields(&e)
		require.Len(t, errs, 1)
		assert.Equal(t, "Invalid GSTIN format", errs[0].Message)
	})
}

func TestSanitize(t *testing.T) {
	v := New()
	assert.Equal(t, "Rao & Sons", v.Sanitize("Rao & Sons"))
	assert.Equal(t, "hi", v.Sanitize("<i>hi</i>"))
	assert.Equal(t, "", v.Sanitize("<script>alert(1)</script>"))
	assert.Equal(t, "", v.Sanitize("   "))
}

func TestSanitizeFollowsFreeTextRules(t *testing.T) {
	v := New()

	t.Run("every free-text enterprise field is stripped", func(t *testing.T) {
		e := enterprise()
		for _, r := range models.EnterpriseRules {
			if r.FreeText {
				e.Set(r.Field, "<b>"+e.Values()[r.Field]+"</b> ")
			}
		}
		want := enterprise()

		assert.Empty(t, v.EnterpriseFields(&e))
		assert.Equal(t, want, e)
	})

	t.Run("structured fields are left alone", func(t *testing.T) {
		e := enterprise()
		e.Pincode = " 110001"
		errs := v.EnterpriseFields(&e)
		assert.Equal(t, " 110001", e.Pincode)
		require.NotNil(t, find(errs, models.FieldPincode))

		id := identity()
		id.Set(models.FieldApplicantName, "<i>Asha</i> Rao")
		id.Set(models.FieldMobileNumber, "<i>9876543210</i>")
		errs = v.Identity(&id)
		assert.Equal(t, "Asha Rao", id.ApplicantName)
		assert.Equal(t, "<i>9876543210</i>", id.MobileNumber)
		require.NotNil(t, find(errs, models.FieldMobileNumber))
	})
}
