// Package validation checks registration payloads against the rule table and
// strips markup from free-text fields.
package validation

import (
	"errors"
	"html"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/Kakrote/udyam-registration-app/internal/registration/models"
	dErrors "github.com/Kakrote/udyam-registration-app/pkg/domain-errors"
)

// Validator is safe for concurrent use once constructed.
type Validator struct {
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

// New builds a validator with one custom tag per pattern rule.
func New() *Validator {
	v := &Validator{
		validate:  validator.New(),
		sanitizer: bluemonday.StrictPolicy(),
	}
	for _, rule := range models.AllRules() {
		if rule.PatternTag == "" {
			continue
		}
		re := regexp.MustCompile(rule.Pattern)
		// Registration only fails for an empty tag or nil func.
		_ = v.validate.RegisterValidation(rule.PatternTag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		})
	}
	return v
}

// Sanitize removes markup and surrounding whitespace. Entities produced by the
// sanitizer are decoded so "A & B" survives unchanged.
func (v *Validator) Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(v.sanitizer.Sanitize(s)))
}

// Check validates values against rules and reports the first failure of every
// field, in rule order.
func (v *Validator) Check(rules []models.Rule, values map[string]string) dErrors.FieldErrors {
	var errs dErrors.FieldErrors
	for _, rule := range rules {
		err := v.validate.Var(values[rule.Field], rule.Tag())
		if err == nil {
			continue
		}
		tag := ""
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			tag = verrs[0].Tag()
		}
		code, msg := rule.Failure(tag)
		errs.Add(rule.Field, code, msg)
	}
	return errs
}

// Identity sanitizes free-text fields in place and validates the identity as
// a unit.
func (v *Validator) Identity(id *models.Identity) dErrors.FieldErrors {
	v.sanitizeFreeText(models.IdentityRules, id.Values(), id.Set)
	return v.Check(models.IdentityRules, id.Values())
}

// EnterpriseFields sanitizes free-text fields in place and validates every
// field that is not derived from the postal code.
func (v *Validator) EnterpriseFields(e *models.Enterprise) dErrors.FieldErrors {
	v.sanitizeFreeText(models.EnterpriseRules, e.Values(), e.Set)
	return v.Check(selectRules(models.EnterpriseRules, false), e.Values())
}

// DerivedFields validates state, district and city after auto-fill.
func (v *Validator) DerivedFields(e models.Enterprise) dErrors.FieldErrors {
	return v.Check(selectRules(models.EnterpriseRules, true), e.Values())
}

func selectRules(rules []models.Rule, derived bool) []models.Rule {
	out := make([]models.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Derived == derived {
			out = append(out, r)
		}
	}
	return out
}

func (v *Validator) sanitizeFreeText(rules []models.Rule, values map[string]string, set func(field, value string)) {
	for _, r := range rules {
		if r.FreeText {
			set(r.Field, v.Sanitize(values[r.Field]))
		}
	}
}
