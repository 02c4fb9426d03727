// Package formschema publishes the step and field description the form
// client renders. Layout comes from an embedded document; every constraint is
// filled in from the registration rule table.
package formschema

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/Kakrote/udyam-registration-app/internal/registration/models"
)

//go:embed schema.json
var layout []byte

// Document is the published form schema.
type Document struct {
	Title           string                    `json:"title"`
	Steps           []Step                    `json:"steps"`
	ValidationRules map[string]ValidationRule `json:"validationRules"`
}

type Step struct {
	StepNumber int     `json:"stepNumber"`
	Title      string  `json:"title"`
	Fields     []Field `json:"fields"`
}

// Field is one form input. Name is the wire name used by the submission
// endpoints.
type Field struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Label       string          `json:"label"`
	Placeholder string          `json:"placeholder,omitempty"`
	Required    bool            `json:"required"`
	AutoFilled  bool            `json:"autoFilled,omitempty"`
	Length      int             `json:"length,omitempty"`
	MinLength   int             `json:"minLength,omitempty"`
	MaxLength   int             `json:"maxLength,omitempty"`
	Pattern     string          `json:"pattern,omitempty"`
	Options     []models.Option `json:"options,omitempty"`
	Step        int             `json:"step"`
}

// ValidationRule is the client-side summary of a rule.
type ValidationRule struct {
	Pattern  string `json:"pattern,omitempty"`
	Format   string `json:"format,omitempty"`
	Message  string `json:"message"`
	Required bool   `json:"required"`
}

// Build merges the embedded layout with rules. Every field in the layout must
// have a rule.
func Build(rules []models.Rule) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(layout, &doc); err != nil {
		return nil, fmt.Errorf("parse form layout: %w", err)
	}

	byField := make(map[string]models.Rule, len(rules))
	for _, r := range rules {
		byField[r.Field] = r
	}

	for si := range doc.Steps {
		step := &doc.Steps[si]
		for fi := range step.Fields {
			f := &step.Fields[fi]
			rule, ok := byField[f.Name]
			if !ok {
				return nil, fmt.Errorf("form field %q has no validation rule", f.Name)
			}
			f.ID = f.Name
			f.Label = rule.Label
			f.Required = rule.Required
			f.AutoFilled = rule.Derived
			f.Length = rule.Len
			f.MinLength = rule.MinLen
			f.MaxLength = rule.MaxLen
			if rule.Len > 0 {
				f.MaxLength = rule.Len
			}
			f.Pattern = rule.Pattern
			f.Options = rule.Options
			f.Step = step.StepNumber
		}
	}

	doc.ValidationRules = make(map[string]ValidationRule)
	for _, r := range rules {
		if r.Pattern == "" && !r.Email {
			continue
		}
		key := r.SchemaKey
		if key == "" {
			key = r.Field
		}
		vr := ValidationRule{Pattern: r.Pattern, Required: r.Required, Message: r.Messages.Pattern}
		if r.Email {
			vr.Format = "email"
			vr.Message = r.Messages.Email
		}
		doc.ValidationRules[key] = vr
	}
	return &doc, nil
}
