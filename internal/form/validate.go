// Package form validates conversational form fields. Validation is fully
// deterministic and never reaches generation or retrieval.
package form

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/longhornrumble/widget-backend/internal/model"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneDigits  = regexp.MustCompile(`[0-9]`)
	phoneAllowed = regexp.MustCompile(`^[0-9+\-().\s]+$`)
)

// affirmative values accepted by confirmation fields.
var affirmatives = map[string]bool{
	"yes": true, "y": true, "true": true, "confirmed": true, "i agree": true, "agree": true,
}

// ValidateField checks a single field value against its definition and the
// form-specific business rules. The result carries a human-readable message
// on failure.
func ValidateField(def *model.FormDefinition, fieldID, value string) *model.ValidationResult {
	field := findField(def, fieldID)
	if field == nil {
		return invalid(fieldID, fmt.Sprintf("Unknown field %q for form %q", fieldID, def.ID))
	}

	trimmed := strings.TrimSpace(value)

	if field.Required && trimmed == "" {
		return invalid(fieldID, fmt.Sprintf("%s is required", fieldLabel(field)))
	}
	if trimmed == "" {
		return valid(fieldID)
	}

	switch field.Type {
	case model.FieldTypeEmail:
		if !emailPattern.MatchString(trimmed) {
			return invalid(fieldID, "Please enter a valid email address")
		}
	case model.FieldTypePhone:
		if !phoneAllowed.MatchString(trimmed) || len(phoneDigits.FindAllString(trimmed, -1)) < 10 {
			return invalid(fieldID, "Please enter a valid phone number")
		}
	case model.FieldTypeSelect:
		if len(field.Options) > 0 && !containsFold(field.Options, trimmed) {
			return invalid(fieldID, fmt.Sprintf("%s must be one of the listed options", fieldLabel(field)))
		}
	}

	if isConfirmationField(fieldID) && !affirmatives[strings.ToLower(trimmed)] {
		return invalid(fieldID, fmt.Sprintf("%s must be confirmed to continue", fieldLabel(field)))
	}

	return valid(fieldID)
}

// isConfirmationField identifies business-rule confirmation fields such as
// the minimum-age and commitment acknowledgements.
func isConfirmationField(fieldID string) bool {
	id := strings.ToLower(fieldID)
	return strings.Contains(id, "age_confirm") ||
		strings.Contains(id, "commitment") ||
		strings.HasSuffix(id, "_confirm")
}

func findField(def *model.FormDefinition, fieldID string) *model.FormField {
	for i := range def.Fields {
		if def.Fields[i].ID == fieldID {
			return &def.Fields[i]
		}
	}
	return nil
}

func fieldLabel(field *model.FormField) string {
	if field.Label != "" {
		return field.Label
	}
	return field.ID
}

func containsFold(options []string, value string) bool {
	for _, o := range options {
		if strings.EqualFold(o, value) {
			return true
		}
	}
	return false
}

func valid(fieldID string) *model.ValidationResult {
	return &model.ValidationResult{FieldID: fieldID, Valid: true}
}

func invalid(fieldID, message string) *model.ValidationResult {
	return &model.ValidationResult{FieldID: fieldID, Valid: false, Message: message}
}
