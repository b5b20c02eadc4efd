// Package fulfill routes completed form submissions to delivery channels.
package fulfill

import (
	"strings"

	"github.com/longhornrumble/widget-backend/internal/model"
)

// urgencyMap fixes the mapping from an explicit urgency field to a tier.
var urgencyMap = map[string]model.Priority{
	"immediate": model.PriorityHigh,
	"urgent":    model.PriorityHigh,
	"high":      model.PriorityHigh,
	"normal":    model.PriorityNormal,
	"this week": model.PriorityNormal,
	"low":       model.PriorityLow,
}

// formTypeDefaults maps conventional form-id prefixes to a default tier,
// for configs that predate the explicit DefaultPriority field.
var formTypeDefaults = []struct {
	prefix   string
	priority model.Priority
}{
	{"support", model.PriorityHigh},
	{"urgent", model.PriorityHigh},
	{"volunteer", model.PriorityNormal},
	{"signup", model.PriorityLow},
	{"newsletter", model.PriorityLow},
}

// ResolvePriority determines the submission tier. Precedence, earlier
// sources always winning: explicit urgency field, the form's configured
// priority rules (first match wins), the form's default, then normal.
func ResolvePriority(def *model.FormDefinition, formData map[string]string) model.Priority {
	if urgency, ok := formData["urgency"]; ok {
		if p, ok := urgencyMap[strings.ToLower(strings.TrimSpace(urgency))]; ok {
			return p
		}
	}

	for _, rule := range def.PriorityRules {
		if v, ok := formData[rule.Field]; ok && strings.EqualFold(strings.TrimSpace(v), rule.Value) {
			return rule.Priority
		}
	}

	if def.DefaultPriority != "" {
		return def.DefaultPriority
	}

	id := strings.ToLower(def.ID)
	for _, d := range formTypeDefaults {
		if strings.HasPrefix(id, d.prefix) {
			return d.priority
		}
	}

	return model.PriorityNormal
}
