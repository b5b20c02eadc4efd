// Package model defines the shared data types for the widget backend.
package model

// CtaAction is the kind of action a CTA performs.
type CtaAction string

const (
	CtaActionStartForm    CtaAction = "start_form"
	CtaActionExternalLink CtaAction = "external_link"
	CtaActionShowInfo     CtaAction = "show_info"
)

// CtaDefinition describes a call-to-action button a tenant can surface.
// Only the payload field matching Action is meaningful.
type CtaDefinition struct {
	Label    string    `json:"label"`
	Action   CtaAction `json:"action"`
	FormID   string    `json:"form_id,omitempty"`
	URL      string    `json:"url,omitempty"`
	InfoType string    `json:"info_type,omitempty"`

	// Program tags form CTAs so completed programs can be filtered out.
	Program string `json:"program,omitempty"`
}

// BranchRule matches conversation keywords to a set of CTAs.
type BranchRule struct {
	ID                string   `json:"id"`
	DetectionKeywords []string `json:"detection_keywords"`
	PrimaryCta        string   `json:"primary_cta"`
	SecondaryCtas     []string `json:"secondary_ctas,omitempty"`
}

// FieldType is the validation type of a form field.
type FieldType string

const (
	FieldTypeText   FieldType = "text"
	FieldTypeEmail  FieldType = "email"
	FieldTypePhone  FieldType = "phone"
	FieldTypeSelect FieldType = "select"
)

// FormField is one field of a conversational form.
type FormField struct {
	ID       string    `json:"id"`
	Label    string    `json:"label,omitempty"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// PriorityRule maps a field/value pair to a submission priority.
type PriorityRule struct {
	Field    string   `json:"field"`
	Value    string   `json:"value"`
	Priority Priority `json:"priority"`
}

// FulfillmentSpec lists the delivery targets for a form's submissions.
// Channels names the enabled channels explicitly; when empty it is inferred
// from which endpoint fields are set. An enabled channel with a missing
// endpoint is a channel-level failure, not a skip.
type FulfillmentSpec struct {
	Channels        []string `json:"channels,omitempty"`
	EmailRecipients []string `json:"email_recipients,omitempty"`
	SMSRecipients   []string `json:"sms_recipients,omitempty"`
	WebhookURL      string   `json:"webhook_url,omitempty"`
	InvokeFunction  string   `json:"invoke_function,omitempty"`
	ArchiveBucket   string   `json:"archive_bucket,omitempty"`
}

// Channel names used in FulfillmentSpec.Channels and channel results.
const (
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
	ChannelWebhook = "webhook"
	ChannelInvoke  = "invoke"
	ChannelArchive = "archive"
)

// Enabled reports whether the named channel should be attempted.
func (f *FulfillmentSpec) Enabled(channel string) bool {
	if len(f.Channels) > 0 {
		for _, c := range f.Channels {
			if c == channel {
				return true
			}
		}
		return false
	}
	switch channel {
	case ChannelEmail:
		return len(f.EmailRecipients) > 0
	case ChannelSMS:
		return len(f.SMSRecipients) > 0
	case ChannelWebhook:
		return f.WebhookURL != ""
	case ChannelInvoke:
		return f.InvokeFunction != ""
	case ChannelArchive:
		return f.ArchiveBucket != ""
	}
	return false
}

// FormDefinition describes a conversational form.
type FormDefinition struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	CtaText        string          `json:"cta_text,omitempty"`
	Program        string          `json:"program,omitempty"`
	TriggerPhrases []string        `json:"trigger_phrases,omitempty"`
	Fields         []FormField     `json:"fields"`
	PriorityRules  []PriorityRule  `json:"priority_rules,omitempty"`
	DefaultPriority Priority       `json:"default_priority,omitempty"`
	Fulfillment    FulfillmentSpec `json:"fulfillment"`
}

// TenantConfig is the resolved configuration for one tenant. It is immutable
// once loaded; the config cache replaces it wholesale on refresh.
type TenantConfig struct {
	TenantID         string                    `json:"tenant_id"`
	ModelID          string                    `json:"model_id"`
	MaxTokens        int                       `json:"max_tokens"`
	Temperature      float64                   `json:"temperature"`
	ToneInstructions string                    `json:"tone_instructions,omitempty"`
	KnowledgeIndexID string                    `json:"knowledge_index_id,omitempty"`
	Ctas             map[string]CtaDefinition  `json:"ctas,omitempty"`
	Branches         []BranchRule              `json:"branches,omitempty"`
	Forms            map[string]FormDefinition `json:"forms,omitempty"`

	// DisableConfirmationEmail suppresses the post-submission thank-you email.
	DisableConfirmationEmail bool `json:"disable_confirmation_email,omitempty"`
}

// Form returns the form definition for id, or nil.
func (c *TenantConfig) Form(id string) *FormDefinition {
	if f, ok := c.Forms[id]; ok {
		return &f
	}
	return nil
}

// Cta returns the CTA definition for id, or nil.
func (c *TenantConfig) Cta(id string) *CtaDefinition {
	if d, ok := c.Ctas[id]; ok {
		return &d
	}
	return nil
}
