package model

// FormAction selects the deterministic operation in form mode.
type FormAction string

const (
	FormActionValidateField FormAction = "validate_field"
	FormActionSubmitForm    FormAction = "submit_form"
)

// HistoryEntry is one prior turn supplied by the client.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionState is caller-supplied conversation state. The backend never
// mutates it; state transitions it decides are applied by the caller on the
// next turn.
type SessionState struct {
	CompletedForms  []string `json:"completed_forms,omitempty"`
	SuspendedForms  []string `json:"suspended_forms,omitempty"`
	ProgramInterest string   `json:"program_interest,omitempty"`
}

// HasCompleted reports whether the session already completed the program.
func (s *SessionState) HasCompleted(program string) bool {
	if s == nil || program == "" {
		return false
	}
	for _, p := range s.CompletedForms {
		if p == program {
			return true
		}
	}
	return false
}

// TurnRequest is one inbound widget turn.
type TurnRequest struct {
	TenantHandle string `json:"tenant_handle"`
	SessionID    string `json:"session_id,omitempty"`
	UserInput    string `json:"user_input,omitempty"`

	// Form mode. When FormMode is true the turn is handled deterministically
	// and never reaches generation or retrieval.
	FormMode   bool              `json:"form_mode,omitempty"`
	Action     FormAction        `json:"action,omitempty"`
	FieldID    string            `json:"field_id,omitempty"`
	FieldValue string            `json:"field_value,omitempty"`
	FormID     string            `json:"form_id,omitempty"`
	FormData   map[string]string `json:"form_data,omitempty"`

	ConversationHistory []HistoryEntry `json:"conversation_history,omitempty"`
	SessionContext      *SessionState  `json:"session_context,omitempty"`
}

// Event names on the outbound stream.
const (
	EventToken             = "token"
	EventCta               = "cta"
	EventValidationSuccess = "validation_success"
	EventValidationError   = "validation_error"
	EventFormComplete      = "form_complete"
	EventFormError         = "form_error"
	EventError             = "error"
	EventDone              = "done"
)

// TokenEvent carries one incremental text fragment.
type TokenEvent struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

// ErrorEvent is the terminal payload for a failed turn.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the payload for validation_success / validation_error.
type ValidationResult struct {
	FieldID string `json:"field_id"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Cta is the normalized caller-facing CTA shape, uniform whether it came
// from a direct form trigger or a branch rule.
type Cta struct {
	Label    string    `json:"label"`
	Action   CtaAction `json:"action"`
	FormID   string    `json:"form_id,omitempty"`
	URL      string    `json:"url,omitempty"`
	InfoType string    `json:"info_type,omitempty"`
}

// ProgramSwitch asks the caller to confirm abandoning a suspended form for a
// newly triggered one.
type ProgramSwitch struct {
	SuspendedFormID      string      `json:"suspended_form_id"`
	SuspendedProgramName string      `json:"suspended_program_name"`
	NewFormID            string      `json:"new_form_id"`
	NewFormTitle         string      `json:"new_form_title"`
	CtaText              string      `json:"cta_text,omitempty"`
	Fields               []FormField `json:"fields,omitempty"`
}

// Enhancement is the CTA engine's decision for one answered turn.
type Enhancement struct {
	Enhanced      bool           `json:"enhanced"`
	Ctas          []Cta          `json:"ctas,omitempty"`
	ProgramSwitch *ProgramSwitch `json:"program_switch,omitempty"`
}

// DoneEvent is the stream termination marker.
type DoneEvent struct {
	Success bool `json:"success"`
}
