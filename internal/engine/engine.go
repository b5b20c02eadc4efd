// Package engine decides what, if anything, to offer the user after an
// answer: CTA buttons, a form start, or a resume-vs-switch prompt when a
// form is already suspended.
package engine

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/longhornrumble/widget-backend/internal/model"
	"github.com/longhornrumble/widget-backend/pkg/logger"
	"github.com/longhornrumble/widget-backend/pkg/metrics"
)

const (
	// engagementThreshold is the minimum utterance length for branch CTAs.
	// A bare "ok" or "thanks" never earns a CTA.
	engagementThreshold = 20

	// maxCtas caps the CTAs attached to any single response.
	maxCtas = 3
)

// programDisplayNames maps declared program interest to a human-readable
// name for the resume-vs-switch prompt.
var programDisplayNames = map[string]string{
	"lovebox":    "Love Box",
	"daretodream": "Dare to Dream",
	"both":       "both programs",
	"unsure":     "Volunteer",
}

// Engine evaluates CTA and branch rules against a finished answer.
type Engine struct {
	logger *logger.Logger
}

// New creates a decision engine.
func New(log *logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Enhance inspects the generated answer, the user's utterance, and the
// session state, and returns the CTAs or switch metadata to attach.
// Evaluation order, first applicable wins: suspended-form gate, direct form
// trigger, branch detection.
func (e *Engine) Enhance(answer, utterance string, cfg *model.TenantConfig, session *model.SessionState) *model.Enhancement {
	combined := strings.ToLower(answer + "\n" + utterance)

	// 1. Suspended-form gate. While a form is suspended, CTAs are
	// suppressed entirely; the only possible output is a switch prompt for
	// a newly triggered different form.
	if session != nil && len(session.SuspendedForms) > 0 {
		suspendedID := session.SuspendedForms[0]
		triggered := e.matchTriggeredForm(combined, cfg, session)
		if triggered != nil && triggered.ID != suspendedID {
			metrics.CtaDecisionsTotal.WithLabelValues("program_switch").Inc()
			return &model.Enhancement{
				Enhanced: true,
				ProgramSwitch: &model.ProgramSwitch{
					SuspendedFormID:      suspendedID,
					SuspendedProgramName: e.suspendedProgramName(cfg, session, suspendedID),
					NewFormID:            triggered.ID,
					NewFormTitle:         triggered.Title,
					CtaText:              triggered.CtaText,
					Fields:               triggered.Fields,
				},
			}
		}
		metrics.CtaDecisionsTotal.WithLabelValues("suspended_suppressed").Inc()
		return &model.Enhancement{Enhanced: false}
	}

	// 2. Direct form trigger. Form triggers always take precedence over
	// branch CTAs.
	if f := e.matchTriggeredForm(combined, cfg, session); f != nil {
		metrics.CtaDecisionsTotal.WithLabelValues("form_trigger").Inc()
		return &model.Enhancement{
			Enhanced: true,
			Ctas:     []model.Cta{formStartCta(f)},
		}
	}

	// 3. Branch detection. Requires an engaged user; first matching branch
	// wins regardless of how its CTAs filter down.
	if engaged(utterance) {
		for _, branch := range cfg.Branches {
			if !anyKeywordMatches(branch.DetectionKeywords, combined) {
				continue
			}
			ctas := e.branchCtas(branch, cfg, session)
			if len(ctas) > 0 {
				metrics.CtaDecisionsTotal.WithLabelValues("branch").Inc()
				return &model.Enhancement{Enhanced: true, Ctas: ctas}
			}
			break
		}
	}

	metrics.CtaDecisionsTotal.WithLabelValues("none").Inc()
	return &model.Enhancement{Enhanced: false}
}

// matchTriggeredForm returns the first form whose trigger phrases appear in
// the combined answer+utterance text, skipping forms whose program the
// session already completed. Forms are scanned in sorted id order so the
// result is deterministic.
func (e *Engine) matchTriggeredForm(combined string, cfg *model.TenantConfig, session *model.SessionState) *model.FormDefinition {
	ids := make([]string, 0, len(cfg.Forms))
	for id := range cfg.Forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		f := cfg.Forms[id]
		if session.HasCompleted(f.Program) {
			continue
		}
		if anyKeywordMatches(f.TriggerPhrases, combined) {
			return &f
		}
	}
	return nil
}

// branchCtas resolves a branch's primary and secondary CTAs, filters out
// form CTAs for completed programs, and applies the overall cap.
func (e *Engine) branchCtas(branch model.BranchRule, cfg *model.TenantConfig, session *model.SessionState) []model.Cta {
	ids := append([]string{branch.PrimaryCta}, branch.SecondaryCtas...)

	ctas := make([]model.Cta, 0, len(ids))
	for _, id := range ids {
		def := cfg.Cta(id)
		if def == nil {
			continue
		}
		if def.Action == model.CtaActionStartForm && session.HasCompleted(e.ctaProgram(def, cfg)) {
			continue
		}
		ctas = append(ctas, normalizeCta(def))
		if len(ctas) == maxCtas {
			break
		}
	}
	return ctas
}

// ctaProgram resolves the program a form CTA belongs to, preferring the
// CTA's own tag over the target form's.
func (e *Engine) ctaProgram(def *model.CtaDefinition, cfg *model.TenantConfig) string {
	if def.Program != "" {
		return def.Program
	}
	if f := cfg.Form(def.FormID); f != nil {
		return f.Program
	}
	return ""
}

// suspendedProgramName resolves the display name for the suspended form's
// program from declared interest, falling back to the form's own title.
func (e *Engine) suspendedProgramName(cfg *model.TenantConfig, session *model.SessionState, suspendedID string) string {
	if name, ok := programDisplayNames[strings.ToLower(session.ProgramInterest)]; ok {
		return name
	}
	if f := cfg.Form(suspendedID); f != nil && f.Title != "" {
		return f.Title
	}
	return suspendedID
}

// engaged reports whether the utterance is substantive enough to justify
// offering CTAs.
func engaged(utterance string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(utterance)) >= engagementThreshold
}

// anyKeywordMatches reports whether any keyword appears in the text.
// Matching is case-insensitive; keywords of three runes or fewer require
// word boundaries so a short trigger like "dd" cannot fire inside an
// unrelated word.
func anyKeywordMatches(keywords []string, loweredText string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if utf8.RuneCountInString(kw) <= 3 {
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			if re.MatchString(loweredText) {
				return true
			}
			continue
		}
		if strings.Contains(loweredText, kw) {
			return true
		}
	}
	return false
}

func formStartCta(f *model.FormDefinition) model.Cta {
	label := f.CtaText
	if label == "" {
		label = "Start " + f.Title
	}
	return model.Cta{
		Label:  label,
		Action: model.CtaActionStartForm,
		FormID: f.ID,
	}
}

func normalizeCta(def *model.CtaDefinition) model.Cta {
	return model.Cta{
		Label:    def.Label,
		Action:   def.Action,
		FormID:   def.FormID,
		URL:      def.URL,
		InfoType: def.InfoType,
	}
}
