package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longhornrumble/widget-backend/internal/model"
	"github.com/longhornrumble/widget-backend/pkg/logger"
)

func testConfig() *model.TenantConfig {
	return &model.TenantConfig{
		TenantID: "t1",
		Ctas: map[string]model.CtaDefinition{
			"apply_lovebox": {
				Label:   "Apply for Love Box",
				Action:  model.CtaActionStartForm,
				FormID:  "lb_apply",
				Program: "lovebox",
			},
			"apply_dtd": {
				Label:   "Apply for Dare to Dream",
				Action:  model.CtaActionStartForm,
				FormID:  "dtd_apply",
				Program: "daretodream",
			},
			"learn_more": {
				Label:  "Learn more",
				Action: model.CtaActionExternalLink,
				URL:    "https://example.org/programs",
			},
			"faq": {
				Label:    "See FAQs",
				Action:   model.CtaActionShowInfo,
				InfoType: "faq",
			},
			"donate": {
				Label:  "Donate",
				Action: model.CtaActionExternalLink,
				URL:    "https://example.org/donate",
			},
		},
		Branches: []model.BranchRule{
			{
				ID:                "volunteer",
				DetectionKeywords: []string{"volunteer", "give back"},
				PrimaryCta:        "apply_lovebox",
				SecondaryCtas:     []string{"apply_dtd", "learn_more", "faq", "donate"},
			},
			{
				ID:                "giving",
				DetectionKeywords: []string{"donate", "contribution"},
				PrimaryCta:        "donate",
			},
		},
		Forms: map[string]model.FormDefinition{
			"lb_apply": {
				ID:             "lb_apply",
				Title:          "Love Box Application",
				CtaText:        "Start your Love Box application",
				Program:        "lovebox",
				TriggerPhrases: []string{"apply for love box", "love box application"},
				Fields:         []model.FormField{{ID: "name", Type: model.FieldTypeText, Required: true}},
			},
			"dtd_apply": {
				ID:             "dtd_apply",
				Title:          "Dare to Dream Application",
				CtaText:        "Start your Dare to Dream application",
				Program:        "daretodream",
				TriggerPhrases: []string{"apply for dare to dream", "become a mentor"},
				Fields:         []model.FormField{{ID: "name", Type: model.FieldTypeText, Required: true}},
			},
		},
	}
}

func newEngine() *Engine {
	return New(logger.NewNop())
}

const engagedUtterance = "I would really like to get involved and volunteer with you"

func TestUnengagedUtteranceYieldsNoCtas(t *testing.T) {
	e := newEngine()

	// Keywords present in the answer, but "ok" is not engagement.
	res := e.Enhance("You could volunteer with us!", "ok", testConfig(), &model.SessionState{})

	assert.False(t, res.Enhanced)
	assert.Empty(t, res.Ctas)
	assert.Nil(t, res.ProgramSwitch)
}

func TestBranchCtaCapIsThree(t *testing.T) {
	e := newEngine()

	res := e.Enhance("Volunteering is a great way to help.", engagedUtterance, testConfig(), &model.SessionState{})

	require.True(t, res.Enhanced)
	assert.Len(t, res.Ctas, 3)
	// Primary always leads.
	assert.Equal(t, "Apply for Love Box", res.Ctas[0].Label)
}

func TestCompletedProgramFilteredBeforeCap(t *testing.T) {
	e := newEngine()
	session := &model.SessionState{CompletedForms: []string{"lovebox"}}

	res := e.Enhance("Volunteering is a great way to help.", engagedUtterance, testConfig(), session)

	require.True(t, res.Enhanced)
	assert.Len(t, res.Ctas, 3)
	for _, cta := range res.Ctas {
		assert.NotEqual(t, "lb_apply", cta.FormID)
	}
	// Non-form CTAs survive completion filtering.
	labels := []string{res.Ctas[0].Label, res.Ctas[1].Label, res.Ctas[2].Label}
	assert.Equal(t, []string{"Apply for Dare to Dream", "Learn more", "See FAQs"}, labels)
}

func TestFormTriggerTakesPrecedenceOverBranch(t *testing.T) {
	e := newEngine()

	res := e.Enhance(
		"You can apply for Love Box today.",
		"I want to volunteer and apply for love box please",
		testConfig(),
		&model.SessionState{},
	)

	require.True(t, res.Enhanced)
	require.Len(t, res.Ctas, 1)
	assert.Equal(t, model.CtaActionStartForm, res.Ctas[0].Action)
	assert.Equal(t, "lb_apply", res.Ctas[0].FormID)
	assert.Equal(t, "Start your Love Box application", res.Ctas[0].Label)
}

func TestCompletedProgramSuppressesDirectTrigger(t *testing.T) {
	e := newEngine()
	session := &model.SessionState{CompletedForms: []string{"lovebox"}}

	res := e.Enhance(
		"You can apply for Love Box today.",
		"short question here ok",
		testConfig(),
		session,
	)

	// The trigger matched but the program is complete; nothing is offered.
	assert.False(t, res.Enhanced)
	assert.Empty(t, res.Ctas)
}

func TestSuspendedSameFormRetriggeredSuppressesEverything(t *testing.T) {
	e := newEngine()
	session := &model.SessionState{SuspendedForms: []string{"lb_apply"}}

	res := e.Enhance(
		"Let's continue your Love Box application.",
		"I still want to apply for love box",
		testConfig(),
		session,
	)

	assert.False(t, res.Enhanced)
	assert.Empty(t, res.Ctas)
	assert.Nil(t, res.ProgramSwitch)
}

func TestSuspendedNothingTriggeredSuppressesCtas(t *testing.T) {
	e := newEngine()
	session := &model.SessionState{SuspendedForms: []string{"lb_apply"}}

	// Branch keywords match and the user is engaged, but a suspended form
	// suppresses CTAs entirely.
	res := e.Enhance("Volunteering is wonderful.", engagedUtterance, testConfig(), session)

	assert.False(t, res.Enhanced)
	assert.Empty(t, res.Ctas)
	assert.Nil(t, res.ProgramSwitch)
}

func TestSuspendedDifferentFormTriggersSwitch(t *testing.T) {
	e := newEngine()
	session := &model.SessionState{
		SuspendedForms:  []string{"lb_apply"},
		ProgramInterest: "lovebox",
	}

	res := e.Enhance(
		"Dare to Dream mentors change lives.",
		"Actually I want to become a mentor instead",
		testConfig(),
		session,
	)

	require.True(t, res.Enhanced)
	assert.Empty(t, res.Ctas)
	require.NotNil(t, res.ProgramSwitch)
	assert.Equal(t, "lb_apply", res.ProgramSwitch.SuspendedFormID)
	assert.Equal(t, "Love Box", res.ProgramSwitch.SuspendedProgramName)
	assert.Equal(t, "dtd_apply", res.ProgramSwitch.NewFormID)
	assert.Equal(t, "Dare to Dream Application", res.ProgramSwitch.NewFormTitle)
	assert.NotEmpty(t, res.ProgramSwitch.Fields)
}

func TestSwitchNameFallsBackToFormTitle(t *testing.T) {
	e := newEngine()
	session := &model.SessionState{SuspendedForms: []string{"lb_apply"}}

	res := e.Enhance("", "Actually I want to become a mentor instead", testConfig(), session)

	require.NotNil(t, res.ProgramSwitch)
	assert.Equal(t, "Love Box Application", res.ProgramSwitch.SuspendedProgramName)
}

func TestProgramInterestDisplayNames(t *testing.T) {
	e := newEngine()
	cases := map[string]string{
		"daretodream": "Dare to Dream",
		"both":        "both programs",
		"unsure":      "Volunteer",
	}
	for interest, want := range cases {
		session := &model.SessionState{
			SuspendedForms:  []string{"lb_apply"},
			ProgramInterest: interest,
		}
		res := e.Enhance("", "Actually I want to become a mentor instead", testConfig(), session)
		require.NotNil(t, res.ProgramSwitch, interest)
		assert.Equal(t, want, res.ProgramSwitch.SuspendedProgramName)
	}
}

func TestShortKeywordRequiresWordBoundary(t *testing.T) {
	cfg := testConfig()
	cfg.Branches = []model.BranchRule{
		{
			ID:                "dtd_short",
			DetectionKeywords: []string{"dd"},
			PrimaryCta:        "apply_dtd",
		},
	}
	e := newEngine()

	// "dd" inside "added" must not fire.
	res := e.Enhance("We added new programs this year.", engagedUtterance, cfg, &model.SessionState{})
	assert.False(t, res.Enhanced)

	// Standalone "dd" fires.
	res = e.Enhance("Ask about dd if you are curious.", engagedUtterance, cfg, &model.SessionState{})
	assert.True(t, res.Enhanced)
}

func TestFirstMatchingBranchWins(t *testing.T) {
	e := newEngine()

	res := e.Enhance(
		"You can volunteer or donate.",
		"tell me about how i could donate and volunteer",
		testConfig(),
		&model.SessionState{},
	)

	require.True(t, res.Enhanced)
	// The volunteer branch is configured first; no scoring across branches.
	assert.Equal(t, "Apply for Love Box", res.Ctas[0].Label)
}

func TestNothingMatchedReturnsNotEnhanced(t *testing.T) {
	e := newEngine()

	res := e.Enhance("We are open Monday to Friday.", "what are your opening hours today", testConfig(), &model.SessionState{})

	assert.False(t, res.Enhanced)
	assert.Empty(t, res.Ctas)
}

func TestEmptyCatalogDegradesToNoCtas(t *testing.T) {
	e := newEngine()

	res := e.Enhance("You could volunteer!", engagedUtterance, &model.TenantConfig{}, &model.SessionState{})

	assert.False(t, res.Enhanced)
}
