package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longhornrumble/widget-backend/internal/engine"
	"github.com/longhornrumble/widget-backend/internal/fulfill"
	"github.com/longhornrumble/widget-backend/internal/llm"
	"github.com/longhornrumble/widget-backend/internal/model"
	"github.com/longhornrumble/widget-backend/internal/store"
	"github.com/longhornrumble/widget-backend/internal/tenant"
	"github.com/longhornrumble/widget-backend/pkg/logger"
)

type recordedEvent struct {
	name string
	data any
}

type recorder struct {
	events  []recordedEvent
	failAt  int // emit index that starts returning errors, -1 never
	emitted int
}

func newRecorder() *recorder {
	return &recorder{failAt: -1}
}

func (r *recorder) emit(event string, data any) error {
	defer func() { r.emitted++ }()
	if r.failAt >= 0 && r.emitted >= r.failAt {
		return errors.New("client disconnected")
	}
	r.events = append(r.events, recordedEvent{name: event, data: data})
	return nil
}

func (r *recorder) names() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.name
	}
	return out
}

type fakeLLM struct {
	tokens []string
	err    error
}

func (f *fakeLLM) CompleteStream(ctx context.Context, req *llm.CompletionRequest, cb llm.StreamCallback) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	var content string
	for i, tok := range f.tokens {
		if err := cb(tok, i); err != nil {
			return nil, err
		}
		content += tok
	}
	return &llm.CompletionResponse{Content: content, Model: req.Model, TokensOut: len(f.tokens)}, nil
}

func (f *fakeLLM) Name() string { return "fake" }

type stubTenantStore struct {
	cfg *model.TenantConfig
	err error
}

func (s *stubTenantStore) Resolve(ctx context.Context, handle string) (*model.TenantConfig, error) {
	return s.cfg, s.err
}

type nopEmail struct{}

func (nopEmail) Send(ctx context.Context, to []string, subject, body string) error { return nil }

type nopSMS struct{}

func (nopSMS) Send(ctx context.Context, to, message string) error { return nil }

type nopWebhook struct{}

func (nopWebhook) Send(ctx context.Context, url string, payload any) error { return nil }

type nopInvoker struct{}

func (nopInvoker) Invoke(ctx context.Context, function string, payload any) error { return nil }

type nopArchiver struct{}

func (nopArchiver) Put(ctx context.Context, bucket, key string, data []byte) error { return nil }

func testTenantConfig() *model.TenantConfig {
	return &model.TenantConfig{
		TenantID:  "t1",
		ModelID:   "claude-3-5-haiku-20241022",
		MaxTokens: 1024,
		Ctas: map[string]model.CtaDefinition{
			"volunteer_cta": {Label: "Volunteer with us", Action: model.CtaActionStartForm, FormID: "vol_apply"},
		},
		Branches: []model.BranchRule{
			{ID: "volunteer", DetectionKeywords: []string{"volunteer"}, PrimaryCta: "volunteer_cta"},
		},
		Forms: map[string]model.FormDefinition{
			"vol_apply": {
				ID:    "vol_apply",
				Title: "Volunteer Application",
				Fields: []model.FormField{
					{ID: "email", Label: "Email", Type: "email", Required: true},
				},
				Fulfillment: model.FulfillmentSpec{EmailRecipients: []string{"staff@example.org"}},
			},
		},
	}
}

func newOrchestrator(t *testing.T, client llm.Client, cfg *model.TenantConfig) *Orchestrator {
	t.Helper()
	log := logger.NewNop()
	mem := store.NewInMemoryStore()
	router := fulfill.NewRouter(mem, fulfill.NewSMSLimiter(mem, 100, log),
		nopEmail{}, nopSMS{}, nopWebhook{}, nopInvoker{}, nopArchiver{}, log)
	resolver := tenant.NewResolver(&stubTenantStore{cfg: cfg}, time.Minute, log)
	return New(resolver, nil, client, engine.New(log), router, nil, log)
}

func TestConversationTurnStreamsTokensThenDone(t *testing.T) {
	o := newOrchestrator(t, &fakeLLM{tokens: []string{"Hello ", "there."}}, testTenantConfig())
	rec := newRecorder()

	o.HandleTurn(context.Background(), &model.TurnRequest{
		TenantHandle: "acme",
		UserInput:    "what are your office hours today please",
	}, rec.emit)

	require.Equal(t, []string{model.EventToken, model.EventToken, model.EventDone}, rec.names())
	assert.Equal(t, model.TokenEvent{Token: "Hello ", Index: 0}, rec.events[0].data)
	assert.Equal(t, model.DoneEvent{Success: true}, rec.events[2].data)
}

func TestConversationTurnEmitsCtasAfterAnswer(t *testing.T) {
	o := newOrchestrator(t, &fakeLLM{tokens: []string{"We'd love the help."}}, testTenantConfig())
	rec := newRecorder()

	o.HandleTurn(context.Background(), &model.TurnRequest{
		TenantHandle: "acme",
		UserInput:    "I would really like to volunteer with your organization",
	}, rec.emit)

	require.Equal(t, []string{model.EventToken, model.EventCta, model.EventDone}, rec.names())
	enh, ok := rec.events[1].data.(*model.Enhancement)
	require.True(t, ok)
	require.Len(t, enh.Ctas, 1)
	assert.Equal(t, "Volunteer with us", enh.Ctas[0].Label)
	assert.Equal(t, model.DoneEvent{Success: true}, rec.events[2].data)
}

func TestGenerationFailureEmitsSingleErrorThenDone(t *testing.T) {
	o := newOrchestrator(t, &fakeLLM{err: errors.New("upstream 529")}, testTenantConfig())
	rec := newRecorder()

	o.HandleTurn(context.Background(), &model.TurnRequest{
		TenantHandle: "acme",
		UserInput:    "tell me about your programs",
	}, rec.emit)

	require.Equal(t, []string{model.EventError, model.EventDone}, rec.names())
	ev := rec.events[0].data.(model.ErrorEvent)
	assert.Equal(t, "generation_failed", ev.Code)
	assert.Equal(t, model.DoneEvent{Success: false}, rec.events[1].data)
}

func TestMissingUserInputRejectedBeforeGeneration(t *testing.T) {
	o := newOrchestrator(t, &fakeLLM{tokens: []string{"never"}}, testTenantConfig())
	rec := newRecorder()

	o.HandleTurn(context.Background(), &model.TurnRequest{TenantHandle: "acme"}, rec.emit)

	require.Equal(t, []string{model.EventError, model.EventDone}, rec.names())
	ev := rec.events[0].data.(model.ErrorEvent)
	assert.Equal(t, "invalid_request", ev.Code)
}

func TestMissingTenantHandleRejected(t *testing.T) {
	o := newOrchestrator(t, &fakeLLM{}, testTenantConfig())
	rec := newRecorder()

	o.HandleTurn(context.Background(), &model.TurnRequest{UserInput: "hello"}, rec.emit)

	require.Equal(t, []string{model.EventError, model.EventDone}, rec.names())
}

func TestDegradedConfigStillAnswers(t *testing.T) {
	log := logger.NewNop()
	mem := store.NewInMemoryStore()
	router := fulfill.NewRouter(mem, fulfill.NewSMSLimiter(mem, 100, log),
		nopEmail{}, nopSMS{}, nopWebhook{}, nopInvoker{}, nopArchiver{}, log)
	resolver := tenant.NewResolver(&stubTenantStore{err: errors.New("supabase down")}, time.Minute, log)
	o := New(resolver, nil, &fakeLLM{tokens: []string{"Still here."}}, engine.New(log), router, nil, log)

	rec := newRecorder()
	o.HandleTurn(context.Background(), &model.TurnRequest{
		TenantHandle: "acme",
		UserInput:    "are you still working right now",
	}, rec.emit)

	require.Equal(t, []string{model.EventToken, model.EventDone}, rec.names())
	assert.Equal(t, model.DoneEvent{Success: true}, rec.events[1].data)
}

func TestFormValidateFieldEvents(t *testing.T) {
	o := newOrchestrator(t, &fakeLLM{}, testTenantConfig())

	rec := newRecorder()
	o.HandleTurn(context.Background(), &model.TurnRequest{
		TenantHandle: "acme",
		FormMode:     true,
		Action:       model.FormActionValidateField,
		FormID:       "vol_apply",
		FieldID:      "email",
		FieldValue:   "not-an-address",
	}, rec.emit)
	require.Equal(t, []string{model.EventValidationError, model.EventDone}, rec.names())
	assert.Equal(t, model.DoneEvent{Success: true}, rec.events[1].data)

	rec = newRecorder()
	o.HandleTurn(context.Background(), &model.TurnRequest{
		TenantHandle: "acme",
		FormMode:     true,
		Action:       model.FormActionValidateField,
		FormID:       "vol_apply",
		FieldID:      "email",
		FieldValue:   "pat@example.com",
	}, rec.emit)
	require.Equal(t, []string{model.EventValidationSuccess, model.EventDone}, rec.names())
}

func TestFormSubmitEmitsFormComplete(t *testing.T) {
	o := newOrchestrator(t, &fakeLLM{}, testTenantConfig())
	rec := newRecorder()

	o.HandleTurn(context.Background(), &model.TurnRequest{
		TenantHandle: "acme",
		FormMode:     true,
		Action:       model.FormActionSubmitForm,
		FormID:       "vol_apply",
		FormData:     map[string]string{"email": "pat@example.com"},
	}, rec.emit)

	require.Equal(t, []string{model.EventFormComplete, model.EventDone}, rec.names())
	res := rec.events[0].data.(*model.SubmissionResult)
	assert.NotEmpty(t, res.SubmissionID)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, model.DoneEvent{Success: true}, rec.events[1].data)
}

func TestFormSubmitUnknownFormIsError(t *testing.T) {
	o := newOrchestrator(t, &fakeLLM{}, testTenantConfig())
	rec := newRecorder()

	o.HandleTurn(context.Background(), &model.TurnRequest{
		TenantHandle: "acme",
		FormMode:     true,
		Action:       model.FormActionSubmitForm,
		FormID:       "no_such_form",
		FormData:     map[string]string{"email": "pat@example.com"},
	}, rec.emit)

	require.Equal(t, []string{model.EventFormError, model.EventDone}, rec.names())
	res := rec.events[0].data.(*model.SubmissionResult)
	assert.Equal(t, "failed", res.Status)
	assert.Equal(t, model.DoneEvent{Success: false}, rec.events[1].data)
}

func TestFormModeNeverCallsModel(t *testing.T) {
	o := newOrchestrator(t, &fakeLLM{err: errors.New("must not be called")}, testTenantConfig())
	rec := newRecorder()

	o.HandleTurn(context.Background(), &model.TurnRequest{
		TenantHandle: "acme",
		FormMode:     true,
		Action:       model.FormActionValidateField,
		FormID:       "vol_apply",
		FieldID:      "email",
		FieldValue:   "pat@example.com",
	}, rec.emit)

	require.Equal(t, []string{model.EventValidationSuccess, model.EventDone}, rec.names())
}

func TestDisconnectedClientStillTerminates(t *testing.T) {
	o := newOrchestrator(t, &fakeLLM{tokens: []string{"a", "b", "c"}}, testTenantConfig())
	rec := newRecorder()
	rec.failAt = 1 // disconnect after the first token

	o.HandleTurn(context.Background(), &model.TurnRequest{
		TenantHandle: "acme",
		UserInput:    "keep talking for a while please",
	}, rec.emit)

	// Only the first token reached the client; the turn still wound down
	// without emitting anything further.
	require.Equal(t, []string{model.EventToken}, rec.names())
}
