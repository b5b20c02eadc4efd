package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longhornrumble/widget-backend/internal/engine"
	"github.com/longhornrumble/widget-backend/internal/fulfill"
	"github.com/longhornrumble/widget-backend/internal/llm"
	"github.com/longhornrumble/widget-backend/internal/model"
	"github.com/longhornrumble/widget-backend/internal/orchestrator"
	"github.com/longhornrumble/widget-backend/internal/store"
	"github.com/longhornrumble/widget-backend/internal/tenant"
	"github.com/longhornrumble/widget-backend/pkg/logger"
)

type scriptedLLM struct {
	tokens []string
}

func (s *scriptedLLM) CompleteStream(ctx context.Context, req *llm.CompletionRequest, cb llm.StreamCallback) (*llm.CompletionResponse, error) {
	var content string
	for i, tok := range s.tokens {
		if err := cb(tok, i); err != nil {
			return nil, err
		}
		content += tok
	}
	return &llm.CompletionResponse{Content: content}, nil
}

func (s *scriptedLLM) Name() string { return "scripted" }

type fixedTenantStore struct {
	cfg *model.TenantConfig
}

func (s *fixedTenantStore) Resolve(ctx context.Context, handle string) (*model.TenantConfig, error) {
	return s.cfg, nil
}

type discardEmail struct{}

func (discardEmail) Send(ctx context.Context, to []string, subject, body string) error { return nil }

type discardSMS struct{}

func (discardSMS) Send(ctx context.Context, to, message string) error { return nil }

type discardWebhook struct{}

func (discardWebhook) Send(ctx context.Context, url string, payload any) error { return nil }

type discardInvoker struct{}

func (discardInvoker) Invoke(ctx context.Context, function string, payload any) error { return nil }

type discardArchiver struct{}

func (discardArchiver) Put(ctx context.Context, bucket, key string, data []byte) error { return nil }

func newTestHandler(t *testing.T, tokens []string) *TurnHandler {
	t.Helper()
	log := logger.NewNop()
	mem := store.NewInMemoryStore()
	router := fulfill.NewRouter(mem, fulfill.NewSMSLimiter(mem, 100, log),
		discardEmail{}, discardSMS{}, discardWebhook{}, discardInvoker{}, discardArchiver{}, log)
	cfg := &model.TenantConfig{TenantID: "t1", ModelID: "claude-3-5-haiku-20241022", MaxTokens: 512}
	resolver := tenant.NewResolver(&fixedTenantStore{cfg: cfg}, time.Minute, log)
	orch := orchestrator.New(resolver, nil, &scriptedLLM{tokens: tokens}, engine.New(log), router, nil, log)
	return NewTurnHandler(orch, log)
}

func TestTurnStreamsSSE(t *testing.T) {
	h := newTestHandler(t, []string{"Hi ", "there."})

	body := `{"tenant_handle":"acme","user_input":"what programs do you offer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turn", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Turn(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	assert.Contains(t, out, "event: token\n")
	assert.Contains(t, out, `data: {"token":"Hi ","index":0}`)
	assert.Contains(t, out, "event: done\n")
	assert.Contains(t, out, `data: {"success":true}`)

	// done is the terminal event
	assert.Equal(t, 1, strings.Count(out, "event: done\n"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), `{"success":true}`))
}

func TestTurnRejectsBadBody(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/turn", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.Turn(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestTurnRejectsMissingHandle(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/turn", strings.NewReader(`{"user_input":"hello"}`))
	rec := httptest.NewRecorder()

	h.Turn(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTurnRejectsEmptyInputOutsideFormMode(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/turn", strings.NewReader(`{"tenant_handle":"acme"}`))
	rec := httptest.NewRecorder()

	h.Turn(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTurnFormModeSkipsInputValidation(t *testing.T) {
	h := newTestHandler(t, nil)

	body := `{"tenant_handle":"acme","form_mode":true,"action":"validate_field","form_id":"missing","field_id":"email","field_value":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turn", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Turn(rec, req)

	// Reaches the SSE stream; the unknown form surfaces as an error event,
	// not an HTTP status.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: error\n")
	assert.Contains(t, rec.Body.String(), `{"success":false}`)
}
