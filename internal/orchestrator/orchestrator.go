// Package orchestrator dispatches widget turns: deterministic form
// operations on one path, streaming generation plus CTA enhancement on the
// other. Every turn ends with exactly one done event regardless of what
// failed along the way.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/longhornrumble/widget-backend/internal/engine"
	"github.com/longhornrumble/widget-backend/internal/form"
	"github.com/longhornrumble/widget-backend/internal/fulfill"
	"github.com/longhornrumble/widget-backend/internal/llm"
	"github.com/longhornrumble/widget-backend/internal/model"
	"github.com/longhornrumble/widget-backend/internal/nats"
	"github.com/longhornrumble/widget-backend/internal/retrieval"
	"github.com/longhornrumble/widget-backend/internal/tenant"
	"github.com/longhornrumble/widget-backend/pkg/logger"
	"github.com/longhornrumble/widget-backend/pkg/metrics"
)

// Emitter delivers one named event to the client. An error means the client
// is gone and the turn should stop producing output.
type Emitter func(event string, data any) error

// Auditor publishes best-effort audit events. Satisfied by
// *nats.StreamManager; nil disables auditing.
type Auditor interface {
	PublishTurnEvent(ctx context.Context, event *nats.TurnEvent) (uint64, error)
	PublishSubmissionEvent(ctx context.Context, event *nats.SubmissionEvent) (uint64, error)
}

// Orchestrator wires the turn pipeline together.
type Orchestrator struct {
	resolver  *tenant.Resolver
	retriever *retrieval.Retriever
	llm       llm.Client
	engine    *engine.Engine
	router    *fulfill.Router
	auditor   Auditor
	logger    *logger.Logger
}

// New creates a turn orchestrator. retriever and auditor may be nil.
func New(
	resolver *tenant.Resolver,
	retriever *retrieval.Retriever,
	client llm.Client,
	eng *engine.Engine,
	router *fulfill.Router,
	auditor Auditor,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		resolver:  resolver,
		retriever: retriever,
		llm:       client,
		engine:    eng,
		router:    router,
		auditor:   auditor,
		logger:    log,
	}
}

// HandleTurn processes one turn, emitting events through emit. It always
// emits a final done event, exactly once, even when the turn fails.
func (o *Orchestrator) HandleTurn(ctx context.Context, req *model.TurnRequest, emit Emitter) {
	start := time.Now()
	correlationID := uuid.NewString()
	log := o.logger.WithTurn(correlationID, req.TenantHandle, req.SessionID)

	mode := "conversation"
	if req.FormMode {
		mode = "form"
	}

	var success bool
	if req.FormMode {
		success = o.handleFormTurn(ctx, req, emit, log)
	} else {
		success = o.handleConversationTurn(ctx, req, emit, log)
	}

	if err := emit(model.EventDone, model.DoneEvent{Success: success}); err != nil {
		log.Debug("client disconnected before done event", zap.Error(err))
	}

	status := "success"
	if !success {
		status = "error"
	}
	metrics.RecordTurn(req.TenantHandle, mode, status, time.Since(start).Seconds())
	o.auditTurn(req, correlationID, mode, success)
}

// handleFormTurn runs the deterministic form path. It never calls the model
// or retrieval.
func (o *Orchestrator) handleFormTurn(ctx context.Context, req *model.TurnRequest, emit Emitter, log *logger.Logger) bool {
	if req.TenantHandle == "" {
		o.emitError(emit, "invalid_request", "tenant handle is required", log)
		return false
	}

	cfg := o.resolver.Config(ctx, req.TenantHandle)

	switch req.Action {
	case model.FormActionValidateField:
		def := cfg.Form(req.FormID)
		if def == nil {
			o.emitError(emit, "unknown_form", "form is not configured for this tenant", log)
			return false
		}
		result := form.ValidateField(def, req.FieldID, req.FieldValue)
		event := model.EventValidationSuccess
		if !result.Valid {
			event = model.EventValidationError
		}
		if err := emit(event, result); err != nil {
			log.Debug("client disconnected during validation", zap.Error(err))
			return false
		}
		return true

	case model.FormActionSubmitForm:
		res := o.router.Submit(ctx, cfg.TenantID, req.FormID, req.FormData, cfg)
		if res.Status != "success" {
			if err := emit(model.EventFormError, res); err != nil {
				log.Debug("client disconnected during submission", zap.Error(err))
			}
			return false
		}
		o.auditSubmission(cfg.TenantID, res)
		if err := emit(model.EventFormComplete, res); err != nil {
			log.Debug("client disconnected during submission", zap.Error(err))
			return false
		}
		return true

	default:
		o.emitError(emit, "invalid_request", "unknown form action", log)
		return false
	}
}

// handleConversationTurn streams a generated answer and then runs CTA
// enhancement. A generation failure produces a single error event; an
// enhancement failure is swallowed so the already-streamed answer survives.
func (o *Orchestrator) handleConversationTurn(ctx context.Context, req *model.TurnRequest, emit Emitter, log *logger.Logger) bool {
	if req.TenantHandle == "" {
		o.emitError(emit, "invalid_request", "tenant handle is required", log)
		return false
	}
	if req.UserInput == "" {
		o.emitError(emit, "invalid_request", "user input is required", log)
		return false
	}

	cfg := o.resolver.Config(ctx, req.TenantHandle)

	var passages []string
	if o.retriever != nil && cfg.KnowledgeIndexID != "" {
		passages = o.retriever.Retrieve(ctx, cfg.KnowledgeIndexID, req.UserInput)
	}

	completion := &llm.CompletionRequest{
		Model:       cfg.ModelID,
		System:      BuildSystemPrompt(cfg, passages),
		Messages:    BuildMessages(req.ConversationHistory, req.UserInput),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	streamStart := time.Now()
	resp, err := o.llm.CompleteStream(ctx, completion, func(token string, index int) error {
		return emit(model.EventToken, model.TokenEvent{Token: token, Index: index})
	})
	if err != nil {
		metrics.RecordLLMStream(cfg.ModelID, "error", time.Since(streamStart).Seconds(), 0, 0)
		log.Error("streaming completion failed",
			zap.String("model", cfg.ModelID),
			zap.Error(err),
		)
		o.emitError(emit, "generation_failed", "the assistant could not produce a response", log)
		return false
	}
	metrics.RecordLLMStream(cfg.ModelID, "success", time.Since(streamStart).Seconds(), resp.TokensIn, resp.TokensOut)

	if enh := o.enhance(resp.Content, req.UserInput, cfg, req.SessionContext, log); enh != nil && enh.Enhanced {
		if err := emit(model.EventCta, enh); err != nil {
			log.Debug("client disconnected before cta event", zap.Error(err))
			return false
		}
	}

	return true
}

// enhance runs the CTA engine with a panic guard. Enhancement is additive;
// a failure here must not take down a turn that already answered.
func (o *Orchestrator) enhance(answer, utterance string, cfg *model.TenantConfig, session *model.SessionState, log *logger.Logger) (enh *model.Enhancement) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("cta enhancement panicked", zap.Any("panic", p))
			enh = nil
		}
	}()
	return o.engine.Enhance(answer, utterance, cfg, session)
}

func (o *Orchestrator) emitError(emit Emitter, code, message string, log *logger.Logger) {
	if err := emit(model.EventError, model.ErrorEvent{Code: code, Message: message}); err != nil {
		log.Debug("client disconnected before error event", zap.Error(err))
	}
}

// auditTurn publishes the turn audit record. Best effort with a short
// deadline detached from the request context.
func (o *Orchestrator) auditTurn(req *model.TurnRequest, correlationID, mode string, success bool) {
	if o.auditor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := o.auditor.PublishTurnEvent(ctx, &nats.TurnEvent{
		TenantID:      req.TenantHandle,
		SessionID:     req.SessionID,
		CorrelationID: correlationID,
		Mode:          mode,
		Success:       success,
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		o.logger.Warn("turn audit publish failed", zap.Error(err))
	}
}

func (o *Orchestrator) auditSubmission(tenantID string, res *model.SubmissionResult) {
	if o.auditor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := o.auditor.PublishSubmissionEvent(ctx, &nats.SubmissionEvent{
		TenantID:     tenantID,
		FormID:       res.FormID,
		SubmissionID: res.SubmissionID,
		Priority:     res.Priority,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		o.logger.Warn("submission audit publish failed", zap.Error(err))
	}
}
