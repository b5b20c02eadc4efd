package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/longhornrumble/widget-backend/internal/middleware"
	"github.com/longhornrumble/widget-backend/internal/model"
	"github.com/longhornrumble/widget-backend/internal/orchestrator"
	"github.com/longhornrumble/widget-backend/pkg/logger"
	"github.com/longhornrumble/widget-backend/pkg/metrics"
)

// maxTurnBody caps the request body. Form submissions are small; anything
// larger is abuse.
const maxTurnBody = 256 * 1024

// TurnHandler handles the widget turn endpoint.
type TurnHandler struct {
	orchestrator *orchestrator.Orchestrator
	logger       *logger.Logger
}

// NewTurnHandler creates a new turn handler.
func NewTurnHandler(orch *orchestrator.Orchestrator, log *logger.Logger) *TurnHandler {
	return &TurnHandler{
		orchestrator: orch,
		logger:       log,
	}
}

// Turn handles POST /api/v1/turn
// The response is an SSE stream terminated by a single done event.
func (h *TurnHandler) Turn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.TurnRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxTurnBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateTenantHandle(req.TenantHandle); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateSessionID(req.SessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.FormMode {
		if err := middleware.ValidateUserInput(req.UserInput); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	emit := func(event string, data any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return sendSSEEvent(w, flusher, event, data)
	}

	h.orchestrator.HandleTurn(ctx, &req, emit)
}

// sendSSEEvent writes a single SSE event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
