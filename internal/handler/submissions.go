package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/longhornrumble/widget-backend/internal/middleware"
	"github.com/longhornrumble/widget-backend/internal/store"
)

// SubmissionHandler serves the authenticated admin lookup for persisted
// submissions.
type SubmissionHandler struct {
	store store.Store
}

// NewSubmissionHandler creates a new submission handler.
func NewSubmissionHandler(s store.Store) *SubmissionHandler {
	return &SubmissionHandler{store: s}
}

// Get handles GET /api/v1/admin/submissions/{id}
// The tenant comes from the JWT, never from the URL.
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		writeError(w, http.StatusUnauthorized, "missing tenant claim")
		return
	}

	submissionID := chi.URLParam(r, "id")
	sub, err := h.store.GetSubmission(r.Context(), tenantID, submissionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load submission")
		return
	}

	writeJSON(w, http.StatusOK, sub)
}
