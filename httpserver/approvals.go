package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/venuedesk/bookingengine/workflow"
)

// approvalHandler serves the operator-facing HIL queue endpoints: an
// operator approves, edits-then-approves, or rejects a pending task,
// which resumes the paused step via the continuation message.
type approvalHandler struct {
	router *workflow.Router
	logger zerolog.Logger
}

type approvalRequest struct {
	Operator string `json:"operator"`
}

type editRequest struct {
	Operator string `json:"operator"`
	Body     string `json:"body"`
}

func (h *approvalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	var req approvalRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Operator == "" {
		req.Operator = "unknown"
	}

	res, err := h.router.ApproveTask(r.Context(), taskID, req.Operator)
	if err != nil {
		h.logger.Warn().Err(err).Str("task_id", taskID).Msg("approve task failed")
		writeError(w, http.StatusNotFound, "validation_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *approvalHandler) EditAndApprove(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Body == "" {
		writeError(w, http.StatusBadRequest, "payload_invalid", "body is required")
		return
	}
	if req.Operator == "" {
		req.Operator = "unknown"
	}

	res, err := h.router.EditAndApproveTask(r.Context(), taskID, req.Operator, req.Body)
	if err != nil {
		h.logger.Warn().Err(err).Str("task_id", taskID).Msg("edit-and-approve task failed")
		writeError(w, http.StatusNotFound, "validation_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *approvalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	var req approvalRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Operator == "" {
		req.Operator = "unknown"
	}

	if err := h.router.RejectTask(r.Context(), taskID, req.Operator); err != nil {
		h.logger.Warn().Err(err).Str("task_id", taskID).Msg("reject task failed")
		writeError(w, http.StatusNotFound, "validation_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}
