package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/venuedesk/bookingengine/workflow"
)

// messageHandler serves POST /v1/messages — the single entrypoint
// spec.md §6 describes for delivering one inbound client message.
type messageHandler struct {
	router *workflow.Router
	logger zerolog.Logger
}

type inboundMessage struct {
	MsgID     string `json:"msg_id"`
	ThreadID  string `json:"thread_id"`
	SessionID string `json:"session_id"`
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func (h *messageHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var in inboundMessage
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "payload_invalid", "could not parse request body")
		return
	}
	if in.MsgID == "" || in.FromEmail == "" || in.Body == "" {
		writeError(w, http.StatusBadRequest, "payload_invalid", "msg_id, from_email, and body are required")
		return
	}

	res, err := h.router.ProcessMsg(r.Context(), workflow.Message{
		MsgID:     in.MsgID,
		ThreadID:  in.ThreadID,
		SessionID: in.SessionID,
		FromName:  in.FromName,
		FromEmail: in.FromEmail,
		Subject:   in.Subject,
		Body:      in.Body,
		Ts:        time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error().Err(err).Str("msg_id", in.MsgID).Msg("process_msg returned an error")
		writeError(w, http.StatusInternalServerError, "unexpected_exception", "could not process message")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"error": kind, "message": message})
}
