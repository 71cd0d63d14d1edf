package handlers

import (
	"net/http"

	"gymbuddy-backend/internal/auth"
	"gymbuddy-backend/internal/engine"
)

// MatchHandler serves the timeline and chat log attached to an active match.
type MatchHandler struct {
	timeline *engine.TimelineService
}

func NewMatchHandler(timeline *engine.TimelineService) *MatchHandler {
	return &MatchHandler{timeline: timeline}
}

type appendEventBody struct {
	EventType string `json:"event_type"`
}

type sendMessageBody struct {
	Message string `json:"message"`
}

// AppendEvent handles POST /matches/{pingID}/events.
func (h *MatchHandler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	pingID, ok := pathUUID(w, r, "pingID")
	if !ok {
		return
	}
	var body appendEventBody
	if !decodeBody(w, r, &body) {
		return
	}

	event, err := h.timeline.AppendEvent(r.Context(), caller, pingID, body.EventType)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /matches/{pingID}/events.
func (h *MatchHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	pingID, ok := pathUUID(w, r, "pingID")
	if !ok {
		return
	}

	events, err := h.timeline.ListEvents(r.Context(), pingID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// SendMessage handles POST /matches/{pingID}/messages.
func (h *MatchHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	pingID, ok := pathUUID(w, r, "pingID")
	if !ok {
		return
	}
	var body sendMessageBody
	if !decodeBody(w, r, &body) {
		return
	}

	msg, err := h.timeline.SendMessage(r.Context(), caller, pingID, body.Message)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// ListMessages handles GET /matches/{pingID}/messages.
func (h *MatchHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	pingID, ok := pathUUID(w, r, "pingID")
	if !ok {
		return
	}

	messages, err := h.timeline.ListMessages(r.Context(), pingID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// MarkSeen handles POST /matches/{pingID}/seen.
func (h *MatchHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	pingID, ok := pathUUID(w, r, "pingID")
	if !ok {
		return
	}

	count, err := h.timeline.MarkSeen(r.Context(), caller, pingID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"marked_seen": count})
}
