package handlers

import (
	"log"
	"net/http"

	"gymbuddy-backend/internal/auth"
	"gymbuddy-backend/internal/engine"

	"github.com/google/uuid"
)

type PingHandler struct {
	pings *engine.PingService
}

func NewPingHandler(pings *engine.PingService) *PingHandler {
	return &PingHandler{pings: pings}
}

type createPingBody struct {
	ToUserID string `json:"to_user_id"`
}

type respondBody struct {
	Action string `json:"action"`
}

// CreatePing handles POST /pings.
func (h *PingHandler) CreatePing(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	var body createPingBody
	if !decodeBody(w, r, &body) {
		return
	}
	to, err := uuid.Parse(body.ToUserID)
	if err != nil {
		writeBadRequest(w, "to_user_id must be a valid UUID")
		return
	}

	ping, err := h.pings.CreatePing(r.Context(), caller, to)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ping)
}

// Respond handles POST /pings/{pingID}/respond with {"action":"accept"|"reject"}.
// A 409 here means the ping was handled concurrently; clients re-read.
func (h *PingHandler) Respond(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	pingID, ok := pathUUID(w, r, "pingID")
	if !ok {
		return
	}
	var body respondBody
	if !decodeBody(w, r, &body) {
		return
	}

	ping, err := h.pings.Respond(r.Context(), caller, pingID, engine.RespondAction(body.Action))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	log.Printf("[PING_HTTP] respond ping=%s action=%s", pingID, body.Action)
	writeJSON(w, http.StatusOK, ping)
}

// EndMatch handles POST /pings/{pingID}/end.
func (h *PingHandler) EndMatch(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	pingID, ok := pathUUID(w, r, "pingID")
	if !ok {
		return
	}

	ping, err := h.pings.EndMatch(r.Context(), caller, pingID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ping)
}

// ListIncoming handles GET /pings/incoming.
func (h *PingHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	pings, err := h.pings.ListIncomingPending(r.Context(), caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pings": pings})
}

// ListAccepted handles GET /pings/accepted.
func (h *PingHandler) ListAccepted(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	pings, err := h.pings.ListAcceptedForCaller(r.Context(), caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pings": pings})
}

// ListSent handles GET /pings/sent: the recipients of the caller's pending
// pings, used to suppress duplicate sends client-side.
func (h *PingHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	targets, err := h.pings.ListSentPending(r.Context(), caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"to_user_ids": targets})
}

// History handles GET /matches/history: ended matches, newest first.
func (h *PingHandler) History(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	pings, err := h.pings.ListEndedForCaller(r.Context(), caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pings": pings})
}

// MatchWithUser handles GET /matches/with/{userID}: the accepted ping between
// the caller and another user, if any.
func (h *PingHandler) MatchWithUser(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	other, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	ping, err := h.pings.GetMatchWithUser(r.Context(), caller, other)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if ping == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "no active match with user"})
		return
	}
	writeJSON(w, http.StatusOK, ping)
}
