package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"gymbuddy-backend/internal/engine"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeEngineError maps the engine's failure kinds onto HTTP statuses. The
// kind travels in the body so clients can branch without parsing messages.
func writeEngineError(w http.ResponseWriter, err error) {
	kind := engine.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case engine.KindAuthenticationRequired:
		status = http.StatusUnauthorized
	case engine.KindUnauthorized:
		status = http.StatusForbidden
	case engine.KindInvalidArgument, engine.KindSelfOperationNotAllowed:
		status = http.StatusBadRequest
	case engine.KindPresenceRequired:
		status = http.StatusPreconditionFailed
	case engine.KindDuplicateRequest, engine.KindInvalidTransition, engine.KindStaleOrAlreadyHandled:
		status = http.StatusConflict
	case engine.KindNotFound:
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		if engine.Retryable(err) {
			// Serialization conflict under concurrent transitions; the request
			// is safe to replay.
			w.Header().Set("Retry-After", "1")
			status = http.StatusServiceUnavailable
		} else {
			log.Printf("[ERROR] HTTP %d - %v", status, err)
		}
	}
	writeJSON(w, status, ErrorResponse{Error: string(kind), Message: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: message})
}

// pathUUID parses a uuid route parameter; the zero uuid signals a parse
// failure already reported to the client.
func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeBadRequest(w, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}
