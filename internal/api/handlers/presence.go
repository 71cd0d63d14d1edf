package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"gymbuddy-backend/internal/auth"
	"gymbuddy-backend/internal/engine"
)

type PresenceHandler struct {
	presence  *engine.PresenceService
	discovery *engine.DiscoveryService
}

func NewPresenceHandler(presence *engine.PresenceService, discovery *engine.DiscoveryService) *PresenceHandler {
	return &PresenceHandler{presence: presence, discovery: discovery}
}

// SetPresence handles PUT /presence: toggle availability on (fresh TTL) or
// off (immediate expiry).
func (h *PresenceHandler) SetPresence(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	var req engine.SetPresenceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start := time.Now()
	presence, err := h.presence.SetPresence(r.Context(), caller, req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	log.Printf("[PRESENCE_HTTP] set user=%s active=%v in %v", caller, req.Active, time.Since(start))
	writeJSON(w, http.StatusOK, presence)
}

// GetOwnPresence handles GET /presence. A presence past its TTL reads as
// absent even before the sweep runs.
func (h *PresenceHandler) GetOwnPresence(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	presence, err := h.presence.GetOwnPresence(r.Context(), caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if presence == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "no active presence"})
		return
	}
	writeJSON(w, http.StatusOK, presence)
}

// FindNearby handles GET /presence/nearby?lat=&lng=&radius_km=.
func (h *PresenceHandler) FindNearby(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	radius, errRadius := strconv.ParseFloat(r.URL.Query().Get("radius_km"), 64)
	if errLat != nil || errLng != nil || errRadius != nil {
		writeBadRequest(w, "lat, lng and radius_km query parameters are required")
		return
	}

	start := time.Now()
	nearby, err := h.discovery.FindNearby(r.Context(), caller, lat, lng, radius)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	log.Printf("[DISCOVERY_HTTP] user=%s found=%d in %v", caller, len(nearby), time.Since(start))
	writeJSON(w, http.StatusOK, map[string]interface{}{"nearby": nearby})
}
