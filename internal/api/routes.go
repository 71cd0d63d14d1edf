package api

import (
	"net/http"
	"time"

	"gymbuddy-backend/internal/api/handlers"
	"gymbuddy-backend/internal/auth"
	"gymbuddy-backend/internal/sessions"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Dependencies struct {
	PresenceHandler *handlers.PresenceHandler
	PingHandler     *handlers.PingHandler
	MatchHandler    *handlers.MatchHandler
	ProfileHandler  *handlers.ProfileHandler
	StreamManager   *sessions.MatchStreamManager
}

func NewRouter(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"gymbuddy-backend"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Put("/presence", deps.PresenceHandler.SetPresence)
		r.Get("/presence", deps.PresenceHandler.GetOwnPresence)
		r.Get("/presence/nearby", deps.PresenceHandler.FindNearby)

		r.Post("/pings", deps.PingHandler.CreatePing)
		r.Get("/pings/incoming", deps.PingHandler.ListIncoming)
		r.Get("/pings/accepted", deps.PingHandler.ListAccepted)
		r.Get("/pings/sent", deps.PingHandler.ListSent)
		r.Post("/pings/{pingID}/respond", deps.PingHandler.Respond)
		r.Post("/pings/{pingID}/end", deps.PingHandler.EndMatch)

		r.Get("/matches/history", deps.PingHandler.History)
		r.Get("/matches/with/{userID}", deps.PingHandler.MatchWithUser)
		r.Get("/matches/{pingID}/events", deps.MatchHandler.ListEvents)
		r.Post("/matches/{pingID}/events", deps.MatchHandler.AppendEvent)
		r.Get("/matches/{pingID}/messages", deps.MatchHandler.ListMessages)
		r.Post("/matches/{pingID}/messages", deps.MatchHandler.SendMessage)
		r.Post("/matches/{pingID}/seen", deps.MatchHandler.MarkSeen)

		r.Get("/profiles/{userID}", deps.ProfileHandler.GetProfile)
		r.Put("/profile", deps.ProfileHandler.UpsertOwnProfile)
	})

	// WebSocket stream, scoped to one match.
	r.With(auth.Middleware).Get("/ws/match/{pingID}", deps.StreamManager.HandleMatchStream)

	r.Get("/debug/streams", deps.StreamManager.HandleStats)

	return r
}
