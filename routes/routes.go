package routes

import (
	"net/http"

	"github.com/gamelle/league-system/handlers"
	appMiddleware "github.com/gamelle/league-system/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	router *chi.Mux,
	authenticator *appMiddleware.Authenticator,
	authHandler *handlers.AuthHandler,
	liveMatchHandler *handlers.LiveMatchHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(appMiddleware.Metrics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", appMiddleware.ScorerSecretHeader},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	// Лига-скоупнутые маршруты: только для аутентифицированных членов лиги.
	router.Route("/leagues/{leagueSlug}/live-matches", func(r chi.Router) {
		r.Use(authenticator.Authenticate)
		r.Post("/", liveMatchHandler.CreateLiveMatchHandler)
		r.Get("/", liveMatchHandler.ListLiveMatchesHandler)
		r.Get("/{sessionID}", liveMatchHandler.GetLiveMatchHandler)
	})

	// Публичные маршруты по share token. Мутации пропускаются дальше гейтом:
	// секрет скорера либо членство; анонимный зритель получает только чтение.
	router.Route("/live", func(r chi.Router) {
		r.Use(authenticator.OptionalAuthenticate)
		r.Get("/{shareToken}", liveMatchHandler.GetLiveMatchPublicHandler)
		r.Post("/{shareToken}/events", liveMatchHandler.RecordEventHandler)
		r.Post("/{shareToken}/events/{eventID}/undo", liveMatchHandler.UndoEventHandler)
		r.Post("/{shareToken}/status", liveMatchHandler.UpdateStatusHandler)
		r.Post("/{shareToken}/finalize", liveMatchHandler.FinalizeHandler)
		r.Delete("/{shareToken}", liveMatchHandler.AbandonHandler)
		r.Get("/match/{matchID}/events", liveMatchHandler.MatchEventsHandler)
	})
}
