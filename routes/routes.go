package routes

import (
	"github.com/arenastats/scoring-system/handlers"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	leaderboardHandler *handlers.LeaderboardHandler,
	resultHandler *handlers.ResultHandler,
	rulesetHandler *handlers.RulesetHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
	healthHandler *handlers.HealthHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", healthHandler.Handler)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/{tournamentIDOrSlug}/leaderboard", leaderboardHandler.TournamentHandler)
	})

	router.Route("/stages", func(r chi.Router) {
		r.Get("/{stageID}/leaderboard", leaderboardHandler.StageHandler)
		r.Get("/{stageID}/ledger", leaderboardHandler.LedgerHandler)
		r.Get("/{stageID}/ruleset", rulesetHandler.GetStageRulesetHandler)
		r.Put("/{stageID}/ruleset", rulesetHandler.UpdateStageRulesetHandler)
		r.Post("/{stageID}/recalculate", resultHandler.RecalculateHandler)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetHandler)
		r.Post("/{matchID}/results", resultHandler.SubmitHandler)
		r.Patch("/{matchID}/status", matchHandler.UpdateStatusHandler)
		r.Post("/{matchID}/lock", matchHandler.LockHandler)
	})

	router.Get("/rulesets/defaults/{game}", rulesetHandler.DefaultsHandler)

	router.Get("/ws/stages/{stageID}", webSocketHandler.ServeStageWs)
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeTournamentWs)
}
