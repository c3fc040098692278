package server

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, db *sql.DB, spaDir string) {
	broker := NewBroker()

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("QR Hunt API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))

	r.Route("/api", func(r chi.Router) {
		// Player surface.
		r.Post("/teams", handleCreateTeam(store))
		r.Get("/teams/code/{teamCode}", handleTeamLookup(store))
		r.Get("/teams/{teamID}/submissions", handleTeamSubmissions(store))
		r.Get("/leaderboard", handleLeaderboard(store))
		r.Get("/nodes", handleListActiveNodes(store))
		r.Post("/scan", handleScan(store))
		r.Post("/answers", handleSubmitAnswer(store))
		r.Get("/events", handleEvents(store, broker))

		r.Route("/admin", func(r chi.Router) {
			// Open: secret verification and first-time initialization.
			r.Post("/verify", handleVerifySecret(store))
			r.Post("/settings", handleInitSettings(store))

			// Everything else requires the shared secret.
			r.Group(func(r chi.Router) {
				r.Use(adminAuthMiddleware(store))
				r.Get("/settings", handleGetSettings(store))
				r.Put("/settings", handleUpdateSettings(store))
				r.Post("/settings/active", handleToggleActive(store))
				r.Get("/stats", handleStats(store))
				r.Post("/nodes", handleCreateNode(store))
				r.Get("/nodes", handleAdminListNodes(store))
				r.Put("/nodes/{nodeID}", handleUpdateNode(store))
				r.Get("/submissions", handleListSubmissions(store))
				r.Get("/submissions/pending", handleListPendingSubmissions(store))
				r.Post("/submissions/{id}/review", handleReviewSubmission(store, broker))
			})
		})
	})

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
