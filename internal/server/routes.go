package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	svc := newTournaments(logger, &deps)
	writes := rateLimit(newClientLimiter(deps.WriteRate, deps.WriteBurst))

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Bracket API", "/openapi.json", "/docs"))
	r.Handle("/metrics", handleMetrics(deps.Registry))

	r.Get("/api/layout/{n}", handleLayout())
	r.Post("/api/seeding/pairings", handlePairings(svc))

	r.Route("/api/tournaments", func(r chi.Router) {
		r.Get("/", handleListTournaments(svc))
		r.With(writes).Post("/", handleCreateTournament(svc))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handleGetTournament(svc))
			r.Get("/results", handleTournamentResults(svc))
			r.Get("/matches/ready", handleReadyMatches(svc))
			r.Get("/events", handleEvents(svc))

			// Organizer routes, authorized by the tournament's bearer token.
			r.Group(func(r chi.Router) {
				r.Use(writes)
				r.Delete("/", handleDeleteTournament(svc))
				r.Post("/matches/{matchID}/result", handleReportResult(svc))
				r.Post("/advance", handleAdvance(svc))
			})
		})
	})
}
