package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

type organizerTournament struct {
	ID            string `path:"id"`
	Authorization string `header:"Authorization" description:"Bearer organizer token returned at creation."`
}

type reportResultInput struct {
	ID            string         `path:"id"`
	MatchID       string         `path:"matchID"`
	Authorization string         `header:"Authorization" description:"Bearer organizer token returned at creation."`
	Winner        string         `json:"winner"`
	Score         *bracket.Score `json:"score,omitempty"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Bracket API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Double-elimination tournament brackets for the ping-pong league.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/layout/{n}
	getLayout, _ := r.NewOperationContext(http.MethodGet, "/api/layout/{n}")
	getLayout.SetSummary("Bracket layout")
	getLayout.SetDescription("Winner and loser bracket geometry for a roster size.")
	getLayout.AddReqStructure(layoutPath{})
	getLayout.AddRespStructure(LayoutResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getLayout.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getLayout)

	// POST /api/seeding/pairings
	postPairings, _ := r.NewOperationContext(http.MethodPost, "/api/seeding/pairings")
	postPairings.SetSummary("Preview seeding")
	postPairings.SetDescription("Seeds a roster and pairs seed i with seed n+1-i without creating a tournament.")
	postPairings.AddReqStructure(PairingsRequest{})
	postPairings.AddRespStructure(PairingsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postPairings.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postPairings)

	// GET /api/tournaments
	listTournaments, _ := r.NewOperationContext(http.MethodGet, "/api/tournaments")
	listTournaments.SetSummary("List tournaments")
	listTournaments.AddRespStructure([]TournamentSummary{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listTournaments)

	// POST /api/tournaments
	createTournament, _ := r.NewOperationContext(http.MethodPost, "/api/tournaments")
	createTournament.SetSummary("Create tournament")
	createTournament.SetDescription("Seeds the roster, builds the full bracket and returns a one-time organizer token.")
	createTournament.AddReqStructure(CreateTournamentRequest{})
	createTournament.AddRespStructure(CreateTournamentResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createTournament.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createTournament.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	_ = r.AddOperation(createTournament)

	// GET /api/tournaments/{id}
	getTournament, _ := r.NewOperationContext(http.MethodGet, "/api/tournaments/{id}")
	getTournament.SetSummary("Get tournament")
	getTournament.SetDescription("Returns the tournament with every round and match.")
	getTournament.AddReqStructure(tournamentPath{})
	getTournament.AddRespStructure(TournamentDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	getTournament.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTournament)

	// DELETE /api/tournaments/{id}
	deleteTournament, _ := r.NewOperationContext(http.MethodDelete, "/api/tournaments/{id}")
	deleteTournament.SetSummary("Delete tournament")
	deleteTournament.SetDescription("Deletes the tournament and its result history. Requires the organizer token.")
	deleteTournament.AddReqStructure(organizerTournament{})
	deleteTournament.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteTournament.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	deleteTournament.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteTournament)

	// GET /api/tournaments/{id}/results
	getResults, _ := r.NewOperationContext(http.MethodGet, "/api/tournaments/{id}/results")
	getResults.SetSummary("Result history")
	getResults.SetDescription("Every recorded match result in the order it was reported.")
	getResults.AddReqStructure(tournamentPath{})
	getResults.AddRespStructure(ResultsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getResults.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getResults)

	// GET /api/tournaments/{id}/matches/ready
	getReady, _ := r.NewOperationContext(http.MethodGet, "/api/tournaments/{id}/matches/ready")
	getReady.SetSummary("Ready matches")
	getReady.SetDescription("Matches with both players known that have not been played yet.")
	getReady.AddReqStructure(tournamentPath{})
	getReady.AddRespStructure(ReadyMatchesResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getReady.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getReady)

	// POST /api/tournaments/{id}/matches/{matchID}/result
	postResult, _ := r.NewOperationContext(http.MethodPost, "/api/tournaments/{id}/matches/{matchID}/result")
	postResult.SetSummary("Report result")
	postResult.SetDescription("Records the winner of a ready match and advances the bracket. Requires the organizer token.")
	postResult.AddReqStructure(reportResultInput{})
	postResult.AddRespStructure(Progress{}, openapi.WithHTTPStatus(http.StatusOK))
	postResult.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postResult.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postResult.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postResult.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postResult)

	// POST /api/tournaments/{id}/advance
	postAdvance, _ := r.NewOperationContext(http.MethodPost, "/api/tournaments/{id}/advance")
	postAdvance.SetSummary("Advance bracket")
	postAdvance.SetDescription("Re-runs advancement. Safe to repeat; returns no matches when nothing changed.")
	postAdvance.AddReqStructure(organizerTournament{})
	postAdvance.AddRespStructure(Progress{}, openapi.WithHTTPStatus(http.StatusOK))
	postAdvance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postAdvance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postAdvance)

	// GET /api/tournaments/{id}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/tournaments/{id}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events for ready matches, results and the champion.")
	getEvents.AddReqStructure(tournamentPath{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /metrics
	getMetrics, _ := r.NewOperationContext(http.MethodGet, "/metrics")
	getMetrics.SetSummary("Prometheus metrics")
	getMetrics.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getMetrics)

	return r.Spec
}

// HealthStatus is the per-dependency entry of the health response.
type HealthStatus struct {
	Status string `json:"status" enum:"ok,error"`
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
