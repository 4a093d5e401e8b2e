package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

type ReadyMatchesResponse struct {
	Matches []bracket.Match `json:"matches"`
}

type ReportResultRequest struct {
	Winner string         `json:"winner"`
	Score  *bracket.Score `json:"score,omitempty"`
}

func handleReadyMatches(svc *Tournaments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready, err := svc.Ready(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ReadyMatchesResponse{Matches: ready})
	}
}

func handleReportResult(svc *Tournaments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReportResultRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Winner = strings.TrimSpace(req.Winner)
		if req.Winner == "" {
			writeError(w, http.StatusBadRequest, "winner is required")
			return
		}
		if req.Score != nil && (req.Score.Team1 < 0 || req.Score.Team2 < 0) {
			writeError(w, http.StatusBadRequest, "scores cannot be negative")
			return
		}

		p, err := svc.Report(r.Context(),
			chi.URLParam(r, "id"), chi.URLParam(r, "matchID"),
			bracket.ParticipantID(req.Winner), req.Score, organizer(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleAdvance(svc *Tournaments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Advance(r.Context(), chi.URLParam(r, "id"), organizer(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
