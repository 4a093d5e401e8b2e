package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

type CreateTournamentResponse struct {
	Tournament TournamentDetail `json:"tournament"`
	// OrganizerToken authorizes result reports. It is never shown again.
	OrganizerToken string `json:"organizerToken"`
}

type tournamentPath struct {
	ID string `path:"id"`
}

type ResultsResponse struct {
	Results []MatchResult `json:"results"`
}

// writeServiceError maps workflow errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "tournament not found")
	case errors.Is(err, errNoOrganizer):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, bracket.ErrMatchNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, bracket.ErrMatchCompleted),
		errors.Is(err, bracket.ErrMatchNotReady):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, bracket.ErrInvalidConfiguration),
		errors.Is(err, bracket.ErrUnsupportedSize),
		errors.Is(err, bracket.ErrInvalidArgument),
		errors.Is(err, bracket.ErrNotInMatch):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func organizer(r *http.Request) authorizeFunc {
	return func(hash string) error { return checkOrganizer(r, hash) }
}

func handleCreateTournament(svc *Tournaments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTournamentRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		detail, token, err := svc.Create(r.Context(), req)
		if err != nil {
			if errors.Is(err, bracket.ErrInvalidConfiguration) || errors.Is(err, bracket.ErrUnsupportedSize) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			svc.logger.Error("creating tournament", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, CreateTournamentResponse{
			Tournament:     detail,
			OrganizerToken: token,
		})
	}
}

func handleListTournaments(svc *Tournaments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			svc.logger.Error("listing tournaments", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleGetTournament(svc *Tournaments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detailFromDoc(doc))
	}
}

func handleDeleteTournament(svc *Tournaments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "id"), organizer(r)); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleTournamentResults(svc *Tournaments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := svc.Results(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ResultsResponse{Results: results})
	}
}
