package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

// LayoutResponse previews the bracket geometry for a roster size.
type LayoutResponse struct {
	Participants int                    `json:"participants"`
	TotalMatches int                    `json:"totalMatches"`
	Winner       bracket.WinnerStructure `json:"winner"`
	Loser        bracket.LoserStructure  `json:"loser"`
	SeedOrder    []int                  `json:"seedOrder"`
	Supported    bool                   `json:"supported"`
}

type layoutPath struct {
	N int `path:"n" minimum:"2"`
}

type PairingsRequest struct {
	SeedingMethod string             `json:"seedingMethod,omitempty" enum:"RATING,MANUAL"`
	Participants  []ParticipantInput `json:"participants"`
	ManualOrder   []string           `json:"manualOrder,omitempty"`
}

type PairingItem struct {
	Top    bracket.Participant `json:"top"`
	Bottom bracket.Participant `json:"bottom"`
}

type PairingsResponse struct {
	Seeded   []bracket.Participant `json:"seeded"`
	Pairings []PairingItem         `json:"pairings"`
	Unpaired *bracket.Participant  `json:"unpaired,omitempty"`
}

func layout(n int) (LayoutResponse, error) {
	ws, err := bracket.WinnerBracketStructure(n)
	if err != nil {
		return LayoutResponse{}, err
	}
	ls, err := bracket.LoserBracketStructure(n)
	if err != nil {
		return LayoutResponse{}, err
	}
	return LayoutResponse{
		Participants: n,
		TotalMatches: bracket.TotalMatches(n),
		Winner:       ws,
		Loser:        ls,
		SeedOrder:    bracket.SeedOrder(ws.BracketSize),
		Supported:    n >= bracket.MinParticipants && n <= bracket.MaxParticipants,
	}, nil
}

func handleLayout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(r, "n"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "participant count must be a number")
			return
		}
		// Bigger brackets are never built; refuse to size them.
		if n > 1024 {
			writeError(w, http.StatusBadRequest, "participant count too large")
			return
		}
		resp, err := layout(n)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handlePairings(svc *Tournaments) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PairingsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		t := configure(CreateTournamentRequest{
			SeedingMethod: req.SeedingMethod,
			Participants:  req.Participants,
		})
		seeded, err := seed(t, roster(req.Participants), req.ManualOrder, svc.ratings)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		pairs, err := bracket.Pairings(seeded)
		if err != nil {
			if errors.Is(err, bracket.ErrInvalidConfiguration) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := PairingsResponse{Seeded: seeded, Pairings: make([]PairingItem, len(pairs))}
		for i, p := range pairs {
			resp.Pairings[i] = PairingItem{Top: p[0], Bottom: p[1]}
		}
		if len(seeded)%2 == 1 {
			mid := seeded[len(seeded)/2]
			resp.Unpaired = &mid
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
