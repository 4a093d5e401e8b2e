package server

import (
	"context"
	"errors"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

var ErrNotFound = errors.New("not found")

const (
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// tournamentDoc is everything persisted for one tournament.
type tournamentDoc struct {
	Tournament   bracket.Tournament    `json:"tournament"`
	Participants []bracket.Participant `json:"participants"`
	Bracket      *bracket.Bracket      `json:"bracket"`
	Status       string                `json:"status"`
	Champion     bracket.ParticipantID `json:"champion,omitempty"`
	TokenHash    string                `json:"tokenHash"`
	CreatedAt    string                `json:"createdAt"`
	UpdatedAt    string                `json:"updatedAt"`
}

// TournamentSummary is one row of the tournament list.
type TournamentSummary struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Status       string                `json:"status"`
	Participants int                   `json:"participants"`
	Champion     bracket.ParticipantID `json:"champion,omitempty"`
	CreatedAt    string                `json:"createdAt"`
}

// MatchResult is one entry of a tournament's result history.
type MatchResult struct {
	MatchID    string                `json:"matchId"`
	Winner     bracket.ParticipantID `json:"winner"`
	Loser      bracket.ParticipantID `json:"loser"`
	Score      *bracket.Score        `json:"score,omitempty"`
	RecordedAt string                `json:"recordedAt"`
}

type Store interface {
	CreateTournament(ctx context.Context, doc tournamentDoc) error
	Tournament(ctx context.Context, id string) (tournamentDoc, error)
	ListTournaments(ctx context.Context) ([]TournamentSummary, error)
	// UpdateTournament replaces the document and appends the given results
	// to the history in one transaction.
	UpdateTournament(ctx context.Context, doc tournamentDoc, played []bracket.Match) error
	DeleteTournament(ctx context.Context, id string) error
	MatchResults(ctx context.Context, id string) ([]MatchResult, error)
}
