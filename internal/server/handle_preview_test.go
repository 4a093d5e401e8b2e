package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

func TestLayout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/layout/6", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[LayoutResponse](t, rec)

	assert.Equal(t, 6, got.Participants)
	assert.Equal(t, 10, got.TotalMatches)
	assert.Equal(t, bracket.WinnerStructure{BracketSize: 8, TotalRounds: 3, FirstRoundMatches: 4, ByeCount: 2}, got.Winner)
	assert.Equal(t, []int{2, 2, 1, 1}, got.Loser.MatchesPerRound)
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, got.SeedOrder)
	assert.True(t, got.Supported)
}

func TestLayoutOutsideSupportedRange(t *testing.T) {
	env := newTestEnv(t)

	got := decode[LayoutResponse](t, env.do(t, http.MethodGet, "/api/layout/32", "", nil))
	assert.False(t, got.Supported)
	assert.Equal(t, 32, got.Winner.BracketSize)

	for _, n := range []string{"1", "abc", "5000"} {
		rec := env.do(t, http.MethodGet, "/api/layout/"+n, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, n)
	}
}

func TestPairings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/seeding/pairings", "", PairingsRequest{Participants: entrants(5)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[PairingsResponse](t, rec)

	require.Len(t, got.Seeded, 5)
	require.Len(t, got.Pairings, 2)
	assert.Equal(t, bracket.ParticipantID("p1"), got.Pairings[0].Top.ID)
	assert.Equal(t, bracket.ParticipantID("p5"), got.Pairings[0].Bottom.ID)
	assert.Equal(t, bracket.ParticipantID("p2"), got.Pairings[1].Top.ID)
	assert.Equal(t, bracket.ParticipantID("p4"), got.Pairings[1].Bottom.ID)
	require.NotNil(t, got.Unpaired)
	assert.Equal(t, bracket.ParticipantID("p3"), got.Unpaired.ID)

	// Previews are never stored.
	list := decode[[]TournamentSummary](t, env.do(t, http.MethodGet, "/api/tournaments", "", nil))
	assert.Empty(t, list)
}

func TestPairingsManualOrder(t *testing.T) {
	env := newTestEnv(t)

	got := decode[PairingsResponse](t, env.do(t, http.MethodPost, "/api/seeding/pairings", "", PairingsRequest{
		SeedingMethod: "MANUAL",
		Participants:  entrants(4),
		ManualOrder:   []string{"p3", "p1", "p4", "p2"},
	}))

	require.Len(t, got.Pairings, 2)
	assert.Equal(t, bracket.ParticipantID("p3"), got.Pairings[0].Top.ID)
	assert.Equal(t, bracket.ParticipantID("p2"), got.Pairings[0].Bottom.ID)
	assert.Nil(t, got.Unpaired)
}

func TestPairingsRejects(t *testing.T) {
	env := newTestEnv(t)

	for name, req := range map[string]PairingsRequest{
		"too few":       {Participants: entrants(3)},
		"bad order":     {SeedingMethod: "MANUAL", Participants: entrants(4), ManualOrder: []string{"p1"}},
		"unknown order": {SeedingMethod: "MANUAL", Participants: entrants(4), ManualOrder: []string{"p1", "p2", "p3", "zz"}},
	} {
		rec := env.do(t, http.MethodPost, "/api/seeding/pairings", "", req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}
