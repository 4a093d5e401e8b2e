package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
	"github.com/RocketPartners/ping-pong-app-sub002/internal/database"
	"github.com/RocketPartners/ping-pong-app-sub002/internal/migrations"
)

type testEnv struct {
	handler  http.Handler
	store    *DocStore
	broker   *Broker
	registry *prometheus.Registry
}

func setupStore(t *testing.T) *DocStore {
	t.Helper()
	db, err := database.Open(context.Background(), database.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	return NewDocStore(db)
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    setupStore(t),
		broker:   NewBroker(),
		registry: prometheus.NewRegistry(),
	}
	deps := Deps{
		Store:     env.store,
		Broker:    env.broker,
		Registry:  env.registry,
		TokenCost: bcrypt.MinCost,
		WriteRate: rate.Inf,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.handler = New("", logger, deps, nil).Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(v)
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

// entrants returns p1..pn rated so that p1 is the top seed.
func entrants(n int) []ParticipantInput {
	ps := make([]ParticipantInput, n)
	for i := range ps {
		ps[i] = ParticipantInput{
			ID:     fmt.Sprintf("p%d", i+1),
			Name:   fmt.Sprintf("Player %d", i+1),
			Rating: float64(2000 - 25*i),
		}
	}
	return ps
}

func (e *testEnv) create(t *testing.T, req CreateTournamentRequest) CreateTournamentResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/tournaments", "", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[CreateTournamentResponse](t, rec)
}

func (e *testEnv) ready(t *testing.T, id string) []bracket.Match {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/api/tournaments/"+id+"/matches/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[ReadyMatchesResponse](t, rec).Matches
}

func (e *testEnv) report(t *testing.T, id, token, matchID string, winner bracket.ParticipantID) Progress {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/tournaments/"+id+"/matches/"+matchID+"/result", token,
		ReportResultRequest{Winner: string(winner), Score: &bracket.Score{Team1: 11, Team2: 8}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[Progress](t, rec)
}

func betterSeed(m bracket.Match) bracket.ParticipantID {
	if m.Team1.Seed < m.Team2.Seed {
		return m.Team1.Participant
	}
	return m.Team2.Participant
}

func readyIDs(ms []bracket.Match) []string {
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids
}

func TestCreateTournament(t *testing.T) {
	env := newTestEnv(t)

	resp := env.create(t, CreateTournamentRequest{
		Name:         "Friday Ladder",
		Participants: entrants(6),
	})

	assert.NotEmpty(t, resp.OrganizerToken)
	got := resp.Tournament
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Friday Ladder", got.Name)
	assert.Equal(t, bracket.TypeDoubleElimination, got.Type)
	assert.Equal(t, bracket.GameSingles, got.GameType)
	assert.Equal(t, bracket.SeedingRating, got.SeedingMethod)
	assert.Equal(t, StatusInProgress, got.Status)
	require.NotNil(t, got.Bracket)
	assert.Equal(t, 8, got.Bracket.Size)
	for i, p := range got.Participants {
		assert.Equal(t, i+1, p.Seed)
		assert.Equal(t, bracket.ParticipantID(fmt.Sprintf("p%d", i+1)), p.ID)
	}

	rec := env.do(t, http.MethodGet, "/api/tournaments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]TournamentSummary](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, got.ID, list[0].ID)
	assert.Equal(t, 6, list[0].Participants)
}

func TestCreateTournamentRejects(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
	}{
		{"too few players", CreateTournamentRequest{Name: "x", Participants: entrants(3)}},
		{"too many players", CreateTournamentRequest{Name: "x", Participants: entrants(17)}},
		{"missing name", CreateTournamentRequest{Participants: entrants(4)}},
		{"single elimination", CreateTournamentRequest{Name: "x", Type: "SINGLE_ELIMINATION", Participants: entrants(4)}},
		{"doubles", CreateTournamentRequest{Name: "x", GameType: "DOUBLES", Participants: entrants(4)}},
		{"manual without order", CreateTournamentRequest{Name: "x", SeedingMethod: "MANUAL", Participants: entrants(4)}},
		{"unknown field", `{"name":"x","rounds":3}`},
		{"malformed json", `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/tournaments", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}

	list := decode[[]TournamentSummary](t, env.do(t, http.MethodGet, "/api/tournaments", "", nil))
	assert.Empty(t, list)
}

func TestCreateTournamentManualSeeding(t *testing.T) {
	env := newTestEnv(t)

	resp := env.create(t, CreateTournamentRequest{
		Name:          "Manual",
		SeedingMethod: "MANUAL",
		Participants:  entrants(4),
		ManualOrder:   []string{"p4", "p3", "p2", "p1"},
	})

	seeds := map[bracket.ParticipantID]int{}
	for _, p := range resp.Tournament.Participants {
		seeds[p.ID] = p.Seed
	}
	assert.Equal(t, map[bracket.ParticipantID]int{"p4": 1, "p3": 2, "p2": 3, "p1": 4}, seeds)
}

func TestFourPlayerTournament(t *testing.T) {
	env := newTestEnv(t)
	resp := env.create(t, CreateTournamentRequest{Name: "Cup", Participants: entrants(4)})
	id, token := resp.Tournament.ID, resp.OrganizerToken

	assert.ElementsMatch(t, []string{"WB1-M1", "WB1-M2"}, readyIDs(env.ready(t, id)))

	// Seed order 1v4, 2v3. A half-finished round routes nobody.
	p := env.report(t, id, token, "WB1-M1", "p1")
	assert.Equal(t, "WB1-M1", p.Match.ID)
	assert.Equal(t, bracket.ParticipantID("p4"), p.Match.Loser)
	assert.Empty(t, p.Ready)

	p = env.report(t, id, token, "WB1-M2", "p2")
	assert.ElementsMatch(t, []string{"WB2-M1", "LB1-M1"}, readyIDs(p.Ready))

	env.report(t, id, token, "LB1-M1", "p3")
	p = env.report(t, id, token, "WB2-M1", "p1")
	assert.Equal(t, []string{"LB2-M1"}, readyIDs(p.Ready))

	p = env.report(t, id, token, "LB2-M1", "p2")
	require.Equal(t, []string{"GF-M1"}, readyIDs(p.Ready))
	gf := p.Ready[0]
	assert.Equal(t, bracket.ParticipantID("p1"), gf.Team1.Participant)
	assert.Equal(t, bracket.ParticipantID("p2"), gf.Team2.Participant)

	p = env.report(t, id, token, "GF-M1", "p1")
	assert.True(t, p.Completed)
	assert.Equal(t, bracket.ParticipantID("p1"), p.Champion)
	assert.Empty(t, p.Ready)

	detail := decode[TournamentDetail](t, env.do(t, http.MethodGet, "/api/tournaments/"+id, "", nil))
	assert.Equal(t, StatusCompleted, detail.Status)
	assert.Equal(t, bracket.ParticipantID("p1"), detail.Champion)
	for _, pl := range detail.Participants {
		assert.Equal(t, pl.ID != "p1", pl.Eliminated, "eliminated flag of %s", pl.ID)
	}

	results := decode[ResultsResponse](t, env.do(t, http.MethodGet, "/api/tournaments/"+id+"/results", "", nil))
	require.Len(t, results.Results, 6)
	assert.Equal(t, "WB1-M1", results.Results[0].MatchID)
	assert.Equal(t, "GF-M1", results.Results[5].MatchID)
	require.NotNil(t, results.Results[0].Score)
	assert.Equal(t, bracket.Score{Team1: 11, Team2: 8}, *results.Results[0].Score)
}

func TestPlayThroughBySize(t *testing.T) {
	for _, n := range []int{5, 7, 8, 12, 16} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			env := newTestEnv(t)
			resp := env.create(t, CreateTournamentRequest{Name: "Open", Participants: entrants(n)})
			id, token := resp.Tournament.ID, resp.OrganizerToken

			var last Progress
			played := 0
			for step := 0; ; step++ {
				require.Less(t, step, 4*n, "tournament did not finish")
				ready := env.ready(t, id)
				if len(ready) == 0 {
					break
				}
				for _, m := range ready {
					last = env.report(t, id, token, m.ID, betterSeed(m))
					played++
				}
			}

			assert.Equal(t, 2*n-2, played)
			assert.True(t, last.Completed)
			assert.Equal(t, bracket.ParticipantID("p1"), last.Champion)

			results := decode[ResultsResponse](t, env.do(t, http.MethodGet, "/api/tournaments/"+id+"/results", "", nil))
			assert.Len(t, results.Results, 2*n-2)
		})
	}
}

func TestGrandFinalReset(t *testing.T) {
	env := newTestEnv(t)
	resp := env.create(t, CreateTournamentRequest{Name: "Reset", GrandFinalReset: true, Participants: entrants(4)})
	id, token := resp.Tournament.ID, resp.OrganizerToken

	env.report(t, id, token, "WB1-M1", "p1")
	env.report(t, id, token, "WB1-M2", "p2")
	env.report(t, id, token, "WB2-M1", "p1")
	env.report(t, id, token, "LB1-M1", "p3")
	env.report(t, id, token, "LB2-M1", "p2")

	p := env.report(t, id, token, "GF-M1", "p2")
	assert.False(t, p.Completed)
	require.Equal(t, []string{"GFR-M1"}, readyIDs(p.Ready))

	p = env.report(t, id, token, "GFR-M1", "p2")
	assert.True(t, p.Completed)
	assert.Equal(t, bracket.ParticipantID("p2"), p.Champion)
}

func TestReportResultErrors(t *testing.T) {
	env := newTestEnv(t)
	resp := env.create(t, CreateTournamentRequest{Name: "Errors", Participants: entrants(8)})
	id, token := resp.Tournament.ID, resp.OrganizerToken
	path := func(match string) string { return "/api/tournaments/" + id + "/matches/" + match + "/result" }

	env.report(t, id, token, "WB1-M1", "p1")

	tests := []struct {
		name   string
		path   string
		token  string
		body   any
		status int
	}{
		{"no token", path("WB1-M2"), "", ReportResultRequest{Winner: "p4"}, http.StatusUnauthorized},
		{"wrong token", path("WB1-M2"), "nope", ReportResultRequest{Winner: "p4"}, http.StatusUnauthorized},
		{"unknown tournament", "/api/tournaments/missing/matches/WB1-M2/result", token, ReportResultRequest{Winner: "p4"}, http.StatusNotFound},
		{"unknown match", path("WB9-M1"), token, ReportResultRequest{Winner: "p4"}, http.StatusNotFound},
		{"already played", path("WB1-M1"), token, ReportResultRequest{Winner: "p8"}, http.StatusConflict},
		{"not ready", path("WB2-M1"), token, ReportResultRequest{Winner: "p1"}, http.StatusConflict},
		{"winner not in match", path("WB1-M2"), token, ReportResultRequest{Winner: "p1"}, http.StatusBadRequest},
		{"missing winner", path("WB1-M2"), token, ReportResultRequest{}, http.StatusBadRequest},
		{"negative score", path("WB1-M2"), token, ReportResultRequest{Winner: "p4", Score: &bracket.Score{Team1: -1}}, http.StatusBadRequest},
		{"bad body", path("WB1-M2"), token, `winner=p4`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	results := decode[ResultsResponse](t, env.do(t, http.MethodGet, "/api/tournaments/"+id+"/results", "", nil))
	assert.Len(t, results.Results, 1)
}

func TestAdvanceIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	resp := env.create(t, CreateTournamentRequest{Name: "Again", Participants: entrants(5)})
	id, token := resp.Tournament.ID, resp.OrganizerToken

	before := decode[TournamentDetail](t, env.do(t, http.MethodGet, "/api/tournaments/"+id, "", nil))

	rec := env.do(t, http.MethodPost, "/api/tournaments/"+id+"/advance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for range 2 {
		rec = env.do(t, http.MethodPost, "/api/tournaments/"+id+"/advance", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		p := decode[Progress](t, rec)
		assert.Empty(t, p.Ready)
		assert.False(t, p.Completed)
	}

	after := decode[TournamentDetail](t, env.do(t, http.MethodGet, "/api/tournaments/"+id, "", nil))
	assert.Equal(t, before.Bracket, after.Bracket)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestGetUnknownTournament(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{
		"/api/tournaments/missing",
		"/api/tournaments/missing/results",
		"/api/tournaments/missing/matches/ready",
		"/api/tournaments/missing/events",
	} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestDeleteTournament(t *testing.T) {
	env := newTestEnv(t)
	resp := env.create(t, CreateTournamentRequest{Name: "Gone", Participants: entrants(4)})
	id, token := resp.Tournament.ID, resp.OrganizerToken
	env.report(t, id, token, "WB1-M1", "p1")

	rec := env.do(t, http.MethodDelete, "/api/tournaments/"+id, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/tournaments/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/tournaments/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	results, err := env.store.MatchResults(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWriteRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.WriteRate, d.WriteBurst = 0.001, 1
	})
	req := CreateTournamentRequest{Name: "Burst", Participants: entrants(4)}

	rec := env.do(t, http.MethodPost, "/api/tournaments", "", req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/tournaments", "", req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Reads are not throttled.
	rec = env.do(t, http.MethodGet, "/api/tournaments", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp := env.create(t, CreateTournamentRequest{Name: "Counted", Participants: entrants(4)})
	env.report(t, resp.Tournament.ID, resp.OrganizerToken, "WB1-M1", "p1")

	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "bracket_tournaments_created_total 1")
	assert.Contains(t, body, `bracket_results_recorded_total{bracket="WINNER"} 1`)
	assert.Contains(t, body, `bracket_matches_ready_total{bracket="WINNER"} 2`)
}
