package main

import (
	"fmt"
	"log/slog"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

type playedMatch struct {
	Match  bracket.Match
	Upset  bool
	Points bracket.Score
}

type simulation struct {
	Bracket  *bracket.Bracket
	Roster   []bracket.Participant
	Played   []playedMatch
	Champion bracket.Participant
}

// simulate plays a roster to the end. Each match goes to the better seed
// unless the faker rolls below upsets.
func simulate(logger *slog.Logger, faker *gofakeit.Faker, f rosterFile, upsets float64) (simulation, error) {
	t, roster, err := f.seeded()
	if err != nil {
		return simulation{}, err
	}
	b, err := bracket.GenerateInitialBracket(t, roster)
	if err != nil {
		return simulation{}, err
	}

	engine := bracket.NewEngine(logger)
	sim := simulation{Bracket: b, Roster: roster}
	// A bracket has fewer rounds than 4n.
	limit := 4 * len(roster)
	for step := 0; ; step++ {
		if step > limit {
			return sim, fmt.Errorf("simulation did not finish after %d batches", limit)
		}
		ready := engine.ReadyMatches(b)
		if len(ready) == 0 {
			break
		}
		done := make([]string, 0, len(ready))
		for _, m := range ready {
			winner, upset := pick(m, faker.Float64() < upsets)
			score := rally(faker, winner == m.Team1.Participant)
			played, err := bracket.RecordResult(b, m.ID, winner, &score)
			if err != nil {
				return sim, err
			}
			sim.Played = append(sim.Played, playedMatch{Match: *played, Upset: upset, Points: score})
			done = append(done, m.ID)
		}
		if _, err := engine.Advance(t, done, roster, b); err != nil {
			return sim, err
		}
	}

	id, ok := bracket.Champion(b)
	if !ok {
		return sim, fmt.Errorf("bracket stalled without a champion")
	}
	sim.Roster = bracket.MarkEliminated(b, roster)
	for _, p := range sim.Roster {
		if p.ID == id {
			sim.Champion = p
		}
	}
	return sim, nil
}

// pick returns the better seed, or the worse one when upset is set.
func pick(m bracket.Match, upset bool) (bracket.ParticipantID, bool) {
	fav, dog := m.Team1, m.Team2
	if dog.Seed < fav.Seed {
		fav, dog = dog, fav
	}
	if upset {
		return dog.Participant, true
	}
	return fav.Participant, false
}

// rally makes up an 11-point game score for the winning side.
func rally(faker *gofakeit.Faker, team1Won bool) bracket.Score {
	win, lose := 11, faker.Number(0, 9)
	if faker.Number(0, 4) == 0 {
		// Deuce.
		lose = 10 + faker.Number(0, 4)
		win = lose + 2
	}
	if team1Won {
		return bracket.Score{Team1: win, Team2: lose}
	}
	return bracket.Score{Team1: lose, Team2: win}
}
