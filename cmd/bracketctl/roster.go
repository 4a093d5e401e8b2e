package main

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/brianvoe/gofakeit/v7"
	"gopkg.in/yaml.v3"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

// rosterFile is the YAML document the offline commands read and write.
type rosterFile struct {
	Name            string                  `yaml:"name"`
	SeedingMethod   bracket.SeedingMethod   `yaml:"seedingMethod,omitempty"`
	GrandFinalReset bool                    `yaml:"grandFinalReset,omitempty"`
	Participants    []bracket.Participant   `yaml:"participants"`
	ManualOrder     []bracket.ParticipantID `yaml:"manualOrder,omitempty"`
}

func (f rosterFile) tournament() bracket.Tournament {
	method := f.SeedingMethod
	if method == "" {
		method = bracket.SeedingRating
	}
	return bracket.Tournament{
		ID:               "offline",
		Name:             f.Name,
		Type:             bracket.TypeDoubleElimination,
		GameType:         bracket.GameSingles,
		SeedingMethod:    method,
		ParticipantCount: len(f.Participants),
		GrandFinalReset:  f.GrandFinalReset,
	}
}

// seeded validates the roster and returns it in seed order.
func (f rosterFile) seeded() (bracket.Tournament, []bracket.Participant, error) {
	t := f.tournament()
	if err := bracket.ValidateConfiguration(t, len(f.Participants)); err != nil {
		return t, nil, err
	}
	seeder, err := bracket.NewSeeder(t, f.ManualOrder, nil)
	if err != nil {
		return t, nil, err
	}
	ps, err := seeder.Seed(t, f.Participants)
	return t, ps, err
}

func readRoster(path string) (rosterFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rosterFile{}, fmt.Errorf("reading roster: %w", err)
	}
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return rosterFile{}, fmt.Errorf("parsing roster %s: %w", path, err)
	}
	return f, nil
}

func writeRoster(w io.Writer, f rosterFile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding roster: %w", err)
	}
	return enc.Close()
}

// fakeRoster makes up a league night of count players with club ratings.
func fakeRoster(faker *gofakeit.Faker, count int) rosterFile {
	f := rosterFile{
		Name:         faker.City() + " Open",
		Participants: make([]bracket.Participant, count),
	}
	used := make(map[string]bool, count)
	for i := range f.Participants {
		name := faker.Name()
		for used[name] {
			name = faker.Name()
		}
		used[name] = true
		f.Participants[i] = bracket.Participant{
			ID:     bracket.ParticipantID(fmt.Sprintf("p%02d", i+1)),
			Name:   name,
			Rating: math.Round(faker.Float64Range(1200, 2200)),
		}
	}
	return f
}
