package bracket

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func players(ratings ...float64) []Participant {
	ps := make([]Participant, len(ratings))
	for i, r := range ratings {
		ps[i] = Participant{ID: ParticipantID(string(rune('a' + i))), Rating: r}
	}
	return ps
}

func ids(ps []Participant) []ParticipantID {
	out := make([]ParticipantID, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestRatingSeeder(t *testing.T) {
	in := players(1400, 1800, 1600, 1800)
	got, err := RatingSeeder{}.Seed(Tournament{SeedingMethod: SeedingRating}, in)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}

	want := []Participant{
		{ID: "b", Rating: 1800, Seed: 1},
		{ID: "d", Rating: 1800, Seed: 2},
		{ID: "c", Rating: 1600, Seed: 3},
		{ID: "a", Rating: 1400, Seed: 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("seeded roster mismatch (-want +got):\n%s", diff)
	}
	if in[0].Seed != 0 {
		t.Error("input roster was modified")
	}
}

func TestRatingSeederUsesLookup(t *testing.T) {
	lookup := RatingLookupFunc(func(id ParticipantID) (float64, bool) {
		if id == "a" {
			return 2000, true
		}
		return 0, false
	})
	got, err := RatingSeeder{Ratings: lookup}.Seed(Tournament{}, players(1000, 1500, 1200))
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if diff := cmp.Diff([]ParticipantID{"a", "b", "c"}, ids(got)); diff != "" {
		t.Errorf("seed order mismatch (-want +got):\n%s", diff)
	}
	if got[0].Rating != 2000 {
		t.Errorf("looked-up rating not recorded: %v", got[0].Rating)
	}
}

func TestManualSeeder(t *testing.T) {
	s := ManualSeeder{Order: []ParticipantID{"c", "a", "d", "b"}}
	got, err := s.Seed(Tournament{SeedingMethod: SeedingManual}, players(1, 2, 3, 4))
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if diff := cmp.Diff([]ParticipantID{"c", "a", "d", "b"}, ids(got)); diff != "" {
		t.Errorf("seed order mismatch (-want +got):\n%s", diff)
	}
	for i, p := range got {
		if p.Seed != i+1 {
			t.Errorf("%s has seed %d, want %d", p.ID, p.Seed, i+1)
		}
	}
}

func TestSeederErrors(t *testing.T) {
	tests := []struct {
		name   string
		seeder Seeder
		t      Tournament
		in     []Participant
	}{
		{"single participant", RatingSeeder{}, Tournament{}, players(1)},
		{"missing id", RatingSeeder{}, Tournament{}, []Participant{{ID: "a"}, {}}},
		{"duplicate id", RatingSeeder{}, Tournament{}, []Participant{{ID: "a"}, {ID: "a"}}},
		{"method mismatch", RatingSeeder{}, Tournament{SeedingMethod: SeedingManual}, players(1, 2)},
		{"short manual order", ManualSeeder{Order: []ParticipantID{"a"}}, Tournament{}, players(1, 2)},
		{"unknown manual entry", ManualSeeder{Order: []ParticipantID{"a", "z"}}, Tournament{}, players(1, 2)},
		{"repeated manual entry", ManualSeeder{Order: []ParticipantID{"a", "a"}}, Tournament{}, players(1, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.seeder.Seed(tt.t, tt.in)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("err = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestNewSeeder(t *testing.T) {
	s, err := NewSeeder(Tournament{SeedingMethod: SeedingManual}, []ParticipantID{"a"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Method() != SeedingManual {
		t.Errorf("Method() = %s", s.Method())
	}
	s, err = NewSeeder(Tournament{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Method() != SeedingRating {
		t.Errorf("default Method() = %s", s.Method())
	}
	if _, err := NewSeeder(Tournament{SeedingMethod: "COIN_TOSS"}, nil, nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("unknown method err = %v", err)
	}
}

func TestPairings(t *testing.T) {
	seeded, err := RatingSeeder{}.Seed(Tournament{}, players(5, 4, 3, 2, 1))
	if err != nil {
		t.Fatal(err)
	}
	pairs, err := Pairings(seeded)
	if err != nil {
		t.Fatalf("Pairings: %v", err)
	}

	var got [][2]int
	for _, p := range pairs {
		got = append(got, [2]int{p[0].Seed, p[1].Seed})
	}
	if diff := cmp.Diff([][2]int{{1, 5}, {2, 4}}, got); diff != "" {
		t.Errorf("pairings mismatch (-want +got):\n%s", diff)
	}
}

func TestPairingsRequiresDenseSeeds(t *testing.T) {
	_, err := Pairings([]Participant{{ID: "a", Seed: 1}, {ID: "b", Seed: 3}})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("err = %v, want ErrInvalidConfiguration", err)
	}
}
