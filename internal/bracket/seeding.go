package bracket

import (
	"cmp"
	"fmt"
	"slices"
)

// Seeder assigns dense seeds 1..n to a roster. Implementations return new
// participant values ordered by seed and never modify the input slice.
type Seeder interface {
	Method() SeedingMethod
	Seed(t Tournament, participants []Participant) ([]Participant, error)
}

// RatingLookup is served by the external player-rating service.
type RatingLookup interface {
	Rating(id ParticipantID) (float64, bool)
}

// RatingLookupFunc adapts a function to RatingLookup.
type RatingLookupFunc func(id ParticipantID) (float64, bool)

func (f RatingLookupFunc) Rating(id ParticipantID) (float64, bool) { return f(id) }

// RatingSeeder seeds by descending rating. A nil lookup, or a lookup miss,
// falls back to the participant's own Rating field. Ties keep a stable order
// by identifier.
type RatingSeeder struct {
	Ratings RatingLookup
}

func (RatingSeeder) Method() SeedingMethod { return SeedingRating }

func (s RatingSeeder) Seed(t Tournament, participants []Participant) ([]Participant, error) {
	if err := checkMethod(t, s.Method()); err != nil {
		return nil, err
	}
	if err := validateRoster(participants); err != nil {
		return nil, err
	}

	seeded := slices.Clone(participants)
	rating := make(map[ParticipantID]float64, len(seeded))
	for _, p := range seeded {
		r := p.Rating
		if s.Ratings != nil {
			if v, ok := s.Ratings.Rating(p.ID); ok {
				r = v
			}
		}
		rating[p.ID] = r
	}

	slices.SortStableFunc(seeded, func(a, b Participant) int {
		if c := cmp.Compare(rating[b.ID], rating[a.ID]); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for i := range seeded {
		seeded[i].Rating = rating[seeded[i].ID]
		seeded[i].Seed = i + 1
	}
	return seeded, nil
}

// ManualSeeder seeds by an explicit order supplied by the organizer.
type ManualSeeder struct {
	Order []ParticipantID
}

func (ManualSeeder) Method() SeedingMethod { return SeedingManual }

func (s ManualSeeder) Seed(t Tournament, participants []Participant) ([]Participant, error) {
	if err := checkMethod(t, s.Method()); err != nil {
		return nil, err
	}
	if err := validateRoster(participants); err != nil {
		return nil, err
	}
	if len(s.Order) != len(participants) {
		return nil, fmt.Errorf("%w: manual order lists %d participants, roster has %d",
			ErrInvalidConfiguration, len(s.Order), len(participants))
	}

	byID := make(map[ParticipantID]Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	seeded := make([]Participant, 0, len(participants))
	for i, id := range s.Order {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: manual order entry %q is not in the roster", ErrInvalidConfiguration, id)
		}
		delete(byID, id)
		p.Seed = i + 1
		seeded = append(seeded, p)
	}
	return seeded, nil
}

// NewSeeder returns the strategy the tournament asks for.
func NewSeeder(t Tournament, order []ParticipantID, ratings RatingLookup) (Seeder, error) {
	switch t.SeedingMethod {
	case SeedingRating, "":
		return RatingSeeder{Ratings: ratings}, nil
	case SeedingManual:
		return ManualSeeder{Order: order}, nil
	}
	return nil, fmt.Errorf("%w: unknown seeding method %q", ErrInvalidConfiguration, t.SeedingMethod)
}

// Pair is two seeded participants meeting each other.
type Pair [2]Participant

// Pairings pairs seed i with seed n+1-i. With an odd roster the middle seed
// is left without an opponent.
func Pairings(seeded []Participant) ([]Pair, error) {
	if err := validateRoster(seeded); err != nil {
		return nil, err
	}
	bySeed := slices.Clone(seeded)
	slices.SortFunc(bySeed, func(a, b Participant) int { return cmp.Compare(a.Seed, b.Seed) })
	for i, p := range bySeed {
		if p.Seed != i+1 {
			return nil, fmt.Errorf("%w: seeds must be dense from 1, found seed %d at rank %d",
				ErrInvalidConfiguration, p.Seed, i+1)
		}
	}

	n := len(bySeed)
	pairs := make([]Pair, 0, n/2)
	for i := 0; i < n/2; i++ {
		pairs = append(pairs, Pair{bySeed[i], bySeed[n-1-i]})
	}
	return pairs, nil
}

func checkMethod(t Tournament, want SeedingMethod) error {
	if t.SeedingMethod != "" && t.SeedingMethod != want {
		return fmt.Errorf("%w: tournament uses %s seeding, seeder is %s",
			ErrInvalidConfiguration, t.SeedingMethod, want)
	}
	return nil
}

func validateRoster(participants []Participant) error {
	if len(participants) < 2 {
		return fmt.Errorf("%w: need at least 2 participants to seed, got %d",
			ErrInvalidConfiguration, len(participants))
	}
	seen := make(map[ParticipantID]bool, len(participants))
	for i, p := range participants {
		if p.ID == "" {
			return fmt.Errorf("%w: participant at index %d has no identifier", ErrInvalidConfiguration, i)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate participant %q", ErrInvalidConfiguration, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
