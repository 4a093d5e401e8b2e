package bracket

import (
	"fmt"
)

const (
	MinParticipants = 4
	MaxParticipants = 16
)

// ValidateConfiguration is the one place the supported tournament shape is
// enforced: double elimination, singles, 4 to 16 participants.
func ValidateConfiguration(t Tournament, count int) error {
	if t.Type != TypeDoubleElimination {
		return fmt.Errorf("%w: tournament type %q, only %s is supported",
			ErrInvalidConfiguration, t.Type, TypeDoubleElimination)
	}
	if t.GameType != "" && t.GameType != GameSingles {
		return fmt.Errorf("%w: game type %q, only %s is supported",
			ErrInvalidConfiguration, t.GameType, GameSingles)
	}
	if count < MinParticipants || count > MaxParticipants {
		return fmt.Errorf("%w: %d participants, supported range is %d-%d",
			ErrUnsupportedSize, count, MinParticipants, MaxParticipants)
	}
	if t.ParticipantCount != 0 && t.ParticipantCount != count {
		return fmt.Errorf("%w: tournament expects %d participants, roster has %d",
			ErrInvalidConfiguration, t.ParticipantCount, count)
	}
	return nil
}

// GenerateInitialBracket builds every round of the tournament in one pass.
// Winner round 1 is populated from the canonical seed order with byes
// already decided; every other match is a placeholder.
func GenerateInitialBracket(t Tournament, seeded []Participant) (*Bracket, error) {
	n := len(seeded)
	if err := ValidateConfiguration(t, n); err != nil {
		return nil, err
	}
	bySeed, err := indexSeeds(seeded)
	if err != nil {
		return nil, err
	}

	ws, err := WinnerBracketStructure(n)
	if err != nil {
		return nil, err
	}
	ls, err := LoserBracketStructure(n)
	if err != nil {
		return nil, err
	}

	b := &Bracket{
		Size:             ws.BracketSize,
		ParticipantCount: n,
		Winner:           ws,
		Loser:            ls,
		Reset:            t.GrandFinalReset,
	}

	number := 0
	order := SeedOrder(ws.BracketSize)
	for r := 1; r <= ws.TotalRounds; r++ {
		number++
		count := ws.BracketSize >> r
		round := newRound(number, BracketWinner, r, winnerRoundName(r, ws.TotalRounds, count), count, "WB%d-M%d")
		if r == 1 {
			for i := range round.Matches {
				seedFirstRound(&round.Matches[i], bySeed, order[2*i], order[2*i+1])
			}
		}
		b.Rounds = append(b.Rounds, round)
	}

	for l := 1; l <= ls.TotalRounds; l++ {
		number++
		name := fmt.Sprintf("LB Round %d", l)
		if l == ls.TotalRounds {
			name = "LB Finals"
		}
		b.Rounds = append(b.Rounds, newRound(number, BracketLoser, l, name, ls.MatchesPerRound[l-1], "LB%d-M%d"))
	}

	number++
	gf := newRound(number, BracketGrandFinal, 1, "Grand Finals", 1, "")
	gf.Matches[0].ID = "GF-M1"
	b.Rounds = append(b.Rounds, gf)

	if t.GrandFinalReset {
		number++
		reset := newRound(number, BracketGrandFinalReset, 1, "Grand Finals Reset", 1, "")
		reset.Matches[0].ID = "GFR-M1"
		b.Rounds = append(b.Rounds, reset)
	}

	refreshStatuses(b)
	return b, nil
}

func indexSeeds(seeded []Participant) (map[int]Participant, error) {
	bySeed := make(map[int]Participant, len(seeded))
	ids := make(map[ParticipantID]bool, len(seeded))
	for _, p := range seeded {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: participant with seed %d has no identifier", ErrInvalidConfiguration, p.Seed)
		}
		if ids[p.ID] {
			return nil, fmt.Errorf("%w: duplicate participant %q", ErrInvalidConfiguration, p.ID)
		}
		if p.Seed < 1 || p.Seed > len(seeded) {
			return nil, fmt.Errorf("%w: participant %q has seed %d, seeds must be 1-%d",
				ErrInvalidConfiguration, p.ID, p.Seed, len(seeded))
		}
		if _, dup := bySeed[p.Seed]; dup {
			return nil, fmt.Errorf("%w: duplicate seed %d", ErrInvalidConfiguration, p.Seed)
		}
		ids[p.ID] = true
		bySeed[p.Seed] = p
	}
	return bySeed, nil
}

func newRound(number int, bt BracketType, bracketRound int, name string, matches int, idFormat string) Round {
	round := Round{
		Number:       number,
		Bracket:      bt,
		BracketRound: bracketRound,
		Name:         name,
		Status:       RoundPending,
		Matches:      make([]Match, matches),
	}
	for i := range round.Matches {
		round.Matches[i] = Match{
			Bracket:  bt,
			Round:    number,
			Position: i,
		}
		if idFormat != "" {
			round.Matches[i].ID = fmt.Sprintf(idFormat, bracketRound, i+1)
		}
	}
	return round
}

// seedFirstRound places seeds s1 < s2 into a round-1 match. A seed beyond the
// roster is a bye, and the match is decided on the spot.
func seedFirstRound(m *Match, bySeed map[int]Participant, s1, s2 int) {
	if p, ok := bySeed[s1]; ok {
		m.Team1 = Slot{Participant: p.ID, Seed: p.Seed}
	} else {
		m.Team1 = Slot{Bye: true}
	}
	if p, ok := bySeed[s2]; ok {
		m.Team2 = Slot{Participant: p.ID, Seed: p.Seed}
	} else {
		m.Team2 = Slot{Bye: true}
	}
	if m.Team1.Bye || m.Team2.Bye {
		completeBye(m)
	}
}

// completeBye decides a match that has at most one real side. The present
// participant wins and nobody loses; with no participant the match simply
// closes and forwards a bye.
func completeBye(m *Match) {
	m.Completed = true
	m.IsBye = true
	m.Loser = ""
	switch {
	case m.Team1.Filled():
		m.Winner = m.Team1.Participant
		m.ByeSlot = 1
	case m.Team2.Filled():
		m.Winner = m.Team2.Participant
		m.ByeSlot = 2
	default:
		m.Winner = ""
		m.ByeSlot = 0
	}
}

func winnerRoundName(r, total, matches int) string {
	switch {
	case r == total:
		return "WB Finals"
	case matches == 2:
		return "Semifinals"
	case matches == 4:
		return "Quarterfinals"
	}
	return fmt.Sprintf("WB Round %d", r)
}

// refreshStatuses promotes pending rounds that now hold a playable match.
// It reports whether any status changed.
func refreshStatuses(b *Bracket) bool {
	changed := false
	for i := range b.Rounds {
		r := &b.Rounds[i]
		if r.Status != RoundPending {
			continue
		}
		for j := range r.Matches {
			if r.Matches[j].Playable() {
				r.Status = RoundReady
				changed = true
				break
			}
		}
	}
	return changed
}
