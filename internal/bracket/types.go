// Package bracket is the double-elimination bracket engine: bracket geometry,
// seeding, skeleton construction and result advancement. It performs no I/O
// and holds no locks; callers serialize access per tournament.
package bracket

// ParticipantID is the stable identifier of a player.
type ParticipantID string

// Participant is one entrant of a tournament. Seed is 1-based, 1 = strongest.
type Participant struct {
	ID         ParticipantID `json:"id" yaml:"id"`
	Name       string        `json:"name,omitempty" yaml:"name,omitempty"`
	Rating     float64       `json:"rating,omitempty" yaml:"rating,omitempty"`
	Seed       int           `json:"seed,omitempty" yaml:"seed,omitempty"`
	Eliminated bool          `json:"eliminated,omitempty" yaml:"-"`
}

type TournamentType string

const (
	TypeDoubleElimination TournamentType = "DOUBLE_ELIMINATION"
	TypeSingleElimination TournamentType = "SINGLE_ELIMINATION"
	TypeRoundRobin        TournamentType = "ROUND_ROBIN"
)

type GameType string

const (
	GameSingles GameType = "SINGLES"
	GameDoubles GameType = "DOUBLES"
)

type SeedingMethod string

const (
	SeedingRating SeedingMethod = "RATING"
	SeedingManual SeedingMethod = "MANUAL"
)

// Tournament describes the configuration the engine is asked to run.
type Tournament struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Type             TournamentType `json:"type"`
	GameType         GameType       `json:"gameType"`
	SeedingMethod    SeedingMethod  `json:"seedingMethod"`
	ParticipantCount int            `json:"participantCount"`
	GrandFinalReset  bool           `json:"grandFinalReset"`
}

type BracketType string

const (
	BracketWinner          BracketType = "WINNER"
	BracketLoser           BracketType = "LOSER"
	BracketFinal           BracketType = "FINAL"
	BracketGrandFinal      BracketType = "GRAND_FINAL"
	BracketGrandFinalReset BracketType = "GRAND_FINAL_RESET"
)

type RoundStatus string

const (
	RoundPending   RoundStatus = "PENDING"
	RoundReady     RoundStatus = "READY"
	RoundCompleted RoundStatus = "COMPLETED"
)

// Slot is one side of a match. The zero value is a placeholder awaiting
// advancement; Bye marks a side that will never be filled.
type Slot struct {
	Participant ParticipantID `json:"participant,omitempty"`
	Seed        int           `json:"seed,omitempty"`
	Bye         bool          `json:"bye,omitempty"`
}

func (s Slot) Filled() bool   { return s.Participant != "" }
func (s Slot) Resolved() bool { return s.Filled() || s.Bye }

type Score struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// Match is addressed by its display id (for example "WB2-M3") and by its
// position inside the owning round.
type Match struct {
	ID        string        `json:"id"`
	Bracket   BracketType   `json:"bracket"`
	Round     int           `json:"round"`
	Position  int           `json:"position"`
	Team1     Slot          `json:"team1"`
	Team2     Slot          `json:"team2"`
	Completed bool          `json:"completed"`
	Winner    ParticipantID `json:"winner,omitempty"`
	Loser     ParticipantID `json:"loser,omitempty"`
	Score     *Score        `json:"score,omitempty"`
	IsBye     bool          `json:"isBye,omitempty"`
	ByeSlot   int           `json:"byeSlot,omitempty"`
	Skipped   bool          `json:"skipped,omitempty"`
}

// Playable reports whether both sides are known and the match is unplayed.
func (m *Match) Playable() bool {
	return !m.Completed && m.Team1.Filled() && m.Team2.Filled()
}

func (m *Match) slot(team int) *Slot {
	if team == 1 {
		return &m.Team1
	}
	return &m.Team2
}

// opponent returns the other side of id, or "" when id is not in the match.
func (m *Match) opponent(id ParticipantID) (ParticipantID, bool) {
	switch id {
	case m.Team1.Participant:
		return m.Team2.Participant, true
	case m.Team2.Participant:
		return m.Team1.Participant, true
	}
	return "", false
}

type Round struct {
	Number       int         `json:"number"`
	Bracket      BracketType `json:"bracket"`
	BracketRound int         `json:"bracketRound"`
	Name         string      `json:"name"`
	Status       RoundStatus `json:"status"`
	Matches      []Match     `json:"matches"`
}

func (r *Round) allCompleted() bool {
	for i := range r.Matches {
		if !r.Matches[i].Completed {
			return false
		}
	}
	return len(r.Matches) > 0
}

// Bracket is the arena holding every round of one tournament. Rounds are
// stored winner rounds first, then loser rounds, then the grand final (and
// the reset round when enabled); matches are addressed by index.
type Bracket struct {
	Size             int             `json:"size"`
	ParticipantCount int             `json:"participantCount"`
	Winner           WinnerStructure `json:"winner"`
	Loser            LoserStructure  `json:"loser"`
	Reset            bool            `json:"reset"`
	Rounds           []Round         `json:"rounds"`
}

// Match returns the match with the given display id.
func (b *Bracket) Match(id string) *Match {
	for i := range b.Rounds {
		for j := range b.Rounds[i].Matches {
			if b.Rounds[i].Matches[j].ID == id {
				return &b.Rounds[i].Matches[j]
			}
		}
	}
	return nil
}

func (b *Bracket) winnerIndex(r int) int { return r - 1 }
func (b *Bracket) loserIndex(l int) int  { return b.Winner.TotalRounds + l - 1 }
func (b *Bracket) grandFinalIndex() int  { return b.Winner.TotalRounds + b.Loser.TotalRounds }
func (b *Bracket) resetIndex() int       { return b.grandFinalIndex() + 1 }

// GrandFinal returns the grand final match.
func (b *Bracket) GrandFinal() *Match {
	return &b.Rounds[b.grandFinalIndex()].Matches[0]
}

// Completed reports whether the tournament has a champion.
func (b *Bracket) Completed() bool {
	_, ok := Champion(b)
	return ok
}

// Champion returns the tournament winner once the deciding match is played.
func Champion(b *Bracket) (ParticipantID, bool) {
	if len(b.Rounds) <= b.grandFinalIndex() {
		return "", false
	}
	gf := b.GrandFinal()
	if !gf.Completed {
		return "", false
	}
	if !b.Reset || len(b.Rounds) <= b.resetIndex() {
		return gf.Winner, true
	}
	reset := &b.Rounds[b.resetIndex()].Matches[0]
	switch {
	case reset.Skipped:
		return gf.Winner, true
	case reset.Completed:
		return reset.Winner, true
	}
	return "", false
}

// Clone returns a deep copy of the arena.
func (b *Bracket) Clone() *Bracket {
	c := *b
	c.Loser.MatchesPerRound = append([]int(nil), b.Loser.MatchesPerRound...)
	c.Rounds = make([]Round, len(b.Rounds))
	for i, r := range b.Rounds {
		r.Matches = append([]Match(nil), r.Matches...)
		for j := range r.Matches {
			if s := r.Matches[j].Score; s != nil {
				score := *s
				r.Matches[j].Score = &score
			}
		}
		c.Rounds[i] = r
	}
	return &c
}
