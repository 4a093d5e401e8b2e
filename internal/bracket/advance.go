package bracket

import (
	"fmt"
	"io"
	"log/slog"
)

// Engine moves players through a bracket as results arrive.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{logger: logger}
}

// ReadyMatches lists every unplayed match with both sides known in a READY
// round, in round and position order.
func (e *Engine) ReadyMatches(b *Bracket) []Match {
	var ready []Match
	for i := range b.Rounds {
		r := &b.Rounds[i]
		if r.Status != RoundReady {
			continue
		}
		for j := range r.Matches {
			if r.Matches[j].Playable() {
				ready = append(ready, r.Matches[j])
			}
		}
	}
	return ready
}

// slotRef addresses one side of one match inside the arena.
type slotRef struct {
	round int
	match int
	team  int
}

// Advance closes every round whose matches are all completed, routes their
// winners and losers into the rounds they feed, settles byes and promotes
// rounds that became playable. It returns the matches that were not playable
// before the call and are now. Calling it again without new results returns
// nothing and changes nothing.
//
// completed names the matches the caller just finished; it is only used to
// flag reports the bracket does not agree with. roster resolves participant
// identifiers; a nil roster skips that check.
//
// Results that cannot be resolved are logged and left in place for a later
// call. The error is reserved for an arena whose shape does not match its
// own structure.
func (e *Engine) Advance(t Tournament, completed []string, roster []Participant, b *Bracket) ([]Match, error) {
	if err := checkShape(b); err != nil {
		return nil, err
	}
	for _, id := range completed {
		if m := b.Match(id); m == nil {
			e.logger.Warn("reported match not found", "tournament", t.ID, "match", id)
		} else if !m.Completed {
			e.logger.Warn("reported match is not completed", "tournament", t.ID, "match", id)
		}
	}

	var known map[ParticipantID]bool
	if roster != nil {
		known = make(map[ParticipantID]bool, len(roster))
		for _, p := range roster {
			known[p.ID] = true
		}
	}

	before := readySet(b)

	for progressed := true; progressed; {
		progressed = false
		for i := range b.Rounds {
			r := &b.Rounds[i]
			if r.Status == RoundCompleted || !r.allCompleted() {
				continue
			}
			if !e.consistent(t, r, known) {
				continue
			}
			r.Status = RoundCompleted
			e.route(t, b, i)
			progressed = true
		}
		if settleByes(b) {
			progressed = true
		}
	}
	refreshStatuses(b)

	var newly []Match
	for i := range b.Rounds {
		r := &b.Rounds[i]
		if r.Status != RoundReady {
			continue
		}
		for j := range r.Matches {
			m := &r.Matches[j]
			if m.Playable() && !before[m.ID] {
				newly = append(newly, *m)
			}
		}
	}
	return newly, nil
}

func readySet(b *Bracket) map[string]bool {
	set := make(map[string]bool)
	for i := range b.Rounds {
		if b.Rounds[i].Status != RoundReady {
			continue
		}
		for j := range b.Rounds[i].Matches {
			if m := &b.Rounds[i].Matches[j]; m.Playable() {
				set[m.ID] = true
			}
		}
	}
	return set
}

// consistent checks that every result in a finished round can be routed.
func (e *Engine) consistent(t Tournament, r *Round, known map[ParticipantID]bool) bool {
	for j := range r.Matches {
		m := &r.Matches[j]
		if m.Skipped {
			continue
		}
		if m.IsBye {
			if m.Winner != "" && m.Winner != m.Team1.Participant && m.Winner != m.Team2.Participant {
				e.logger.Warn("bye winner is not in match", "tournament", t.ID, "match", m.ID, "winner", m.Winner)
				return false
			}
			continue
		}
		other, ok := m.opponent(m.Winner)
		if m.Winner == "" || !ok || other == "" {
			e.logger.Warn("winner is not in match", "tournament", t.ID, "match", m.ID, "winner", m.Winner)
			return false
		}
		if m.Loser != "" && m.Loser != other {
			e.logger.Warn("loser does not match opponent", "tournament", t.ID, "match", m.ID, "loser", m.Loser)
			return false
		}
		if known != nil && (!known[m.Winner] || !known[other]) {
			e.logger.Warn("match participant not found in roster", "tournament", t.ID, "match", m.ID)
			return false
		}
	}
	return true
}

// route forwards the results of a completed round.
func (e *Engine) route(t Tournament, b *Bracket, index int) {
	r := &b.Rounds[index]
	switch r.Bracket {
	case BracketGrandFinal:
		e.routeGrandFinal(t, b, &r.Matches[0])
		return
	case BracketGrandFinalReset:
		return
	}

	for j := range r.Matches {
		m := &r.Matches[j]
		winner := m.resultSlot(m.Winner)
		if dst, ok := b.winnerDestination(r, j); ok {
			e.place(t, b, dst, winner, m.ID)
		}
		if dst, ok := b.loserDestination(r, j); ok {
			var loser Slot
			if m.IsBye {
				loser = Slot{Bye: true}
			} else {
				other, _ := m.opponent(m.Winner)
				m.Loser = other
				loser = m.resultSlot(other)
			}
			e.place(t, b, dst, loser, m.ID)
		} else if !m.IsBye && m.Loser == "" {
			m.Loser, _ = m.opponent(m.Winner)
		}
	}
}

// routeGrandFinal decides whether the reset match is needed. It only runs
// when the tournament was built with a reset round.
func (e *Engine) routeGrandFinal(t Tournament, b *Bracket, gf *Match) {
	if gf.Loser == "" {
		gf.Loser, _ = gf.opponent(gf.Winner)
	}
	if !b.Reset {
		return
	}
	reset := &b.Rounds[b.resetIndex()].Matches[0]
	if gf.Winner == gf.Team1.Participant {
		reset.Completed = true
		reset.Skipped = true
		return
	}
	e.place(t, b, slotRef{round: b.resetIndex(), match: 0, team: 1}, gf.Team1, gf.ID)
	e.place(t, b, slotRef{round: b.resetIndex(), match: 0, team: 2}, gf.Team2, gf.ID)
}

// resultSlot returns the slot carrying id, or a bye slot when id is empty.
func (m *Match) resultSlot(id ParticipantID) Slot {
	switch {
	case id == "":
		return Slot{Bye: true}
	case m.Team1.Participant == id:
		return Slot{Participant: id, Seed: m.Team1.Seed}
	case m.Team2.Participant == id:
		return Slot{Participant: id, Seed: m.Team2.Seed}
	}
	return Slot{Participant: id}
}

// place writes s into dst unless the slot already holds something.
func (e *Engine) place(t Tournament, b *Bracket, dst slotRef, s Slot, from string) {
	m := &b.Rounds[dst.round].Matches[dst.match]
	target := m.slot(dst.team)
	if target.Resolved() {
		if *target != s {
			e.logger.Warn("destination slot already filled",
				"tournament", t.ID, "from", from, "to", m.ID, "team", dst.team)
		}
		return
	}
	*target = s
}

// winnerDestination is where the winner of match j of round r goes.
func (b *Bracket) winnerDestination(r *Round, j int) (slotRef, bool) {
	switch r.Bracket {
	case BracketWinner:
		if r.BracketRound == b.Winner.TotalRounds {
			return slotRef{round: b.grandFinalIndex(), match: 0, team: 1}, true
		}
		return slotRef{round: b.winnerIndex(r.BracketRound + 1), match: j / 2, team: j%2 + 1}, true
	case BracketLoser:
		l := r.BracketRound
		switch {
		case l == b.Loser.TotalRounds:
			return slotRef{round: b.grandFinalIndex(), match: 0, team: 2}, true
		case l%2 == 1:
			return slotRef{round: b.loserIndex(l + 1), match: j, team: 1}, true
		default:
			return slotRef{round: b.loserIndex(l + 1), match: j / 2, team: j%2 + 1}, true
		}
	}
	return slotRef{}, false
}

// loserDestination is where the loser of match j of round r drops. Only
// winner-bracket losers have somewhere to go. Losers from round r >= 2 enter
// the receiving side of their loser round, mirrored on even rounds so that
// recent opponents are spread apart.
func (b *Bracket) loserDestination(r *Round, j int) (slotRef, bool) {
	if r.Bracket != BracketWinner {
		return slotRef{}, false
	}
	if b.Loser.TotalRounds == 0 {
		return slotRef{round: b.grandFinalIndex(), match: 0, team: 2}, true
	}
	if r.BracketRound == 1 {
		return slotRef{round: b.loserIndex(1), match: j / 2, team: j%2 + 1}, true
	}
	pos := j
	if r.BracketRound%2 == 0 {
		pos = len(r.Matches) - 1 - j
	}
	return slotRef{round: b.loserIndex(DropRound(r.BracketRound)), match: pos, team: 2}, true
}

// settleByes completes loser-bracket matches that can only be byes: one side
// carries a bye marker and the other side is known.
func settleByes(b *Bracket) bool {
	changed := false
	for i := range b.Rounds {
		r := &b.Rounds[i]
		if r.Status == RoundCompleted {
			continue
		}
		for j := range r.Matches {
			m := &r.Matches[j]
			if m.Completed || !m.Team1.Resolved() || !m.Team2.Resolved() {
				continue
			}
			if m.Team1.Bye || m.Team2.Bye {
				completeBye(m)
				changed = true
			}
		}
	}
	return changed
}

// checkShape verifies that the arena matches the structure it claims.
func checkShape(b *Bracket) error {
	if b == nil {
		return fmt.Errorf("%w: nil bracket", ErrMalformedBracket)
	}
	want := b.Winner.TotalRounds + b.Loser.TotalRounds + 1
	if b.Reset {
		want++
	}
	if len(b.Rounds) != want || len(b.Loser.MatchesPerRound) != b.Loser.TotalRounds {
		return fmt.Errorf("%w: %d rounds, structure needs %d", ErrMalformedBracket, len(b.Rounds), want)
	}
	for i := range b.Rounds {
		r := &b.Rounds[i]
		bt, size := b.expectedRound(i)
		if r.Bracket != bt || len(r.Matches) != size {
			return fmt.Errorf("%w: round %d is %s with %d matches, want %s with %d",
				ErrMalformedBracket, r.Number, r.Bracket, len(r.Matches), bt, size)
		}
	}
	return nil
}

func (b *Bracket) expectedRound(i int) (BracketType, int) {
	switch {
	case i < b.Winner.TotalRounds:
		return BracketWinner, b.Size >> (i + 1)
	case i < b.grandFinalIndex():
		return BracketLoser, b.Loser.MatchesPerRound[i-b.Winner.TotalRounds]
	case i == b.grandFinalIndex():
		return BracketGrandFinal, 1
	}
	return BracketGrandFinalReset, 1
}

// RecordResult marks a playable match as decided in favour of winner.
func RecordResult(b *Bracket, matchID string, winner ParticipantID, score *Score) (*Match, error) {
	m := b.Match(matchID)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if m.Completed {
		return nil, fmt.Errorf("%w: %s", ErrMatchCompleted, matchID)
	}
	if !m.Playable() {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotReady, matchID)
	}
	loser, ok := m.opponent(winner)
	if !ok || winner == "" {
		return nil, fmt.Errorf("%w: %q in %s", ErrNotInMatch, winner, matchID)
	}
	m.Completed = true
	m.Winner = winner
	m.Loser = loser
	m.Score = score
	return m, nil
}

// MarkEliminated returns a copy of roster with Eliminated set for everyone
// who can no longer win: two losses, or a lost grand final that will not be
// reset.
func MarkEliminated(b *Bracket, roster []Participant) []Participant {
	losses := make(map[ParticipantID]int, len(roster))
	for i := range b.Rounds {
		for j := range b.Rounds[i].Matches {
			m := &b.Rounds[i].Matches[j]
			if m.Completed && !m.IsBye && !m.Skipped && m.Loser != "" {
				losses[m.Loser]++
			}
		}
	}
	if gf := b.GrandFinal(); gf.Completed && gf.Loser != "" && !b.Reset {
		losses[gf.Loser] = 2
	}

	out := make([]Participant, len(roster))
	for i, p := range roster {
		p.Eliminated = losses[p.ID] >= 2
		out[i] = p
	}
	return out
}
