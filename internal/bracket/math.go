package bracket

import (
	"fmt"
	"math/bits"
)

// TotalMatches is the number of decisive matches a double-elimination
// bracket of n players needs when the grand final is not reset.
func TotalMatches(n int) int {
	return 2*n - 2
}

// NextPowerOfTwo returns the smallest power of two >= n, with a floor of 2.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 2
	}
	return 1 << bits.Len(uint(n-1))
}

type WinnerStructure struct {
	BracketSize       int `json:"bracketSize"`
	TotalRounds       int `json:"totalRounds"`
	FirstRoundMatches int `json:"firstRoundMatches"`
	ByeCount          int `json:"byeCount"`
}

// WinnerBracketStructure computes the winner-bracket geometry for n players.
func WinnerBracketStructure(n int) (WinnerStructure, error) {
	if n < 2 {
		return WinnerStructure{}, fmt.Errorf("%w: participant count %d, need at least 2", ErrInvalidArgument, n)
	}
	size := NextPowerOfTwo(n)
	return WinnerStructure{
		BracketSize:       size,
		TotalRounds:       bits.TrailingZeros(uint(size)),
		FirstRoundMatches: size / 2,
		ByeCount:          size - n,
	}, nil
}

// LoserStructure describes the loser bracket. MatchesPerRound holds the
// structural size of every loser round, byes included; FirstRoundEntrants is
// the number of real players dropping out of winner round 1.
type LoserStructure struct {
	TotalRounds        int   `json:"totalRounds"`
	FirstRoundMatches  int   `json:"firstRoundMatches"`
	FirstRoundEntrants int   `json:"firstRoundEntrants"`
	MatchesPerRound    []int `json:"matchesPerRound"`
}

// LoserBracketStructure computes the loser-bracket geometry for n players.
// Loser round 2k-1 and 2k both hold BracketSize/2^(k+1) matches.
func LoserBracketStructure(n int) (LoserStructure, error) {
	ws, err := WinnerBracketStructure(n)
	if err != nil {
		return LoserStructure{}, err
	}
	total := 2 * (ws.TotalRounds - 1)
	ls := LoserStructure{
		TotalRounds:        total,
		FirstRoundEntrants: n - ws.FirstRoundMatches,
		MatchesPerRound:    make([]int, total),
	}
	for l := 1; l <= total; l++ {
		ls.MatchesPerRound[l-1] = ws.BracketSize >> ((l+1)/2 + 1)
	}
	if total > 0 {
		ls.FirstRoundMatches = ls.MatchesPerRound[0]
	}
	return ls, nil
}

// BracketSide is 0 for positions in the first half of a round and 1 for the
// second half. Seeds 1 and 2 always start on opposite sides.
func BracketSide(position, totalInRound int) int {
	if position < totalInRound/2 {
		return 0
	}
	return 1
}

// SeedOrder returns the slot order of seeds for a bracket of the given size:
// order(S) takes order(S/2) and follows every seed k with S+1-k. Adjacent
// entries meet in round 1, and seeds beyond the roster are byes, so the top
// seeds are the ones that absorb them.
func SeedOrder(size int) []int {
	order := []int{1}
	for n := 2; n <= size; n <<= 1 {
		next := make([]int, 0, n)
		for _, s := range order {
			next = append(next, s, n+1-s)
		}
		order = next
	}
	return order
}

// DropRound returns the loser round that receives the losers of the given
// winner round. Round 1 feeds loser round 1; round r feeds loser round
// 2(r-1), so the winner final feeds the loser final.
func DropRound(winnerRound int) int {
	if winnerRound <= 1 {
		return 1
	}
	return 2 * (winnerRound - 1)
}
