// Package turn computes snake-draft order. It is pure arithmetic with no I/O
// so the server's authoritative validation and any optimistic client compute
// identical results.
package turn

import "fmt"

// Slot locates an overall pick number within a draft: which round, which pick
// within the round, and which seat is on the clock.
type Slot struct {
	Round       int // 1-indexed
	PickInRound int // 1-indexed, 1..teamCount
	Seat        int // 0-indexed draft position
}

// At returns the slot for the given overall pick number in a snake draft.
// Odd rounds run seat 0..teamCount-1, even rounds reverse. Callers are
// responsible for rejecting pick numbers beyond the draft's total before
// calling.
func At(pickNumber, teamCount int) (Slot, error) {
	if teamCount < 2 {
		return Slot{}, fmt.Errorf("team count must be at least 2, got %d", teamCount)
	}
	if pickNumber < 1 {
		return Slot{}, fmt.Errorf("pick number must be at least 1, got %d", pickNumber)
	}

	round := (pickNumber-1)/teamCount + 1
	pickInRound := pickNumber - (round-1)*teamCount

	seat := pickInRound - 1
	if round%2 == 0 {
		seat = teamCount - pickInRound
	}

	return Slot{Round: round, PickInRound: pickInRound, Seat: seat}, nil
}

// Order returns the seat order for one round of a snake draft.
func Order(teamCount, round int) ([]int, error) {
	if teamCount < 2 {
		return nil, fmt.Errorf("team count must be at least 2, got %d", teamCount)
	}
	if round < 1 {
		return nil, fmt.Errorf("round must be at least 1, got %d", round)
	}

	seats := make([]int, teamCount)
	for i := range seats {
		if round%2 == 0 {
			seats[i] = teamCount - 1 - i
		} else {
			seats[i] = i
		}
	}
	return seats, nil
}

// TotalPicks returns the number of picks in a full draft.
func TotalPicks(teamCount, roundCount int) int {
	return teamCount * roundCount
}

// InRange reports whether pickNumber is a valid pick of the draft.
func InRange(pickNumber, teamCount, roundCount int) bool {
	return pickNumber >= 1 && pickNumber <= TotalPicks(teamCount, roundCount)
}
