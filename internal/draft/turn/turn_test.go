package turn

import "testing"

func TestAtTwelveTeams(t *testing.T) {
	tests := []struct {
		name        string
		pickNumber  int
		wantRound   int
		wantInRound int
		wantSeat    int
	}{
		{"first overall", 1, 1, 1, 0},
		{"middle of round one", 7, 1, 7, 6},
		{"end of round one", 12, 1, 12, 11},
		{"snake reversal", 13, 2, 1, 11},
		{"second pick of round two", 14, 2, 2, 10},
		{"end of round two", 24, 2, 12, 0},
		{"round three restarts", 25, 3, 1, 0},
		{"final pick of eighteen rounds", 216, 18, 12, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := At(tt.pickNumber, 12)
			if err != nil {
				t.Fatalf("At(%d, 12) returned error: %v", tt.pickNumber, err)
			}
			if slot.Round != tt.wantRound {
				t.Errorf("round = %d, want %d", slot.Round, tt.wantRound)
			}
			if slot.PickInRound != tt.wantInRound {
				t.Errorf("pick in round = %d, want %d", slot.PickInRound, tt.wantInRound)
			}
			if slot.Seat != tt.wantSeat {
				t.Errorf("seat = %d, want %d", slot.Seat, tt.wantSeat)
			}
		})
	}
}

func TestAtSeatBounds(t *testing.T) {
	const rounds = 18
	for teamCount := 2; teamCount <= 20; teamCount++ {
		seen := make(map[int]int)
		for pick := 1; pick <= teamCount*rounds; pick++ {
			slot, err := At(pick, teamCount)
			if err != nil {
				t.Fatalf("At(%d, %d) returned error: %v", pick, teamCount, err)
			}
			if slot.Seat < 0 || slot.Seat >= teamCount {
				t.Fatalf("At(%d, %d) seat %d out of range", pick, teamCount, slot.Seat)
			}
			if slot.Round < 1 || slot.Round > rounds {
				t.Fatalf("At(%d, %d) round %d out of range", pick, teamCount, slot.Round)
			}
			if got := (slot.Round-1)*teamCount + slot.PickInRound; got != pick {
				t.Fatalf("At(%d, %d) round/pick-in-round do not recompose: got %d", pick, teamCount, got)
			}
			seen[slot.Seat]++
		}
		// Every seat picks exactly once per round.
		for seat, n := range seen {
			if n != rounds {
				t.Errorf("teamCount=%d seat %d picked %d times, want %d", teamCount, seat, n, rounds)
			}
		}
	}
}

func TestAtRejectsBadInput(t *testing.T) {
	if _, err := At(0, 12); err == nil {
		t.Error("expected error for pick number 0")
	}
	if _, err := At(-3, 12); err == nil {
		t.Error("expected error for negative pick number")
	}
	if _, err := At(1, 1); err == nil {
		t.Error("expected error for single-team draft")
	}
}

func TestOrder(t *testing.T) {
	odd, err := Order(4, 1)
	if err != nil {
		t.Fatalf("Order returned error: %v", err)
	}
	even, err := Order(4, 2)
	if err != nil {
		t.Fatalf("Order returned error: %v", err)
	}

	wantOdd := []int{0, 1, 2, 3}
	wantEven := []int{3, 2, 1, 0}
	for i := range wantOdd {
		if odd[i] != wantOdd[i] {
			t.Errorf("odd round order[%d] = %d, want %d", i, odd[i], wantOdd[i])
		}
		if even[i] != wantEven[i] {
			t.Errorf("even round order[%d] = %d, want %d", i, even[i], wantEven[i])
		}
	}
}

func TestInRange(t *testing.T) {
	if !InRange(1, 12, 18) || !InRange(216, 12, 18) {
		t.Error("expected picks 1 and 216 to be in range for a 12x18 draft")
	}
	if InRange(0, 12, 18) || InRange(217, 12, 18) {
		t.Error("expected picks 0 and 217 to be out of range for a 12x18 draft")
	}
}
