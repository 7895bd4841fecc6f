package belote

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDeckPoints(t *testing.T) {
	for _, trump := range Suits {
		total := CardsPoints(NewDeck(), trump)
		if total != DeckPoints {
			t.Errorf("Deck points with %s trump = %d; expected %d", trump, total, DeckPoints)
		}
	}
}

func TestScoreRound(t *testing.T) {
	testCases := []struct {
		name     string
		in       ScoreInput
		expected map[string]int
		result   ContractResult
	}{
		{
			name: "taker 82 against 70 succeeds",
			in: ScoreInput{
				Teams: []TeamCards{
					{Name: "A", Cards: Cards("Jh", "9h", "Ah", "Th", "As", "Kh", "Js")},
					{Name: "B", Cards: Cards("Ad", "Td", "Ac", "Tc", "Ts", "Kd", "Kc", "Ks", "Qh", "Qs")},
				},
				Taker:         "A",
				LastTrickTeam: "A",
				Trump:         Hearts,
			},
			expected: map[string]int{"A": 82, "B": 70},
			result:   ContractSucceeded,
		},
		{
			name: "taker 81 against 71 fails",
			in: ScoreInput{
				Teams: []TeamCards{
					{Name: "A", Cards: Cards("Jh", "9h", "Ah", "Th", "As", "Ts", "Qs", "Js")},
					{Name: "B", Cards: Cards("Ad", "Td", "Ac", "Tc", "Kd", "Kc", "Ks", "Qh", "Kh")},
				},
				Taker:         "A",
				LastTrickTeam: "B",
				Trump:         Hearts,
			},
			expected: map[string]int{"A": 0, "B": 162},
			result:   ContractFailed,
		},
		{
			name: "taker must beat the defenders",
			in: ScoreInput{
				Teams: []TeamCards{
					{Name: "A", Cards: Cards("Jh", "9h", "Ah", "Th", "As", "Ts", "Qs", "Js")},
					{Name: "B", Cards: Cards("Ad", "Td", "Ac", "Tc", "Kd", "Kc", "Ks", "Qh", "Kh")},
				},
				Taker:         "B",
				LastTrickTeam: "B",
				Trump:         Hearts,
			},
			expected: map[string]int{"A": 162, "B": 0},
			result:   ContractFailed,
		},
		{
			name: "capot ignores card values and keeps the belote bonus",
			in: ScoreInput{
				Teams: []TeamCards{
					{Name: "A", Cards: NewDeck(), Belote: Rebelote},
					{Name: "B"},
				},
				Taker:         "A",
				LastTrickTeam: "A",
				Trump:         Spades,
				Capot:         true,
			},
			expected: map[string]int{"A": 272, "B": 0},
			result:   ContractSucceeded,
		},
		{
			name: "belote bonus survives a failed contract",
			in: ScoreInput{
				Teams: []TeamCards{
					{Name: "A", Cards: Cards("Jh", "9h", "Ah", "Th", "As", "Ts", "Qs", "Js"), Belote: BeloteDeclared},
					{Name: "B", Cards: Cards("Ad", "Td", "Ac", "Tc", "Kd", "Kc", "Ks", "Qh", "Kh")},
				},
				Taker:         "A",
				LastTrickTeam: "B",
				Trump:         Hearts,
			},
			expected: map[string]int{"A": 20, "B": 162},
			result:   ContractFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			score := ScoreRound(tc.in)
			if !cmp.Equal(score.Points, tc.expected) {
				t.Errorf("Points = %v; expected %v (tallied %v)", score.Points, tc.expected, score.Tallied)
			}
			if score.Result != tc.result {
				t.Errorf("Result = %s; expected %s", score.Result, tc.result)
			}
		})
	}
}

func TestTalliedPointsAreConserved(t *testing.T) {
	randGen := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		deck := Shuffle(NewDeck(), randGen)
		split := 1 + randGen.Intn(len(deck)-1)
		trump := Suits[randGen.Intn(len(Suits))]
		last := "A"
		if randGen.Intn(2) == 1 {
			last = "B"
		}
		score := ScoreRound(ScoreInput{
			Teams: []TeamCards{
				{Name: "A", Cards: deck[:split]},
				{Name: "B", Cards: deck[split:]},
			},
			Taker:         "A",
			LastTrickTeam: last,
			Trump:         trump,
		})
		total := score.Tallied["A"] + score.Tallied["B"]
		if total != DeckPoints+LastTrickBonus {
			t.Fatalf("Tallied %v sums to %d; expected %d", score.Tallied, total, DeckPoints+LastTrickBonus)
		}
	}
}
