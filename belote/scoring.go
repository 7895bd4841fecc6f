package belote

type BeloteState string

const (
	BeloteNone     BeloteState = "none"
	BeloteDeclared BeloteState = "belote"
	Rebelote       BeloteState = "rebelote"
)

type ContractResult string

const (
	ContractSucceeded ContractResult = "succeeded"
	ContractFailed    ContractResult = "failed"
)

const (
	// DeckPoints is the card point total of a full deck once trump is known.
	DeckPoints     = 152
	LastTrickBonus = 10
	CapotPoints    = 252
	// FailedContractPoints goes to the defenders when the taker falls short.
	FailedContractPoints = 162
	ContractMinimum      = 82
	BeloteBonus          = 20
)

var plainPoints = map[Rank]int{
	Seven: 0,
	Eight: 0,
	Nine:  0,
	Ten:   10,
	Jack:  2,
	Queen: 3,
	King:  4,
	Ace:   11,
}

var trumpPoints = map[Rank]int{
	Seven: 0,
	Eight: 0,
	Nine:  14,
	Ten:   10,
	Jack:  20,
	Queen: 3,
	King:  4,
	Ace:   11,
}

func CardPoints(c Card, trump Suit) int {
	if c.Suit == trump {
		return trumpPoints[c.Rank]
	}
	return plainPoints[c.Rank]
}

func CardsPoints(cards []Card, trump Suit) int {
	total := 0
	for _, c := range cards {
		total += CardPoints(c, trump)
	}
	return total
}

// TeamCards is what a team brings to round settlement.
type TeamCards struct {
	Name   string
	Cards  []Card
	Belote BeloteState
}

type ScoreInput struct {
	Teams         []TeamCards
	Taker         string
	LastTrickTeam string
	Trump         Suit
	Capot         bool
}

type RoundScore struct {
	// Points is what each team banks for the round.
	Points map[string]int
	// Tallied is the card count plus ten-for-last, before the contract is applied.
	Tallied map[string]int
	Result  ContractResult
}

// ScoreRound settles a round for a two team table.
func ScoreRound(in ScoreInput) RoundScore {
	score := RoundScore{
		Points:  make(map[string]int, len(in.Teams)),
		Tallied: make(map[string]int, len(in.Teams)),
	}

	for _, team := range in.Teams {
		tally := CardsPoints(team.Cards, in.Trump)
		if team.Name == in.LastTrickTeam {
			tally += LastTrickBonus
		}
		score.Tallied[team.Name] = tally
	}

	if in.Capot {
		score.Result = ContractSucceeded
		for _, team := range in.Teams {
			if team.Name == in.Taker {
				score.Points[team.Name] = CapotPoints
			} else {
				score.Points[team.Name] = 0
			}
		}
	} else {
		takerTotal := score.Tallied[in.Taker]
		defenderTotal := 0
		for _, team := range in.Teams {
			if team.Name != in.Taker {
				defenderTotal += score.Tallied[team.Name]
			}
		}
		if takerTotal >= ContractMinimum && takerTotal > defenderTotal {
			score.Result = ContractSucceeded
			for _, team := range in.Teams {
				score.Points[team.Name] = score.Tallied[team.Name]
			}
		} else {
			score.Result = ContractFailed
			for _, team := range in.Teams {
				if team.Name == in.Taker {
					score.Points[team.Name] = 0
				} else {
					score.Points[team.Name] = FailedContractPoints
				}
			}
		}
	}

	for _, team := range in.Teams {
		if team.Belote == BeloteDeclared || team.Belote == Rebelote {
			score.Points[team.Name] += BeloteBonus
		}
	}
	return score
}
