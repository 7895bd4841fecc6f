package belote

import "fmt"

const TrickSize = 4

// PlayedCard is one entry of a trick, in play order.
type PlayedCard struct {
	PlayerID string `json:"playerId"`
	Card     Card   `json:"card"`
}

// TrumpOrder and PlainOrder list the ranks from weakest to strongest.
var (
	TrumpOrder = []Rank{Seven, Eight, Queen, King, Ten, Ace, Nine, Jack}
	PlainOrder = []Rank{Seven, Eight, Nine, Jack, Queen, King, Ten, Ace}
)

var (
	trumpStrength = strengthTable(TrumpOrder)
	plainStrength = strengthTable(PlainOrder)
)

func strengthTable(order []Rank) map[Rank]int {
	m := make(map[Rank]int, len(order))
	for i, r := range order {
		m[r] = i
	}
	return m
}

func TrumpStrength(r Rank) int {
	return trumpStrength[r]
}

func PlainStrength(r Rank) int {
	return plainStrength[r]
}

// beats reports whether challenger takes the trick from current.
func beats(challenger Card, current Card, led Suit, trump Suit) bool {
	challengerTrump := challenger.Suit == trump
	currentTrump := current.Suit == trump
	switch {
	case challengerTrump && !currentTrump:
		return true
	case !challengerTrump && currentTrump:
		return false
	case challengerTrump && currentTrump:
		return trumpStrength[challenger.Rank] > trumpStrength[current.Rank]
	}
	if challenger.Suit != led {
		return false
	}
	if current.Suit != led {
		return true
	}
	return plainStrength[challenger.Rank] > plainStrength[current.Rank]
}

// TrickWinner returns the entry that takes a complete trick.
func TrickWinner(trick []PlayedCard, trump Suit) (PlayedCard, error) {
	if len(trick) != TrickSize {
		return PlayedCard{}, fmt.Errorf("Trick has %d cards, expected %d", len(trick), TrickSize)
	}
	led := trick[0].Card.Suit
	winner := trick[0]
	for _, played := range trick[1:] {
		if beats(played.Card, winner.Card, led, trump) {
			winner = played
		}
	}
	return winner, nil
}

// TrickCards returns the cards of a trick in play order.
func TrickCards(trick []PlayedCard) []Card {
	cards := make([]Card, len(trick))
	for i, p := range trick {
		cards[i] = p.Card
	}
	return cards
}
