package belote

import (
	"fmt"
	"strings"
)

type Suit string

type Rank string

const (
	Spades   Suit = "Pique"
	Hearts   Suit = "Coeur"
	Diamonds Suit = "Carreau"
	Clubs    Suit = "Trefle"
)

const (
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "Valet"
	Queen Rank = "Dame"
	King  Rank = "Roi"
	Ace   Rank = "As"
)

// Suits and Ranks are listed in deck building order.
var (
	Suits = []Suit{Spades, Hearts, Diamonds, Clubs}
	Ranks = []Rank{Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
)

var (
	charToSuit = map[uint8]Suit{
		's': Spades,
		'h': Hearts,
		'd': Diamonds,
		'c': Clubs,
	}
	charToRank = map[uint8]Rank{
		'7': Seven,
		'8': Eight,
		'9': Nine,
		'T': Ten,
		'J': Jack,
		'Q': Queen,
		'K': King,
		'A': Ace,
	}
	suitToChar = map[Suit]string{}
	rankToChar = map[Rank]string{}
)

var prettySuits = map[Suit]string{
	Spades:   "♠",
	Hearts:   "❤",
	Diamonds: "♦",
	Clubs:    "♣",
}

func init() {
	for c, s := range charToSuit {
		suitToChar[s] = string(c)
	}
	for c, r := range charToRank {
		rankToChar[r] = string(c)
	}
}

// Card is a value type, two cards are the same card when suit and rank match.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (s Suit) Valid() bool {
	_, ok := suitToChar[s]
	return ok
}

func (r Rank) Valid() bool {
	_, ok := rankToChar[r]
	return ok
}

func (c Card) Valid() bool {
	return c.Suit.Valid() && c.Rank.Valid()
}

// NewCard parses the two character form used in logs and game scripts,
// rank first then suit ("Jh" is the jack of hearts, "Tc" the ten of clubs).
func NewCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("Invalid card [%s]", s)
	}
	rank, ok := charToRank[s[0]]
	if !ok {
		return Card{}, fmt.Errorf("Invalid rank in card [%s]", s)
	}
	suit, ok := charToSuit[s[1]]
	if !ok {
		return Card{}, fmt.Errorf("Invalid suit in card [%s]", s)
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// MustCard is NewCard for literals known to be valid.
func MustCard(s string) Card {
	c, err := NewCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

func Cards(ascii ...string) []Card {
	cards := make([]Card, len(ascii))
	for i, s := range ascii {
		cards[i] = MustCard(s)
	}
	return cards
}

func (c Card) String() string {
	return rankToChar[c.Rank] + suitToChar[c.Suit]
}

func (c Card) Pretty() string {
	return fmt.Sprintf("%s%s", rankToChar[c.Rank], prettySuits[c.Suit])
}

func CardsToString(cards []Card) string {
	var b strings.Builder
	b.WriteString("[")
	for i, c := range cards {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(c.Pretty())
	}
	b.WriteString("]")
	return b.String()
}

func ContainsCard(cards []Card, card Card) bool {
	return IndexOf(cards, card) >= 0
}

func IndexOf(cards []Card, card Card) int {
	for i, c := range cards {
		if c == card {
			return i
		}
	}
	return -1
}

// RemoveCard returns cards without the first occurrence of card.
func RemoveCard(cards []Card, card Card) ([]Card, bool) {
	idx := IndexOf(cards, card)
	if idx < 0 {
		return cards, false
	}
	out := make([]Card, 0, len(cards)-1)
	out = append(out, cards[:idx]...)
	out = append(out, cards[idx+1:]...)
	return out, true
}
