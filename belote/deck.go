package belote

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"math/rand"
)

const DeckSize = 32

// Bounds of the cut applied to a deck rebuilt from the previous round's tricks.
const (
	MinCut = 4
	MaxCut = 27
)

func newSeed() rand.Source {
	var b [8]byte
	_, err := crypto_rand.Read(b[:])
	if err != nil {
		panic("cannot seed math/rand package with cryptographically secure random number generator")
	}
	return rand.NewSource(int64(binary.LittleEndian.Uint64(b[:])))
}

// NewRand returns a generator seeded from crypto/rand.
func NewRand() *rand.Rand {
	return rand.New(newSeed())
}

// NewDeck returns the 32 cards suit by suit, each suit from seven to ace.
func NewDeck() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}
	return cards
}

// Shuffle returns a shuffled copy of deck. The input is not modified.
func Shuffle(deck []Card, randGen *rand.Rand) []Card {
	if randGen == nil {
		randGen = NewRand()
	}
	cards := make([]Card, len(deck))
	copy(cards, deck)
	for i := len(cards) - 1; i > 0; i-- {
		j := randGen.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return cards
}

// Cut moves the first at cards to the bottom of the deck.
func Cut(deck []Card, at int) []Card {
	cards := make([]Card, 0, len(deck))
	if at <= 0 || at >= len(deck) {
		return append(cards, deck...)
	}
	cards = append(cards, deck[at:]...)
	cards = append(cards, deck[:at]...)
	return cards
}

// RandomCut cuts the deck at a point drawn uniformly from [MinCut, MaxCut].
func RandomCut(deck []Card, randGen *rand.Rand) []Card {
	if randGen == nil {
		randGen = NewRand()
	}
	at := MinCut + randGen.Intn(MaxCut-MinCut+1)
	return Cut(deck, at)
}

// Pop removes the last card of the deck.
func Pop(deck []Card) (Card, []Card) {
	last := len(deck) - 1
	return deck[last], deck[:last]
}
