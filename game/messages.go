package game

import (
	"fmt"

	"belote.com/server/belote"
)

type IntentKind string

// Intents sent by players
const (
	IntentJoin          IntentKind = "joinGame"
	IntentBid           IntentKind = "playerBid"
	IntentPlayCard      IntentKind = "playCard"
	IntentDeclareBelote IntentKind = "declareBelote"
	IntentNextHand      IntentKind = "nextHand"
	IntentNewGame       IntentKind = "newGame"
)

// Intents raised by the transport or by the table itself
const (
	IntentDisconnect  IntentKind = "disconnect"
	IntentSettleTrick IntentKind = "settleTrick"
	IntentTurnTimeout IntentKind = "turnTimeout"
)

// Outbound message types
const (
	MessageGameStateUpdate string = "gameStateUpdate"
	MessageRejected        string = "rejected"
)

func (k IntentKind) IsPlayerIntent() bool {
	switch k {
	case IntentJoin, IntentBid, IntentPlayCard, IntentDeclareBelote, IntentNextHand, IntentNewGame:
		return true
	}
	return false
}

type BidKind int

const (
	BidPass BidKind = iota
	BidTake
	BidTrump
)

// Bid is a pass, a take of the turned card, or (second round) a named trump suit.
type Bid struct {
	Kind BidKind
	Suit belote.Suit
}

func Pass() Bid {
	return Bid{Kind: BidPass}
}

func Take() Bid {
	return Bid{Kind: BidTake}
}

func TrumpChoice(suit belote.Suit) Bid {
	return Bid{Kind: BidTrump, Suit: suit}
}

// ParseBid reads the wire form of a bid: "take", "pass" or a suit name.
func ParseBid(s string) (Bid, error) {
	switch s {
	case "take":
		return Take(), nil
	case "pass":
		return Pass(), nil
	}
	suit := belote.Suit(s)
	if !suit.Valid() {
		return Bid{}, fmt.Errorf("Invalid bid [%s]", s)
	}
	return TrumpChoice(suit), nil
}

func (b Bid) String() string {
	switch b.Kind {
	case BidTake:
		return "take"
	case BidPass:
		return "pass"
	}
	return string(b.Suit)
}

// Intent is one inbound event for the table.
type Intent struct {
	Kind      IntentKind
	SessionID string
	Name      string
	Bid       Bid
	Card      belote.Card
	// ActionNum ties table generated events to the state they were scheduled for.
	ActionNum uint32
}

// Rejection is the acknowledgment sent to the caller of a refused intent.
type Rejection struct {
	Intent IntentKind `json:"intent"`
	Reason string     `json:"reason"`
}

// IntentPayload is the wire body of a player intent, shared by the transports.
type IntentPayload struct {
	Name string       `json:"name,omitempty"`
	Bid  string       `json:"bid,omitempty"`
	Card *belote.Card `json:"card,omitempty"`
}

// ToIntent validates the payload for the given intent kind.
func (p IntentPayload) ToIntent(kind IntentKind, sessionID string) (Intent, error) {
	if !kind.IsPlayerIntent() {
		return Intent{}, fmt.Errorf("Unknown intent [%s]", kind)
	}
	in := Intent{Kind: kind, SessionID: sessionID, Name: p.Name}
	switch kind {
	case IntentBid:
		bid, err := ParseBid(p.Bid)
		if err != nil {
			return Intent{}, err
		}
		in.Bid = bid
	case IntentPlayCard:
		if p.Card == nil {
			return Intent{}, fmt.Errorf("Missing card")
		}
		in.Card = *p.Card
	}
	return in, nil
}

// OutboundMessage is the envelope of every message sent to clients.
type OutboundMessage struct {
	Type    string      `json:"t"`
	ReqID   string      `json:"reqId,omitempty"`
	Payload interface{} `json:"p"`
}

func StateMessage(state *GameState) OutboundMessage {
	return OutboundMessage{Type: MessageGameStateUpdate, Payload: state}
}

func RejectionMessage(rejection Rejection) OutboundMessage {
	return OutboundMessage{Type: MessageRejected, Payload: rejection}
}
