package game

import (
	"belote.com/server/belote"
)

type Phase string

const (
	PhaseWaiting       Phase = "waiting"
	PhaseBidding       Phase = "bidding"
	PhaseBiddingRound2 Phase = "bidding_round_2"
	PhasePlaying       Phase = "playing"
	PhaseEnd           Phase = "end"
	PhaseGameOver      Phase = "game_over"
)

const (
	NumSeats       = 4
	TricksPerRound = 8
	InitialDeal    = 5
	TakerTopUp     = 2
	DefenderTopUp  = 3
)

var TeamNames = [2]string{"Équipe A", "Équipe B"}

// Player is a seat at the table. ID is the transport session currently bound
// to the seat, Name survives reconnects.
type Player struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Hand      []belote.Card `json:"hand"`
	Connected bool          `json:"connected"`
}

type Team struct {
	Name               string             `json:"name"`
	Members            [2]string          `json:"members"`
	Score              int                `json:"score"`
	CollectedCards     []belote.Card      `json:"collectedCards"`
	Belote             belote.BeloteState `json:"beloteState"`
	MissedBeloteWindow bool               `json:"missedBeloteWindow"`
}

func (t *Team) HasMember(name string) bool {
	return t.Members[0] == name || t.Members[1] == name
}

// ScoreEntry is one settled round in the score ledger.
type ScoreEntry struct {
	Round   int                           `json:"round"`
	Trump   belote.Suit                   `json:"trump"`
	Taker   string                        `json:"taker"`
	Points  map[string]int                `json:"points"`
	Tallied map[string]int                `json:"tallied"`
	Totals  map[string]int                `json:"totals"`
	Result  belote.ContractResult         `json:"result"`
	Capot   bool                          `json:"capot"`
	Belote  map[string]belote.BeloteState `json:"belote"`
}

type GameState struct {
	TableCode         string                `json:"tableCode"`
	Phase             Phase                 `json:"phase"`
	Players           []*Player             `json:"players"`
	Teams             []*Team               `json:"teams"`
	Deck              []belote.Card         `json:"deck"`
	BiddingCard       *belote.Card          `json:"biddingCard,omitempty"`
	CurrentPlayerTurn string                `json:"currentPlayerTurn,omitempty"`
	TrumpSuit         belote.Suit           `json:"trumpSuit,omitempty"`
	TakerTeamName     string                `json:"takerTeamName,omitempty"`
	BeloteHolderID    string                `json:"beloteHolderId,omitempty"`
	CurrentTrick      []belote.PlayedCard   `json:"currentTrick"`
	TrickWinnerID     string                `json:"trickWinnerId,omitempty"`
	RoundPoints       map[string]int        `json:"roundPoints,omitempty"`
	ContractResult    belote.ContractResult `json:"contractResult,omitempty"`
	ScoreHistory      []ScoreEntry          `json:"scoreHistory"`
	TrickHistory      [][]belote.PlayedCard `json:"trickHistory"`
	WinnerTeam        string                `json:"winnerTeam,omitempty"`
	RoundNumber       int                   `json:"roundNumber"`

	BiddingPasses          int    `json:"biddingPasses"`
	BeloteWindowOpen       bool   `json:"beloteWindowOpen"`
	BeloteDeclaredInWindow bool   `json:"beloteDeclaredInWindow"`
	ActionNum              uint32 `json:"actionNum"`
}

func newGameState(tableCode string, actionNum uint32) *GameState {
	return &GameState{
		TableCode:    tableCode,
		Phase:        PhaseWaiting,
		Players:      make([]*Player, 0, NumSeats),
		CurrentTrick: make([]belote.PlayedCard, 0, belote.TrickSize),
		ScoreHistory: make([]ScoreEntry, 0),
		TrickHistory: make([][]belote.PlayedCard, 0, TricksPerRound),
		ActionNum:    actionNum,
	}
}

func (s *GameState) seatOf(sessionID string) int {
	for i, p := range s.Players {
		if p.ID == sessionID {
			return i
		}
	}
	return -1
}

func (s *GameState) seatByName(name string) int {
	for i, p := range s.Players {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (s *GameState) playerByID(sessionID string) *Player {
	idx := s.seatOf(sessionID)
	if idx < 0 {
		return nil
	}
	return s.Players[idx]
}

func (s *GameState) team(name string) *Team {
	for _, t := range s.Teams {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func (s *GameState) teamOf(playerName string) *Team {
	for _, t := range s.Teams {
		if t.HasMember(playerName) {
			return t
		}
	}
	return nil
}

func (s *GameState) opponentOf(teamName string) *Team {
	for _, t := range s.Teams {
		if t.Name != teamName {
			return t
		}
	}
	return nil
}

// CardCount is the number of cards in play: deck, hands, bidding card,
// collected piles and the current trick.
func (s *GameState) CardCount() int {
	count := len(s.Deck) + len(s.CurrentTrick)
	if s.BiddingCard != nil {
		count++
	}
	for _, p := range s.Players {
		count += len(p.Hand)
	}
	for _, t := range s.Teams {
		count += len(t.CollectedCards)
	}
	return count
}

func (s *GameState) ConnectedSeats() int {
	count := 0
	for _, p := range s.Players {
		if p.Connected {
			count++
		}
	}
	return count
}

func copyCards(cards []belote.Card) []belote.Card {
	if cards == nil {
		return nil
	}
	out := make([]belote.Card, len(cards))
	copy(out, cards)
	return out
}

func copyTrick(trick []belote.PlayedCard) []belote.PlayedCard {
	if trick == nil {
		return nil
	}
	out := make([]belote.PlayedCard, len(trick))
	copy(out, trick)
	return out
}

func copyPoints(points map[string]int) map[string]int {
	if points == nil {
		return nil
	}
	out := make(map[string]int, len(points))
	for k, v := range points {
		out[k] = v
	}
	return out
}

func (e ScoreEntry) clone() ScoreEntry {
	c := e
	c.Points = copyPoints(e.Points)
	c.Tallied = copyPoints(e.Tallied)
	c.Totals = copyPoints(e.Totals)
	if e.Belote != nil {
		c.Belote = make(map[string]belote.BeloteState, len(e.Belote))
		for k, v := range e.Belote {
			c.Belote[k] = v
		}
	}
	return c
}

// Clone returns a deep copy that shares nothing with the receiver. Snapshots
// handed to transports are always clones.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		cp.Hand = copyCards(p.Hand)
		c.Players[i] = &cp
	}
	if s.Teams != nil {
		c.Teams = make([]*Team, len(s.Teams))
		for i, t := range s.Teams {
			ct := *t
			ct.CollectedCards = copyCards(t.CollectedCards)
			c.Teams[i] = &ct
		}
	}
	c.Deck = copyCards(s.Deck)
	if s.BiddingCard != nil {
		card := *s.BiddingCard
		c.BiddingCard = &card
	}
	c.CurrentTrick = copyTrick(s.CurrentTrick)
	c.RoundPoints = copyPoints(s.RoundPoints)
	c.ScoreHistory = make([]ScoreEntry, len(s.ScoreHistory))
	for i, e := range s.ScoreHistory {
		c.ScoreHistory[i] = e.clone()
	}
	c.TrickHistory = make([][]belote.PlayedCard, len(s.TrickHistory))
	for i, t := range s.TrickHistory {
		c.TrickHistory[i] = copyTrick(t)
	}
	return &c
}
