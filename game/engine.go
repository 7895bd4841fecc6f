package game

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"belote.com/server/belote"
	"belote.com/server/crashtest"
	"belote.com/server/logging"
)

var engineLogger = log.With().Str("logger_name", "game::engine").Logger()

const DefaultTargetScore = 1000

type Config struct {
	TableCode   string
	TargetScore int
}

// Result tells the table owner which side effects follow an accepted event.
type Result struct {
	Changed       bool
	TrickComplete bool
	RoundSettled  bool
	GameOver      bool
	Reset         bool
	ResetReason   string
}

// Engine is the phase state machine of a single table. It is not safe for
// concurrent use; Table serializes every call.
type Engine struct {
	config   Config
	state    *GameState
	randGen  *rand.Rand
	nextDeck []belote.Card
}

func NewEngine(config Config, randGen *rand.Rand) *Engine {
	if config.TargetScore <= 0 {
		config.TargetScore = DefaultTargetScore
	}
	if randGen == nil {
		randGen = belote.NewRand()
	}
	return &Engine{
		config:  config,
		state:   newGameState(config.TableCode, 0),
		randGen: randGen,
	}
}

// State returns the live state. Callers outside the owner goroutine must use
// Snapshot instead.
func (e *Engine) State() *GameState {
	return e.state
}

func (e *Engine) Snapshot() *GameState {
	return e.state.Clone()
}

// SetupNextDeck scripts the deck of the next deal. Cards are dealt from the end.
func (e *Engine) SetupNextDeck(cards []belote.Card) error {
	if len(cards) != belote.DeckSize {
		return fmt.Errorf("Scripted deck has %d cards, expected %d", len(cards), belote.DeckSize)
	}
	seen := make(map[belote.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return fmt.Errorf("Scripted deck has an invalid card %v", c)
		}
		if seen[c] {
			return fmt.Errorf("Scripted deck has card %s twice", c)
		}
		seen[c] = true
	}
	e.nextDeck = make([]belote.Card, len(cards))
	copy(e.nextDeck, cards)
	return nil
}

// Apply dispatches an intent to its handler.
func (e *Engine) Apply(in Intent) (Result, error) {
	var result Result
	var err error
	switch in.Kind {
	case IntentJoin:
		result, err = e.Join(in.SessionID, in.Name)
	case IntentBid:
		result, err = e.Bid(in.SessionID, in.Bid)
	case IntentPlayCard:
		result, err = e.PlayCard(in.SessionID, in.Card)
	case IntentDeclareBelote:
		result, err = e.DeclareBelote(in.SessionID)
	case IntentNextHand:
		result, err = e.NextHand(in.SessionID)
	case IntentNewGame:
		result, err = e.NewGame(in.SessionID)
	case IntentDisconnect:
		result, err = e.Disconnect(in.SessionID)
	case IntentSettleTrick:
		result, err = e.SettleTrick(in.ActionNum)
	case IntentTurnTimeout:
		result, err = e.TurnTimeout(in.ActionNum)
	default:
		err = ErrUnknownIntent
	}
	if err != nil {
		return Result{}, RejectionError{Intent: in.Kind, Err: err}
	}

	if result.Changed {
		if invErr := e.checkInvariants(); invErr != nil {
			engineLogger.Error().
				Str(logging.TableKey, e.config.TableCode).
				Str(logging.IntentKey, string(in.Kind)).
				Msgf("Resetting table: %s", invErr.Error())
			e.reset()
			return Result{Changed: true, Reset: true, ResetReason: "invariant"}, nil
		}
	}
	return result, nil
}

func (e *Engine) checkInvariants() error {
	s := e.state
	if s.Phase == PhaseWaiting {
		if len(s.Players) >= NumSeats {
			return InvariantError{Msg: fmt.Sprintf("%d players waiting", len(s.Players))}
		}
		return nil
	}
	if len(s.Players) != NumSeats {
		return InvariantError{Msg: fmt.Sprintf("%d players seated in phase %s", len(s.Players), s.Phase)}
	}
	if count := s.CardCount(); count != belote.DeckSize {
		return InvariantError{Msg: fmt.Sprintf("%d cards in play in phase %s", count, s.Phase)}
	}
	if s.seatOf(s.CurrentPlayerTurn) < 0 {
		return InvariantError{Msg: fmt.Sprintf("turn [%s] is not a seat", s.CurrentPlayerTurn)}
	}
	return nil
}

func (e *Engine) logger() *zerolog.Logger {
	l := engineLogger.With().
		Str(logging.TableKey, e.config.TableCode).
		Int(logging.RoundKey, e.state.RoundNumber).
		Str(logging.PhaseKey, string(e.state.Phase)).
		Logger()
	return &l
}

// setTurn hands the turn to a seat. ActionNum moves with every turn change so
// that timers scheduled for an earlier turn are recognised as stale.
func (e *Engine) setTurn(sessionID string) {
	e.state.CurrentPlayerTurn = sessionID
	e.state.ActionNum++
}

func (e *Engine) nextSeat(seatNo int) int {
	return (seatNo + 1) % NumSeats
}

// Reset returns the table to waiting. Used after a panic in the owner.
func (e *Engine) Reset() {
	e.reset()
}

func (e *Engine) reset() {
	e.state = newGameState(e.config.TableCode, e.state.ActionNum+1)
	e.nextDeck = nil
}

// Join seats a new player, or gives a disconnected seat back to its owner.
func (e *Engine) Join(sessionID string, name string) (Result, error) {
	s := e.state
	name = strings.TrimSpace(name)
	if !validName(name) {
		return Result{}, ErrInvalidName
	}

	if seatNo := s.seatByName(name); seatNo >= 0 {
		if s.Players[seatNo].Connected {
			return Result{}, ErrNameTaken
		}
		if s.seatOf(sessionID) >= 0 {
			return Result{}, ErrAlreadySeated
		}
		s.rebind(seatNo, sessionID)
		e.logger().Info().
			Int(logging.SeatNumKey, seatNo).
			Str(logging.PlayerNameKey, name).
			Str(logging.SessionKey, sessionID).
			Msg("Player reconnected")
		return Result{Changed: true}, nil
	}

	if s.seatOf(sessionID) >= 0 {
		return Result{}, ErrAlreadySeated
	}
	if s.Phase != PhaseWaiting || len(s.Players) >= NumSeats {
		return Result{}, ErrTableFull
	}

	s.seat(sessionID, name)
	e.logger().Info().
		Str(logging.PlayerNameKey, name).
		Str(logging.SessionKey, sessionID).
		Msgf("Player joined. %d players at the table", len(s.Players))

	if len(s.Players) == NumSeats {
		if s.Teams == nil {
			e.formTeams()
		}
		e.startRound()
	}
	return Result{Changed: true}, nil
}

// formTeams pairs seats 0 and 2 against seats 1 and 3 for the life of the table.
func (e *Engine) formTeams() {
	s := e.state
	s.Teams = make([]*Team, 2)
	for i := range s.Teams {
		s.Teams[i] = &Team{
			Name:    TeamNames[i],
			Members: [2]string{s.Players[i].Name, s.Players[i+2].Name},
			Belote:  belote.BeloteNone,
		}
	}
}

func (e *Engine) roundDeck() []belote.Card {
	s := e.state
	if e.nextDeck != nil {
		deck := e.nextDeck
		e.nextDeck = nil
		return deck
	}
	if len(s.TrickHistory) == TricksPerRound {
		deck := make([]belote.Card, 0, belote.DeckSize)
		for _, trick := range s.TrickHistory {
			deck = append(deck, belote.TrickCards(trick)...)
		}
		if len(deck) == belote.DeckSize {
			return belote.RandomCut(deck, e.randGen)
		}
	}
	return belote.Shuffle(belote.NewDeck(), e.randGen)
}

// startRound deals five cards to every seat, turns the bidding card and opens
// the first bidding round.
func (e *Engine) startRound() {
	s := e.state
	deck := e.roundDeck()
	crashtest.Hit(crashtest.CrashPoint_DEAL)

	for _, p := range s.Players {
		p.Hand = make([]belote.Card, 0, TricksPerRound)
	}
	for _, t := range s.Teams {
		t.CollectedCards = make([]belote.Card, 0, belote.DeckSize)
		t.Belote = belote.BeloteNone
		t.MissedBeloteWindow = false
	}
	s.TrumpSuit = ""
	s.TakerTeamName = ""
	s.BeloteHolderID = ""
	s.CurrentTrick = make([]belote.PlayedCard, 0, belote.TrickSize)
	s.TrickWinnerID = ""
	s.RoundPoints = nil
	s.ContractResult = ""
	s.TrickHistory = make([][]belote.PlayedCard, 0, TricksPerRound)
	s.BiddingPasses = 0
	s.BeloteWindowOpen = false
	s.BeloteDeclaredInWindow = false
	s.RoundNumber = len(s.ScoreHistory) + 1

	var card belote.Card
	for i := 0; i < InitialDeal; i++ {
		for _, p := range s.Players {
			card, deck = belote.Pop(deck)
			p.Hand = append(p.Hand, card)
		}
	}
	card, deck = belote.Pop(deck)
	s.BiddingCard = &card
	s.Deck = deck

	s.Phase = PhaseBidding
	e.setTurn(s.Players[0].ID)

	e.logger().Info().
		Str("biddingCard", card.String()).
		Msgf("New round dealt. %s to speak first", s.Players[0].Name)
}

// Bid handles a take, a pass, or a named trump in the second round.
func (e *Engine) Bid(sessionID string, bid Bid) (Result, error) {
	s := e.state
	if s.Phase != PhaseBidding && s.Phase != PhaseBiddingRound2 {
		return Result{}, ErrWrongPhase
	}
	seatNo := s.seatOf(sessionID)
	if seatNo < 0 {
		return Result{}, ErrNotSeated
	}
	if sessionID != s.CurrentPlayerTurn {
		return Result{}, ErrWrongTurn
	}

	switch bid.Kind {
	case BidPass:
		return e.pass(seatNo), nil
	case BidTake:
		if s.Phase != PhaseBidding {
			return Result{}, ErrInvalidBid
		}
		e.takeTrump(seatNo, s.BiddingCard.Suit)
		return Result{Changed: true}, nil
	case BidTrump:
		if s.Phase != PhaseBiddingRound2 || !bid.Suit.Valid() || bid.Suit == s.BiddingCard.Suit {
			return Result{}, ErrInvalidBid
		}
		e.takeTrump(seatNo, bid.Suit)
		return Result{Changed: true}, nil
	}
	return Result{}, ErrInvalidBid
}

func (e *Engine) pass(seatNo int) Result {
	s := e.state
	s.BiddingPasses++
	e.logger().Debug().
		Str(logging.PlayerNameKey, s.Players[seatNo].Name).
		Msgf("Pass %d", s.BiddingPasses)

	switch {
	case s.Phase == PhaseBidding && s.BiddingPasses == NumSeats:
		s.Phase = PhaseBiddingRound2
	case s.Phase == PhaseBiddingRound2 && s.BiddingPasses == 2*NumSeats:
		e.logger().Info().Msg("Everybody passed twice. Redealing")
		e.startRound()
		return Result{Changed: true}
	}
	e.setTurn(s.Players[e.nextSeat(seatNo)].ID)
	return Result{Changed: true}
}

// takeTrump fixes trump, gives the bidding card to the taker and completes the deal.
func (e *Engine) takeTrump(seatNo int, trump belote.Suit) {
	s := e.state
	taker := s.Players[seatNo]
	s.TrumpSuit = trump
	s.TakerTeamName = s.teamOf(taker.Name).Name
	taker.Hand = append(taker.Hand, *s.BiddingCard)
	s.BiddingCard = nil

	deck := s.Deck
	var card belote.Card
	for i, p := range s.Players {
		count := DefenderTopUp
		if i == seatNo {
			count = TakerTopUp
		}
		for j := 0; j < count; j++ {
			card, deck = belote.Pop(deck)
			p.Hand = append(p.Hand, card)
		}
	}
	s.Deck = deck

	king := belote.Card{Suit: trump, Rank: belote.King}
	queen := belote.Card{Suit: trump, Rank: belote.Queen}
	for _, p := range s.Players {
		if belote.ContainsCard(p.Hand, king) && belote.ContainsCard(p.Hand, queen) {
			s.BeloteHolderID = p.ID
		}
	}

	s.BiddingPasses = 0
	s.Phase = PhasePlaying
	e.setTurn(s.Players[0].ID)

	e.logger().Info().
		Str(logging.PlayerNameKey, taker.Name).
		Str("trump", string(trump)).
		Msgf("%s takes for %s", taker.Name, s.TakerTeamName)
}

func isBeloteCard(c belote.Card, trump belote.Suit) bool {
	return c.Suit == trump && (c.Rank == belote.King || c.Rank == belote.Queen)
}

// PlayCard puts a card from the hand of the player to act into the trick.
func (e *Engine) PlayCard(sessionID string, card belote.Card) (Result, error) {
	s := e.state
	if s.Phase != PhasePlaying {
		return Result{}, ErrWrongPhase
	}
	if !card.Valid() {
		return Result{}, ErrInvalidCard
	}
	player := s.playerByID(sessionID)
	if player == nil {
		return Result{}, ErrNotSeated
	}
	if len(s.CurrentTrick) >= belote.TrickSize {
		return Result{}, ErrTrickSettling
	}
	if sessionID != s.CurrentPlayerTurn {
		return Result{}, ErrWrongTurn
	}
	hand, found := belote.RemoveCard(player.Hand, card)
	if !found {
		return Result{}, ErrCardNotInHand
	}

	player.Hand = hand
	s.CurrentTrick = append(s.CurrentTrick, belote.PlayedCard{PlayerID: sessionID, Card: card})

	if sessionID == s.BeloteHolderID && isBeloteCard(card, s.TrumpSuit) {
		team := s.teamOf(player.Name)
		if !team.MissedBeloteWindow && team.Belote != belote.Rebelote {
			s.BeloteWindowOpen = true
			s.BeloteDeclaredInWindow = false
		}
	}

	if len(s.CurrentTrick) < belote.TrickSize {
		e.setTurn(s.Players[e.nextSeat(s.seatOf(sessionID))].ID)
		return Result{Changed: true}, nil
	}

	winner, err := belote.TrickWinner(s.CurrentTrick, s.TrumpSuit)
	if err != nil {
		return Result{}, errors.Wrap(err, "Could not resolve trick")
	}
	s.TrickWinnerID = winner.PlayerID
	s.ActionNum++
	e.logger().Debug().
		Str("trick", belote.CardsToString(belote.TrickCards(s.CurrentTrick))).
		Msgf("Trick won by %s with %s", s.playerByID(winner.PlayerID).Name, winner.Card)
	return Result{Changed: true, TrickComplete: true}, nil
}

// SettleTrick runs once the settling delay of a complete trick has elapsed.
func (e *Engine) SettleTrick(actionNum uint32) (Result, error) {
	s := e.state
	if s.Phase != PhasePlaying || s.TrickWinnerID == "" || actionNum != s.ActionNum {
		return Result{}, ErrStaleEvent
	}
	crashtest.Hit(crashtest.CrashPoint_SETTLE_TRICK)
	winner := s.playerByID(s.TrickWinnerID)
	team := s.teamOf(winner.Name)
	team.CollectedCards = append(team.CollectedCards, belote.TrickCards(s.CurrentTrick)...)
	s.TrickHistory = append(s.TrickHistory, copyTrick(s.CurrentTrick))

	if s.BeloteWindowOpen && !s.BeloteDeclaredInWindow {
		holder := s.playerByID(s.BeloteHolderID)
		if holder != nil {
			s.teamOf(holder.Name).MissedBeloteWindow = true
			e.logger().Info().
				Str(logging.PlayerNameKey, holder.Name).
				Msg("Belote window missed")
		}
	}
	s.BeloteWindowOpen = false
	s.BeloteDeclaredInWindow = false

	s.CurrentTrick = make([]belote.PlayedCard, 0, belote.TrickSize)
	s.TrickWinnerID = ""

	if len(winner.Hand) == 0 {
		return e.settleRound(team.Name), nil
	}
	e.setTurn(winner.ID)
	return Result{Changed: true}, nil
}

func (e *Engine) settleRound(lastTrickTeam string) Result {
	crashtest.Hit(crashtest.CrashPoint_SETTLE_ROUND)
	s := e.state
	taker := s.team(s.TakerTeamName)
	defender := s.opponentOf(s.TakerTeamName)
	capot := len(defender.CollectedCards) == 0

	in := belote.ScoreInput{
		Taker:         taker.Name,
		LastTrickTeam: lastTrickTeam,
		Trump:         s.TrumpSuit,
		Capot:         capot,
	}
	beloteStates := make(map[string]belote.BeloteState, len(s.Teams))
	for _, t := range s.Teams {
		in.Teams = append(in.Teams, belote.TeamCards{Name: t.Name, Cards: t.CollectedCards, Belote: t.Belote})
		beloteStates[t.Name] = t.Belote
	}
	score := belote.ScoreRound(in)

	totals := make(map[string]int, len(s.Teams))
	for _, t := range s.Teams {
		t.Score += score.Points[t.Name]
		totals[t.Name] = t.Score
	}
	s.RoundPoints = score.Points
	s.ContractResult = score.Result
	s.ScoreHistory = append(s.ScoreHistory, ScoreEntry{
		Round:   len(s.ScoreHistory) + 1,
		Trump:   s.TrumpSuit,
		Taker:   taker.Name,
		Points:  copyPoints(score.Points),
		Tallied: score.Tallied,
		Totals:  totals,
		Result:  score.Result,
		Capot:   capot,
		Belote:  beloteStates,
	})
	s.Phase = PhaseEnd

	e.logger().Info().
		Str("result", string(score.Result)).
		Bool("capot", capot).
		Msgf("Round settled: %v, totals %v", score.Points, totals)

	result := Result{Changed: true, RoundSettled: true}
	if winner := e.tableWinner(); winner != "" {
		s.WinnerTeam = winner
		s.Phase = PhaseGameOver
		e.setTurn(s.Players[0].ID)
		result.GameOver = true
		e.logger().Info().Msgf("%s wins the game", winner)
		return result
	}

	// dealer rotation: the first seat moves to the back
	s.Players = append(s.Players[1:], s.Players[0])
	e.setTurn(s.Players[0].ID)
	return result
}

func (e *Engine) tableWinner() string {
	s := e.state
	reached := false
	for _, t := range s.Teams {
		if t.Score >= e.config.TargetScore {
			reached = true
		}
	}
	if !reached {
		return ""
	}
	best := s.team(s.TakerTeamName)
	for _, t := range s.Teams {
		if t.Score > best.Score {
			best = t
		}
	}
	return best.Name
}

// DeclareBelote announces belote, then rebelote, while the holder's window is open.
func (e *Engine) DeclareBelote(sessionID string) (Result, error) {
	s := e.state
	if s.Phase != PhasePlaying {
		return Result{}, ErrWrongPhase
	}
	player := s.playerByID(sessionID)
	if player == nil {
		return Result{}, ErrNotSeated
	}
	if sessionID != s.BeloteHolderID {
		return Result{}, ErrBeloteNotAllowed
	}
	team := s.teamOf(player.Name)
	if team.MissedBeloteWindow || !s.BeloteWindowOpen || s.BeloteDeclaredInWindow {
		return Result{}, ErrBeloteNotAllowed
	}
	switch team.Belote {
	case belote.BeloteNone:
		team.Belote = belote.BeloteDeclared
	case belote.BeloteDeclared:
		team.Belote = belote.Rebelote
	default:
		return Result{}, ErrBeloteNotAllowed
	}
	s.BeloteDeclaredInWindow = true
	e.logger().Info().
		Str(logging.PlayerNameKey, player.Name).
		Msgf("%s announced %s", player.Name, team.Belote)
	return Result{Changed: true}, nil
}

// NextHand starts the next round. Only the first seat may ask for it.
func (e *Engine) NextHand(sessionID string) (Result, error) {
	s := e.state
	if s.Phase != PhaseEnd {
		return Result{}, ErrWrongPhase
	}
	seatNo := s.seatOf(sessionID)
	if seatNo < 0 {
		return Result{}, ErrNotSeated
	}
	if seatNo != 0 {
		return Result{}, ErrNotTableHead
	}
	e.startRound()
	return Result{Changed: true}, nil
}

// NewGame clears the table. Only the first seat may ask for it.
func (e *Engine) NewGame(sessionID string) (Result, error) {
	s := e.state
	if s.Phase == PhaseWaiting {
		return Result{}, ErrWrongPhase
	}
	seatNo := s.seatOf(sessionID)
	if seatNo < 0 {
		return Result{}, ErrNotSeated
	}
	if seatNo != 0 {
		return Result{}, ErrNotTableHead
	}
	e.logger().Info().Msg("New game requested")
	e.reset()
	return Result{Changed: true, Reset: true, ResetReason: "new_game"}, nil
}

// Disconnect keeps the seat and its cards. A player leaving before the table
// is full simply gives the seat up.
func (e *Engine) Disconnect(sessionID string) (Result, error) {
	s := e.state
	seatNo := s.seatOf(sessionID)
	if seatNo < 0 {
		return Result{}, ErrNotSeated
	}
	player := s.Players[seatNo]
	if s.Phase == PhaseWaiting {
		s.unseat(seatNo)
		e.logger().Info().Str(logging.PlayerNameKey, player.Name).Msg("Player left the waiting table")
		return Result{Changed: true}, nil
	}
	if !player.Connected {
		return Result{}, ErrStaleEvent
	}
	player.Connected = false
	e.logger().Info().Str(logging.PlayerNameKey, player.Name).Msg("Player disconnected")

	if s.allDisconnected() {
		e.logger().Warn().Msg("All players disconnected. Resetting the table")
		e.reset()
		return Result{Changed: true, Reset: true, ResetReason: "all_disconnected"}, nil
	}
	return Result{Changed: true}, nil
}

// TurnTimeout acts for a seat that let its turn expire: a pass while bidding,
// the first card of the hand while playing.
func (e *Engine) TurnTimeout(actionNum uint32) (Result, error) {
	s := e.state
	if actionNum != s.ActionNum {
		return Result{}, ErrStaleEvent
	}
	player := s.playerByID(s.CurrentPlayerTurn)
	if player == nil {
		return Result{}, ErrStaleEvent
	}
	switch {
	case s.Phase == PhaseBidding || s.Phase == PhaseBiddingRound2:
		e.logger().Info().Str(logging.PlayerNameKey, player.Name).Msg("Turn expired, passing")
		return e.Bid(player.ID, Pass())
	case s.Phase == PhasePlaying && s.TrickWinnerID == "" && len(player.Hand) > 0:
		card := player.Hand[0]
		e.logger().Info().Str(logging.PlayerNameKey, player.Name).Msgf("Turn expired, playing %s", card)
		return e.PlayCard(player.ID, card)
	}
	return Result{}, ErrStaleEvent
}
