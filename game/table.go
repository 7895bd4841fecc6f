package game

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"belote.com/server/belote"
	"belote.com/server/logging"
	"belote.com/server/timer"
	"belote.com/server/util"
)

var tableLogger = log.With().Str("logger_name", "game::table").Logger()

const eventQueueSize = 64

// event is either an intent or a call that needs the engine, such as a
// snapshot read. Both share one queue so they are applied in arrival order.
type event struct {
	intent Intent
	call   func(*Engine)
}

// Broadcaster delivers outbound messages. Implementations must not block the
// table for long; they receive snapshots they are free to keep.
type Broadcaster interface {
	BroadcastState(state *GameState)
	SendRejection(sessionID string, rejection Rejection)
}

// MultiBroadcaster fans every message out to several transports.
type MultiBroadcaster []Broadcaster

func (m MultiBroadcaster) BroadcastState(state *GameState) {
	for i, b := range m {
		if i == len(m)-1 {
			b.BroadcastState(state)
		} else {
			b.BroadcastState(state.Clone())
		}
	}
}

func (m MultiBroadcaster) SendRejection(sessionID string, rejection Rejection) {
	for _, b := range m {
		b.SendRejection(sessionID, rejection)
	}
}

// Table owns an Engine and applies one event at a time from a single goroutine.
type Table struct {
	engine      *Engine
	delays      Delays
	archive     RoundArchive
	broadcaster Broadcaster

	chEvent chan event
	done    chan struct{}

	actionTimer *timer.ActionTimer
	timerActive bool
	timedAction uint32
}

func NewTable(engine *Engine, delays Delays, archive RoundArchive, broadcaster Broadcaster) *Table {
	if archive == nil {
		archive = NewMemoryRoundArchive()
	}
	return &Table{
		engine:      engine,
		delays:      delays,
		archive:     archive,
		broadcaster: broadcaster,
		chEvent:     make(chan event, eventQueueSize),
		done:        make(chan struct{}),
	}
}

func (t *Table) TableCode() string {
	return t.engine.config.TableCode
}

func (t *Table) Archive() RoundArchive {
	return t.archive
}

// Run processes events until ctx is cancelled.
func (t *Table) Run(ctx context.Context) {
	defer close(t.done)
	if t.delays.TurnTimeoutDuration() > 0 {
		t.actionTimer = timer.NewActionTimer(t.TableCode(), t.onTurnExpired, t.onTimerCrash)
		t.actionTimer.Run()
		defer t.actionTimer.Destroy()
	}

	tableLogger.Info().Str(logging.TableKey, t.TableCode()).Msg("Table is running")
	for {
		select {
		case <-ctx.Done():
			tableLogger.Info().Str(logging.TableKey, t.TableCode()).Msg("Table stopped")
			return
		case ev := <-t.chEvent:
			if ev.call != nil {
				ev.call(t.engine)
			} else {
				t.handle(ev.intent)
			}
		}
	}
}

// Submit queues an intent from a transport.
func (t *Table) Submit(ctx context.Context, in Intent) error {
	if !in.Kind.IsPlayerIntent() && in.Kind != IntentDisconnect {
		return errors.Wrap(ErrUnknownIntent, fmt.Sprintf("Cannot submit [%s]", in.Kind))
	}
	select {
	case t.chEvent <- event{intent: in}:
		return nil
	case <-t.done:
		return errors.New("table is stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a deep copy of the state, read in turn with the other events.
func (t *Table) Snapshot(ctx context.Context) (*GameState, error) {
	var state *GameState
	err := t.call(ctx, func(e *Engine) {
		state = e.Snapshot()
	})
	return state, err
}

// SetupNextDeck scripts the deck of the next deal.
func (t *Table) SetupNextDeck(ctx context.Context, cards []belote.Card) error {
	var setupErr error
	err := t.call(ctx, func(e *Engine) {
		setupErr = e.SetupNextDeck(cards)
	})
	if err != nil {
		return err
	}
	return setupErr
}

func (t *Table) call(ctx context.Context, fn func(*Engine)) error {
	finished := make(chan struct{})
	wrapped := func(e *Engine) {
		defer close(finished)
		fn(e)
	}
	select {
	case t.chEvent <- event{call: wrapped}:
	case <-t.done:
		return errors.New("table is stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue re-enters the queue from timers without blocking them.
func (t *Table) enqueue(in Intent) {
	go func() {
		select {
		case t.chEvent <- event{intent: in}:
		case <-t.done:
		}
	}()
}

// onTimerCrash runs on the dead timer goroutine. Turns are untimed from then on.
func (t *Table) onTimerCrash() {
	go func() {
		select {
		case t.chEvent <- event{call: func(*Engine) {
			tableLogger.Error().Str(logging.TableKey, t.TableCode()).Msg("Turn timer crashed. Turns are no longer timed")
			t.actionTimer = nil
			t.timerActive = false
		}}:
		case <-t.done:
		}
	}()
}

func (t *Table) onTurnExpired(msg timer.TimerMsg) {
	t.enqueue(Intent{Kind: IntentTurnTimeout, SessionID: msg.PlayerID, ActionNum: msg.ActionNum})
}

func (t *Table) handle(in Intent) {
	defer func() {
		if err := recover(); err != nil {
			tableLogger.Error().
				Str(logging.TableKey, t.TableCode()).
				Str(logging.IntentKey, string(in.Kind)).
				Msgf("Panic while applying intent: %s\nStack Trace:\n%s", err, string(debug.Stack()))
			t.engine.Reset()
			t.afterReset("panic")
			t.publish()
		}
	}()

	result, err := t.engine.Apply(in)
	if err != nil {
		t.reject(in, err)
		return
	}
	util.Metrics.IntentAccepted(string(in.Kind))
	if !result.Changed {
		return
	}

	state := t.engine.State()
	if result.TrickComplete {
		util.Metrics.TrickResolved()
		actionNum := state.ActionNum
		time.AfterFunc(t.delays.TrickSettleDuration(), func() {
			t.enqueue(Intent{Kind: IntentSettleTrick, ActionNum: actionNum})
		})
	}
	if result.RoundSettled && len(state.ScoreHistory) > 0 {
		entry := state.ScoreHistory[len(state.ScoreHistory)-1]
		util.Metrics.RoundSettled(string(entry.Result))
		if err := t.archive.Append(t.TableCode(), entry.clone()); err != nil {
			tableLogger.Error().Err(err).Str(logging.TableKey, t.TableCode()).Msg("Could not archive round")
		}
	}
	if result.Reset {
		t.afterReset(result.ResetReason)
	}
	t.publish()
}

func (t *Table) reject(in Intent, err error) {
	var rejection RejectionError
	reason := "internal"
	if errors.As(err, &rejection) {
		reason = rejection.Reason()
	}
	if !in.Kind.IsPlayerIntent() && errors.Is(err, ErrStaleEvent) {
		tableLogger.Debug().
			Str(logging.TableKey, t.TableCode()).
			Str(logging.IntentKey, string(in.Kind)).
			Uint32("actionNum", in.ActionNum).
			Msg("Ignoring stale event")
		return
	}
	tableLogger.Info().
		Str(logging.TableKey, t.TableCode()).
		Str(logging.IntentKey, string(in.Kind)).
		Str(logging.SessionKey, in.SessionID).
		Str(logging.ReasonKey, reason).
		Msg("Intent rejected")
	util.Metrics.IntentRejected(string(in.Kind), reason)
	if in.SessionID != "" && in.Kind.IsPlayerIntent() && t.broadcaster != nil {
		t.broadcaster.SendRejection(in.SessionID, Rejection{Intent: in.Kind, Reason: reason})
	}
}

func (t *Table) afterReset(reason string) {
	util.Metrics.TableReset(reason)
	if err := t.archive.Remove(t.TableCode()); err != nil {
		tableLogger.Error().Err(err).Str(logging.TableKey, t.TableCode()).Msg("Could not clear the round archive")
	}
}

func (t *Table) publish() {
	state := t.engine.State()
	util.Metrics.SetConnectedSeats(state.ConnectedSeats())
	t.updateTurnTimer(state)
	if t.broadcaster != nil {
		t.broadcaster.BroadcastState(state.Clone())
	}
}

// updateTurnTimer restarts the turn timer whenever the turn moves and stops it
// outside of turns.
func (t *Table) updateTurnTimer(state *GameState) {
	if t.actionTimer == nil {
		return
	}
	inTurn := state.Phase == PhaseBidding || state.Phase == PhaseBiddingRound2 ||
		(state.Phase == PhasePlaying && state.TrickWinnerID == "")
	if !inTurn {
		if t.timerActive {
			t.actionTimer.Pause()
			t.timerActive = false
		}
		return
	}
	if t.timerActive && t.timedAction == state.ActionNum {
		return
	}
	err := t.actionTimer.Reset(timer.TimerMsg{
		PlayerID:  state.CurrentPlayerTurn,
		ActionNum: state.ActionNum,
		ExpireAt:  time.Now().Add(t.delays.TurnTimeoutDuration()),
	})
	if err != nil {
		tableLogger.Error().Err(err).Str(logging.TableKey, t.TableCode()).Msg("Could not start the turn timer")
		return
	}
	t.timerActive = true
	t.timedAction = state.ActionNum
}
