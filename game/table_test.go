package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"belote.com/server/crashtest"
)

type recordingBroadcaster struct {
	lock       sync.Mutex
	states     []*GameState
	rejections map[string][]Rejection
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{rejections: make(map[string][]Rejection)}
}

func (r *recordingBroadcaster) BroadcastState(state *GameState) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.states = append(r.states, state)
}

func (r *recordingBroadcaster) SendRejection(sessionID string, rejection Rejection) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.rejections[sessionID] = append(r.rejections[sessionID], rejection)
}

func (r *recordingBroadcaster) stateCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.states)
}

func (r *recordingBroadcaster) rejectionsOf(sessionID string) []Rejection {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Rejection(nil), r.rejections[sessionID]...)
}

func startTable(t *testing.T, delays Delays, targetScore int) (*Table, *recordingBroadcaster, func()) {
	engine := NewEngine(Config{TableCode: "T1", TargetScore: targetScore}, rand.New(rand.NewSource(3)))
	broadcaster := newRecordingBroadcaster()
	table := NewTable(engine, delays, NewMemoryRoundArchive(), broadcaster)
	ctx, cancel := context.WithCancel(context.Background())
	go table.Run(ctx)
	require.NoError(t, table.SetupNextDeck(ctx, heartsDeck()))
	return table, broadcaster, cancel
}

func snapshot(t *testing.T, table *Table) *GameState {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	state, err := table.Snapshot(ctx)
	require.NoError(t, err)
	return state
}

func submit(t *testing.T, table *Table, in Intent) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, table.Submit(ctx, in))
}

func waitFor(t *testing.T, table *Table, cond func(s *GameState) bool) *GameState {
	var state *GameState
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s, err := table.Snapshot(ctx)
		if err != nil {
			return false
		}
		state = s
		return cond(s)
	}, 3*time.Second, 5*time.Millisecond)
	return state
}

func submitJoins(t *testing.T, table *Table) {
	for i := range sessions {
		submit(t, table, Intent{Kind: IntentJoin, SessionID: sessions[i], Name: names[i]})
	}
}

func TestTableBroadcastsEveryMutation(t *testing.T) {
	table, broadcaster, stop := startTable(t, Delays{}, 0)
	defer stop()

	submitJoins(t, table)
	state := waitFor(t, table, func(s *GameState) bool { return s.Phase == PhaseBidding })
	assert.Len(t, state.Players, NumSeats)
	// snapshots go through the same queue, so every join has been broadcast
	assert.Equal(t, NumSeats, broadcaster.stateCount())
}

func TestTableAcknowledgesRejections(t *testing.T) {
	table, broadcaster, stop := startTable(t, Delays{}, 0)
	defer stop()

	submitJoins(t, table)
	submit(t, table, Intent{Kind: IntentBid, SessionID: "s3", Bid: Take()})
	waitFor(t, table, func(s *GameState) bool { return s.Phase == PhaseBidding })

	require.Eventually(t, func() bool { return len(broadcaster.rejectionsOf("s3")) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Rejection{Intent: IntentBid, Reason: "not your turn"}, broadcaster.rejectionsOf("s3")[0])
	assert.Equal(t, NumSeats, broadcaster.stateCount())
}

func TestTableRefusesInternalIntents(t *testing.T) {
	table, _, stop := startTable(t, Delays{}, 0)
	defer stop()

	err := table.Submit(context.Background(), Intent{Kind: IntentSettleTrick, ActionNum: 1})
	assert.ErrorIs(t, err, ErrUnknownIntent)
}

func TestTablePlaysRoundAndArchives(t *testing.T) {
	table, _, stop := startTable(t, Delays{TrickSettle: 1}, 0)
	defer stop()

	submitJoins(t, table)
	waitFor(t, table, func(s *GameState) bool { return s.Phase == PhaseBidding })
	submit(t, table, Intent{Kind: IntentBid, SessionID: "s1", Bid: Take()})

	for {
		state := waitFor(t, table, func(s *GameState) bool {
			return s.Phase != PhasePlaying || s.TrickWinnerID == ""
		})
		if state.Phase != PhasePlaying {
			break
		}
		require.Equal(t, 32, state.CardCount())
		player := state.playerByID(state.CurrentPlayerTurn)
		submit(t, table, Intent{Kind: IntentPlayCard, SessionID: player.ID, Card: player.Hand[0]})
		waitFor(t, table, func(s *GameState) bool { return s.ActionNum != state.ActionNum })
	}

	state := snapshot(t, table)
	assert.Equal(t, PhaseEnd, state.Phase)
	entries, err := table.Archive().List("T1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, state.ScoreHistory[0].Points, entries[0].Points)

	submit(t, table, Intent{Kind: IntentNewGame, SessionID: state.Players[0].ID})
	waitFor(t, table, func(s *GameState) bool { return s.Phase == PhaseWaiting })
	entries, err = table.Archive().List("T1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTableTurnTimeoutPasses(t *testing.T) {
	table, _, stop := startTable(t, Delays{TurnTimeout: 50}, 0)
	defer stop()

	submitJoins(t, table)
	state := waitFor(t, table, func(s *GameState) bool { return s.Phase == PhaseBiddingRound2 })
	assert.GreaterOrEqual(t, state.BiddingPasses, NumSeats)
	assert.Equal(t, PhaseBiddingRound2, state.Phase)
}

func TestTableStopped(t *testing.T) {
	table, _, stop := startTable(t, Delays{}, 0)
	stop()

	require.Eventually(t, func() bool {
		err := table.Submit(context.Background(), Intent{Kind: IntentJoin, SessionID: "s1", Name: "P1"})
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestTableResetsAfterCrash(t *testing.T) {
	table, broadcaster, stop := startTable(t, Delays{TrickSettle: 1}, 0)
	defer stop()
	require.NoError(t, crashtest.Set(crashtest.CrashPoint_SETTLE_TRICK))
	defer crashtest.Set(crashtest.CrashPoint_NO_CRASH)

	submitJoins(t, table)
	waitFor(t, table, func(s *GameState) bool { return s.Phase == PhaseBidding })
	submit(t, table, Intent{Kind: IntentBid, SessionID: "s1", Bid: Take()})
	for i := 0; i < NumSeats; i++ {
		state := waitFor(t, table, func(s *GameState) bool { return s.Phase == PhasePlaying })
		player := state.playerByID(state.CurrentPlayerTurn)
		submit(t, table, Intent{Kind: IntentPlayCard, SessionID: player.ID, Card: player.Hand[0]})
		waitFor(t, table, func(s *GameState) bool { return s.ActionNum != state.ActionNum })
	}

	state := waitFor(t, table, func(s *GameState) bool { return s.Phase == PhaseWaiting })
	assert.Empty(t, state.Players)
	assert.Equal(t, crashtest.CrashPoint_NO_CRASH, crashtest.Current())
	assert.Greater(t, broadcaster.stateCount(), NumSeats)
}
