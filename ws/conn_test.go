package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"belote.com/server/belote"
	"belote.com/server/game"
)

type recordingTable struct {
	lock    sync.Mutex
	intents []game.Intent
	added   chan game.Intent
}

func newRecordingTable() *recordingTable {
	return &recordingTable{added: make(chan game.Intent, 16)}
}

func (r *recordingTable) Submit(ctx context.Context, in game.Intent) error {
	r.lock.Lock()
	r.intents = append(r.intents, in)
	r.lock.Unlock()
	r.added <- in
	return nil
}

func (r *recordingTable) next(t *testing.T) game.Intent {
	select {
	case in := <-r.added:
		return in
	case <-time.After(2 * time.Second):
		t.Fatal("no intent submitted")
	}
	return game.Intent{}
}

type received struct {
	T     string              `json:"t"`
	ReqID string              `json:"reqId"`
	P     jsoniter.RawMessage `json:"p"`
}

func dial(t *testing.T, hub *Hub, table Submitter) (*websocket.Conn, func()) {
	server := httptest.NewServer(NewHandler(hub, table))
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	socket, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return socket, func() {
		socket.Close()
		server.Close()
	}
}

func readMessage(t *testing.T, socket *websocket.Conn) received {
	require.NoError(t, socket.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	_, data, err := socket.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, jsoniter.Unmarshal(data, &msg))
	return msg
}

func TestSocketSubmitsIntents(t *testing.T) {
	hub := NewHub("T1")
	table := newRecordingTable()
	socket, closeAll := dial(t, hub, table)
	defer closeAll()

	hello := readMessage(t, socket)
	require.Equal(t, MessageHello, hello.T)
	var payload helloPayload
	require.NoError(t, jsoniter.Unmarshal(hello.P, &payload))
	require.NotEmpty(t, payload.SessionID)

	require.NoError(t, socket.WriteMessage(websocket.TextMessage, []byte(`{"t":"joinGame","reqId":"1","p":{"name":"Alice"}}`)))
	in := table.next(t)
	assert.Equal(t, game.IntentJoin, in.Kind)
	assert.Equal(t, "Alice", in.Name)
	assert.Equal(t, payload.SessionID, in.SessionID)

	require.NoError(t, socket.WriteMessage(websocket.TextMessage, []byte(`{"t":"playCard","reqId":"2","p":{"card":{"suit":"Pique","rank":"As"}}}`)))
	in = table.next(t)
	assert.Equal(t, game.IntentPlayCard, in.Kind)
	assert.Equal(t, belote.MustCard("As"), in.Card)
}

func TestSocketRejectsMalformedIntent(t *testing.T) {
	hub := NewHub("T1")
	table := newRecordingTable()
	socket, closeAll := dial(t, hub, table)
	defer closeAll()
	readMessage(t, socket)

	require.NoError(t, socket.WriteMessage(websocket.TextMessage, []byte(`{"t":"playerBid","reqId":"9","p":{"bid":"double"}}`)))
	msg := readMessage(t, socket)
	assert.Equal(t, game.MessageRejected, msg.T)
	assert.Equal(t, "9", msg.ReqID)

	require.NoError(t, socket.WriteMessage(websocket.TextMessage, []byte(`{"t":"ping","reqId":"10"}`)))
	msg = readMessage(t, socket)
	assert.Equal(t, MessagePong, msg.T)
	assert.Equal(t, "10", msg.ReqID)
}

func TestSocketCloseDisconnects(t *testing.T) {
	hub := NewHub("T1")
	table := newRecordingTable()
	socket, closeAll := dial(t, hub, table)
	defer closeAll()
	readMessage(t, socket)

	socket.Close()
	in := table.next(t)
	assert.Equal(t, game.IntentDisconnect, in.Kind)
}

func TestHubBroadcastsState(t *testing.T) {
	hub := NewHub("T1")
	table := newRecordingTable()
	socket, closeAll := dial(t, hub, table)
	defer closeAll()
	readMessage(t, socket)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)
	hub.BroadcastState(&game.GameState{TableCode: "T1", Phase: game.PhaseWaiting})

	msg := readMessage(t, socket)
	assert.Equal(t, game.MessageGameStateUpdate, msg.T)
	var state game.GameState
	require.NoError(t, jsoniter.Unmarshal(msg.P, &state))
	assert.Equal(t, game.PhaseWaiting, state.Phase)
}

func TestSocketDropsRetriedIntent(t *testing.T) {
	hub := NewHub("T1")
	table := newRecordingTable()
	socket, closeAll := dial(t, hub, table)
	defer closeAll()
	readMessage(t, socket)

	join := []byte(`{"t":"joinGame","reqId":"1","p":{"name":"Alice"}}`)
	require.NoError(t, socket.WriteMessage(websocket.TextMessage, join))
	require.NoError(t, socket.WriteMessage(websocket.TextMessage, join))
	require.NoError(t, socket.WriteMessage(websocket.TextMessage, []byte(`{"t":"nextHand","reqId":"2"}`)))

	assert.Equal(t, game.IntentJoin, table.next(t).Kind)
	assert.Equal(t, game.IntentNextHand, table.next(t).Kind)
}
