package nats

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"belote.com/server/belote"
	"belote.com/server/game"
	"belote.com/server/logging"
)

var natsLogger = log.With().Str("logger_name", "nats::table").Logger()

const submitTimeout = 5 * time.Second

/**
Subjects of a table:
belote.<table>.intent             player intents, JSON envelope carrying the session id
belote.<table>.presence           session connected/disconnected notifications from the edge
belote.<table>.driver             test driver requests (scripted decks), request/reply
belote.<table>.state              full snapshot after every accepted mutation
belote.<table>.session.<session>  acknowledgments for one session
*/

// IntentMessage is an intent published on the intent subject.
type IntentMessage struct {
	SessionID string             `json:"sessionId"`
	Type      game.IntentKind    `json:"t"`
	Payload   game.IntentPayload `json:"p"`
}

const (
	PresenceConnected    = "connected"
	PresenceDisconnected = "disconnected"
)

type PresenceMessage struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}

const DriverSetupDeck = "setupDeck"

type DriverMessage struct {
	Type  string   `json:"type"`
	Cards []string `json:"cards"`
}

type DriverReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NatsTable connects a game.Table to NATS. It is also the table's Broadcaster.
type NatsTable struct {
	tableCode string
	natsConn  *natsgo.Conn
	table     *game.Table

	stateSubject string

	intentSubscription   *natsgo.Subscription
	presenceSubscription *natsgo.Subscription
	driverSubscription   *natsgo.Subscription
}

func NewNatsTable(nc *natsgo.Conn, tableCode string) *NatsTable {
	return &NatsTable{
		tableCode:    tableCode,
		natsConn:     nc,
		stateSubject: GetStateSubject(tableCode),
	}
}

// Attach subscribes to the inbound subjects of the table.
func (n *NatsTable) Attach(table *game.Table) error {
	n.table = table
	var e error
	intentSubject := GetIntentSubject(n.tableCode)
	n.intentSubscription, e = n.natsConn.Subscribe(intentSubject, n.player2Table)
	if e != nil {
		natsLogger.Error().Msg(fmt.Sprintf("Failed to subscribe to %s", intentSubject))
		return e
	}
	presenceSubject := GetPresenceSubject(n.tableCode)
	n.presenceSubscription, e = n.natsConn.Subscribe(presenceSubject, n.presence)
	if e != nil {
		natsLogger.Error().Msg(fmt.Sprintf("Failed to subscribe to %s", presenceSubject))
		return e
	}
	driverSubject := GetDriverSubject(n.tableCode)
	n.driverSubscription, e = n.natsConn.Subscribe(driverSubject, n.driver2Table)
	if e != nil {
		natsLogger.Error().Msg(fmt.Sprintf("Failed to subscribe to %s", driverSubject))
		return e
	}
	return nil
}

func (n *NatsTable) Cleanup() {
	for _, sub := range []*natsgo.Subscription{n.intentSubscription, n.presenceSubscription, n.driverSubscription} {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}

// messages sent from players to the table
func (n *NatsTable) player2Table(msg *natsgo.Msg) {
	var message IntentMessage
	err := jsoniter.Unmarshal(msg.Data, &message)
	if err != nil {
		natsLogger.Warn().Str(logging.TableKey, n.tableCode).Msgf("Malformed intent: %s", err)
		return
	}
	if message.SessionID == "" {
		natsLogger.Warn().Str(logging.TableKey, n.tableCode).Msg("Intent without a session id")
		return
	}
	intent, err := message.Payload.ToIntent(message.Type, message.SessionID)
	if err != nil {
		natsLogger.Info().
			Str(logging.TableKey, n.tableCode).
			Str(logging.SessionKey, message.SessionID).
			Msgf("Invalid intent: %s", err)
		n.SendRejection(message.SessionID, game.Rejection{Intent: message.Type, Reason: game.ErrMalformedIntent.Error()})
		return
	}
	n.submit(intent)
}

func (n *NatsTable) presence(msg *natsgo.Msg) {
	var message PresenceMessage
	err := jsoniter.Unmarshal(msg.Data, &message)
	if err != nil || message.SessionID == "" {
		natsLogger.Warn().Str(logging.TableKey, n.tableCode).Msgf("Malformed presence message: %s", string(msg.Data))
		return
	}
	switch message.Status {
	case PresenceDisconnected:
		n.submit(game.Intent{Kind: game.IntentDisconnect, SessionID: message.SessionID})
	case PresenceConnected:
		natsLogger.Debug().Str(logging.TableKey, n.tableCode).Str(logging.SessionKey, message.SessionID).Msg("Session connected")
	}
}

func (n *NatsTable) submit(intent game.Intent) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := n.table.Submit(ctx, intent); err != nil {
		natsLogger.Error().Err(err).
			Str(logging.TableKey, n.tableCode).
			Str(logging.IntentKey, string(intent.Kind)).
			Msg("Could not queue intent")
	}
}

// messages sent from the test driver to the table
func (n *NatsTable) driver2Table(msg *natsgo.Msg) {
	reply := DriverReply{OK: true}
	err := n.handleDriverMessage(msg.Data)
	if err != nil {
		reply = DriverReply{OK: false, Error: err.Error()}
	}
	if msg.Reply == "" {
		return
	}
	data, _ := jsoniter.Marshal(reply)
	msg.Respond(data)
}

func (n *NatsTable) handleDriverMessage(data []byte) error {
	var message DriverMessage
	err := jsoniter.Unmarshal(data, &message)
	if err != nil {
		return err
	}
	if message.Type != DriverSetupDeck {
		return fmt.Errorf("Unknown driver message [%s]", message.Type)
	}
	cards := make([]belote.Card, 0, len(message.Cards))
	for _, s := range message.Cards {
		card, err := belote.NewCard(s)
		if err != nil {
			return err
		}
		cards = append(cards, card)
	}
	natsLogger.Info().Str(logging.TableKey, n.tableCode).Msg("Driver->Table: Setup deck")
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	return n.table.SetupNextDeck(ctx, cards)
}

func (n *NatsTable) BroadcastState(state *game.GameState) {
	data, err := jsoniter.Marshal(game.StateMessage(state))
	if err != nil {
		natsLogger.Error().Err(err).Str(logging.TableKey, n.tableCode).Msg("Could not marshal state")
		return
	}
	n.natsConn.Publish(n.stateSubject, data)
}

func (n *NatsTable) SendRejection(sessionID string, rejection game.Rejection) {
	data, err := jsoniter.Marshal(game.RejectionMessage(rejection))
	if err != nil {
		return
	}
	n.natsConn.Publish(GetSessionSubject(n.tableCode, sessionID), data)
}
