package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	caches "belote.com/server/caching"
	"belote.com/server/game"
	"belote.com/server/logging"
)

const (
	sendQueueSize  = 64
	writeWait      = 10 * time.Second
	pongWait       = 120 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	submitTimeout  = 5 * time.Second

	// per connection intent rate
	intentsPerSecond = 10
	intentBurst      = 20
)

const (
	MessagePing  = "ping"
	MessagePong  = "pong"
	MessageHello = "hello"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// InMsg is the envelope of every client message.
type InMsg struct {
	T     string              `json:"t"`
	ReqID string              `json:"reqId,omitempty"`
	P     jsoniter.RawMessage `json:"p,omitempty"`
}

type helloPayload struct {
	SessionID string `json:"sessionId"`
}

// Submitter is the part of game.Table the socket needs.
type Submitter interface {
	Submit(ctx context.Context, in game.Intent) error
}

type Conn struct {
	sessionID string
	ws        *websocket.Conn
	send      chan []byte
	limiter   *rate.Limiter
}

func (c *Conn) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		hubLogger.Warn().Str(logging.SessionKey, c.sessionID).Msg("Send queue full, dropping message")
	}
}

func (c *Conn) sendMessage(out game.OutboundMessage) {
	data, err := jsoniter.Marshal(out)
	if err != nil {
		return
	}
	c.enqueue(data)
}

// Handler upgrades requests to sockets bound to the table.
type Handler struct {
	hub      *Hub
	table    Submitter
	requests *caches.RequestCache
}

func NewHandler(hub *Hub, table Submitter) *Handler {
	requests, err := caches.NewRequestCache(caches.DefaultRequestCacheSize)
	if err != nil {
		hubLogger.Error().Err(err).Msg("Retried intents will not be filtered")
	}
	return &Handler{hub: hub, table: table, requests: requests}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hubLogger.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}
	c := &Conn{
		sessionID: uuid.New().String(),
		ws:        socket,
		send:      make(chan []byte, sendQueueSize),
		limiter:   rate.NewLimiter(rate.Limit(intentsPerSecond), intentBurst),
	}
	h.hub.register(c)
	hubLogger.Info().Str(logging.TableKey, h.hub.tableCode).Str(logging.SessionKey, c.sessionID).Msg("Socket opened")
	c.sendMessage(game.OutboundMessage{Type: MessageHello, Payload: helloPayload{SessionID: c.sessionID}})

	go h.writePump(c)
	h.readPump(c)
}

func (h *Handler) readPump(c *Conn) {
	defer func() {
		h.hub.unregister(c)
		_ = c.ws.Close()
		if h.requests != nil {
			h.requests.Forget(c.sessionID)
		}
		h.submit(game.Intent{Kind: game.IntentDisconnect, SessionID: c.sessionID})
		hubLogger.Info().Str(logging.TableKey, h.hub.tableCode).Str(logging.SessionKey, c.sessionID).Msg("Socket closed")
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				hubLogger.Warn().Err(err).Str(logging.SessionKey, c.sessionID).Msg("Socket read error")
			}
			return
		}
		h.handleMessage(c, data)
	}
}

func (h *Handler) handleMessage(c *Conn, data []byte) {
	var in InMsg
	if err := jsoniter.Unmarshal(data, &in); err != nil {
		c.sendMessage(game.OutboundMessage{Type: game.MessageRejected, Payload: game.Rejection{Reason: game.ErrMalformedIntent.Error()}})
		return
	}
	if in.T == MessagePing {
		c.sendMessage(game.OutboundMessage{Type: MessagePong, ReqID: in.ReqID})
		return
	}

	kind := game.IntentKind(in.T)
	reject := func(reason string) {
		c.sendMessage(game.OutboundMessage{
			Type:    game.MessageRejected,
			ReqID:   in.ReqID,
			Payload: game.Rejection{Intent: kind, Reason: reason},
		})
	}
	if !c.limiter.Allow() {
		reject("rate limited")
		return
	}
	if h.requests != nil && h.requests.Seen(c.sessionID, in.ReqID) {
		hubLogger.Debug().Str(logging.SessionKey, c.sessionID).Str(logging.IntentKey, in.T).Msg("Dropping retried intent")
		return
	}
	var payload game.IntentPayload
	if len(in.P) > 0 {
		if err := jsoniter.Unmarshal(in.P, &payload); err != nil {
			reject(game.ErrMalformedIntent.Error())
			return
		}
	}
	intent, err := payload.ToIntent(kind, c.sessionID)
	if err != nil {
		reject(game.ErrMalformedIntent.Error())
		return
	}
	h.submit(intent)
}

func (h *Handler) submit(intent game.Intent) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := h.table.Submit(ctx, intent); err != nil {
		hubLogger.Error().Err(err).
			Str(logging.SessionKey, intent.SessionID).
			Str(logging.IntentKey, string(intent.Kind)).
			Msg("Could not queue intent")
	}
}

func (h *Handler) writePump(c *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
