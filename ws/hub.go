package ws

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"belote.com/server/game"
	"belote.com/server/logging"
)

var hubLogger = log.With().Str("logger_name", "ws::hub").Logger()

// Hub tracks the open sockets of a table by session id and implements
// game.Broadcaster for them.
type Hub struct {
	tableCode string

	lock  sync.RWMutex
	conns map[string]*Conn
}

func NewHub(tableCode string) *Hub {
	return &Hub{
		tableCode: tableCode,
		conns:     make(map[string]*Conn),
	}
}

func (h *Hub) register(c *Conn) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.conns[c.sessionID] = c
}

func (h *Hub) unregister(c *Conn) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if existing, ok := h.conns[c.sessionID]; ok && existing == c {
		delete(h.conns, c.sessionID)
		close(c.send)
	}
}

func (h *Hub) Count() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.conns)
}

func (h *Hub) BroadcastState(state *game.GameState) {
	data, err := jsoniter.Marshal(game.StateMessage(state))
	if err != nil {
		hubLogger.Error().Err(err).Str(logging.TableKey, h.tableCode).Msg("Could not marshal state")
		return
	}
	h.lock.RLock()
	defer h.lock.RUnlock()
	for _, c := range h.conns {
		c.enqueue(data)
	}
}

func (h *Hub) SendRejection(sessionID string, rejection game.Rejection) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	if c, ok := h.conns[sessionID]; ok {
		c.sendMessage(game.RejectionMessage(rejection))
	}
}
