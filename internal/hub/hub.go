package hub

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message is the websocket frame exchanged with clients.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Websocket event names shared with browser and CLI clients.
const (
	EventEmitBet       = "emitBet"
	EventUpdateHistory = "updateHistory"
	EventBetResolved   = "betResolved"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers connect from arbitrary origins; the relay is origin-agnostic.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub is a single shared broadcast group: every connected client both emits
// finished-bet records and receives all other clients' records, its own
// included. There is no history replay for late joiners.
type Hub struct {
	conns      map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan Message
	logger     *zap.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns:      make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan Message, 16),
		logger:     logger,
	}
}

// Run serializes all roster mutations and fan-out writes. It returns when the
// context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for conn := range h.conns {
				conn.Close()
				delete(h.conns, conn)
			}
			return
		case conn := <-h.register:
			h.conns[conn] = true
			h.logger.Info("client connected", zap.Int("clients", len(h.conns)))
		case conn := <-h.unregister:
			if _, ok := h.conns[conn]; ok {
				delete(h.conns, conn)
				conn.Close()
			}
			h.logger.Info("client disconnected", zap.Int("clients", len(h.conns)))
		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.Error("marshal broadcast failed", zap.Error(err))
				continue
			}

			h.logger.Debug("broadcasting", zap.String("event", message.Event), zap.Int("clients", len(h.conns)))

			for conn := range h.conns {
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					h.logger.Warn("write failed, dropping client", zap.Error(err))
					delete(h.conns, conn)
					conn.Close()
				}
			}
		}
	}
}

// Broadcast fans a payload out to every connected client.
func (h *Hub) Broadcast(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.broadcast <- Message{Event: event, Data: data}
	return nil
}

// HandleConnection upgrades the request and pumps client messages. An
// incoming emitBet is rebroadcast to everyone as updateHistory, payload
// unchanged.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", zap.Error(err))
		return
	}

	h.register <- conn
	defer func() {
		h.unregister <- conn
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("read failed", zap.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			h.logger.Warn("unmarshal client message failed", zap.Error(err))
			continue
		}

		if message.Event != EventEmitBet {
			h.logger.Debug("ignoring client event", zap.String("event", message.Event))
			continue
		}

		h.broadcast <- Message{Event: EventUpdateHistory, Data: message.Data}
	}
}
