package bet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mepflip/internal/hub"
	"mepflip/internal/model"
)

// Socket is the client side of the relay's websocket feed. It emits local
// bets and receives history and resolution broadcasts.
type Socket struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
}

// DialSocket connects to the relay's /ws endpoint. serverURL may use an
// http(s) or ws(s) scheme.
func DialSocket(ctx context.Context, serverURL string, logger *zap.Logger) (*Socket, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", parsed.String(), err)
	}

	return &Socket{conn: conn, logger: logger}, nil
}

// EmitBet sends a finished-bet record for fan-out to all connected clients.
func (s *Socket) EmitBet(record model.HistoryRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return s.write(hub.Message{Event: hub.EventEmitBet, Data: data})
}

// Listen reads broadcast frames until the context is cancelled or the
// connection drops. Unknown events are skipped.
func (s *Socket) Listen(ctx context.Context, onHistory func(model.HistoryRecord), onResolved func(model.Resolution)) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	for {
		var msg hub.Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read frame: %w", err)
		}

		switch msg.Event {
		case hub.EventUpdateHistory:
			var record model.HistoryRecord
			if err := json.Unmarshal(msg.Data, &record); err != nil {
				s.logger.Warn("bad history frame", zap.Error(err))
				continue
			}
			if onHistory != nil {
				onHistory(record)
			}
		case hub.EventBetResolved:
			var res model.Resolution
			if err := json.Unmarshal(msg.Data, &res); err != nil {
				s.logger.Warn("bad resolution frame", zap.Error(err))
				continue
			}
			if onResolved != nil {
				onResolved(res)
			}
		default:
			s.logger.Debug("unknown event", zap.String("event", msg.Event))
		}
	}
}

// Close shuts the connection down.
func (s *Socket) Close() error {
	return s.conn.Close()
}

func (s *Socket) write(msg hub.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}
