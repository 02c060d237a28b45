package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mepflip/internal/model"
)

func startHub(t *testing.T) (*Hub, string, context.CancelFunc) {
	t.Helper()

	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(h.HandleConnection))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	return h, url, cancel
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func TestEmitBetFansOutToAllClients(t *testing.T) {
	_, url, cancel := startHub(t)
	defer cancel()

	sender := dial(t, url)
	receiver := dial(t, url)

	// Registration goes through the run loop; give both conns time to land
	// in the roster before broadcasting.
	time.Sleep(50 * time.Millisecond)

	record := model.HistoryRecord{
		Player:   "alice",
		Amount:   "1000",
		Result:   model.ResultWin,
		WinCount: 2,
		Time:     time.Now().UnixMilli(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	frame, err := json.Marshal(Message{Event: EventEmitBet, Data: data})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}

	if err := sender.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, conn := range []*websocket.Conn{sender, receiver} {
		msg := readMessage(t, conn)
		if msg.Event != EventUpdateHistory {
			t.Fatalf("expected updateHistory, got %s", msg.Event)
		}
		var got model.HistoryRecord
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal record: %v", err)
		}
		if got != record {
			t.Fatalf("record mismatch: %+v != %+v", got, record)
		}
	}
}

func TestBroadcastBetResolved(t *testing.T) {
	h, url, cancel := startHub(t)
	defer cancel()

	client := dial(t, url)
	time.Sleep(50 * time.Millisecond)

	res := model.Resolution{
		Wallet: "0x1111111111111111111111111111111111111111",
		Amount: 1000000000000,
		Choice: model.SideHeads,
		Result: model.OutcomeWon,
	}
	if err := h.Broadcast(EventBetResolved, res); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	msg := readMessage(t, client)
	if msg.Event != EventBetResolved {
		t.Fatalf("expected betResolved, got %s", msg.Event)
	}
	var got model.Resolution
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("unmarshal resolution: %v", err)
	}
	if got.Wallet != res.Wallet || got.Result != res.Result {
		t.Fatalf("resolution mismatch: %+v", got)
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	_, url, cancel := startHub(t)
	defer cancel()

	client := dial(t, url)
	time.Sleep(50 * time.Millisecond)

	frame, _ := json.Marshal(Message{Event: "ping", Data: json.RawMessage(`{}`)})
	if err := client.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := client.ReadMessage(); err == nil {
		t.Fatalf("expected no broadcast for unknown event")
	}
}
