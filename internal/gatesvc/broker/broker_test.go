package broker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"

	"github.com/metroapp/fare-services/internal/comm"
	"github.com/metroapp/fare-services/internal/gatesvc/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialStation stands in for a gate controller: it opens a websocket to a test
// server and registers the server-side connection under the station id.
func dialStation(t *testing.T, registry *ws.Ws, station string) *websocket.Conn {
	t.Helper()

	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		registry.StoreStation(station, conn)
		close(registered)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("station never registered")
	}
	return client
}

func fareEventMsg(t *testing.T, ev comm.FareEvent) *nats.Msg {
	t.Helper()

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	payload, err := json.Marshal(comm.WSMessage{Type: "fare-event", Data: data})
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	return &nats.Msg{Data: payload}
}

func TestHandleMessagePushesFrame(t *testing.T) {
	registry := ws.NewWs()
	client := dialStation(t, registry, "baquedano")

	b := NewBroker(nil, registry.GetStation, nil)
	b.HandleMessage(fareEventMsg(t, comm.FareEvent{
		Station:   "baquedano",
		CardTag:   "04A1B2C3",
		Status:    comm.DecisionOK,
		Balance:   decimal.NewFromInt(30),
		Timestamp: time.Now().UnixMilli(),
	}))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, raw, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("expected a gate frame, got error: %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Fatalf("expected text frame, got type %d", msgType)
	}
	if string(raw) != "STATUS:ok;SALDO:30" {
		t.Fatalf("unexpected frame: %s", raw)
	}
}

func TestHandleMessageDeniedFrame(t *testing.T) {
	registry := ws.NewWs()
	client := dialStation(t, registry, "tobalaba")

	b := NewBroker(nil, registry.GetStation, nil)
	b.HandleMessage(fareEventMsg(t, comm.FareEvent{
		Station: "tobalaba",
		CardTag: "04FFEE11",
		Status:  comm.DecisionDenied,
		Reason:  "insufficient balance",
		Balance: decimal.NewFromInt(10),
	}))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("expected a gate frame, got error: %v", err)
	}
	if string(raw) != "STATUS:denied;SALDO:10" {
		t.Fatalf("unexpected frame: %s", raw)
	}
}

func TestHandleMessageNoSessionDrops(t *testing.T) {
	registry := ws.NewWs()

	b := NewBroker(nil, registry.GetStation, nil)

	// no controller connected for the station; must not panic or block
	b.HandleMessage(fareEventMsg(t, comm.FareEvent{
		Station: "los-heroes",
		Status:  comm.DecisionOK,
		Balance: decimal.NewFromInt(5),
	}))
}

func TestHandleMessageMalformedPayload(t *testing.T) {
	registry := ws.NewWs()
	b := NewBroker(nil, registry.GetStation, nil)

	b.HandleMessage(&nats.Msg{Data: []byte("not json")})
	b.HandleMessage(&nats.Msg{Data: []byte(`{"type":"fare-event","data":"oops"}`)})
	b.HandleMessage(&nats.Msg{Data: []byte(`{"type":"unknown","data":{}}`)})
}
