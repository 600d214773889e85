package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/metroapp/fare-services/internal/comm"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// controllerServer plays the gate controller: it accepts one websocket
// session and forwards every text frame it receives.
func controllerServer(t *testing.T) (*httptest.Server, chan string) {
	t.Helper()

	frames := make(chan string, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- string(raw)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, frames
}

func TestSignalDeliversFrame(t *testing.T) {
	srv, frames := controllerServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	opened := make(chan struct{}, 1)
	s := NewSignaler(url, func(state ConnState) {
		if state == StateOpen {
			select {
			case opened <- struct{}{}:
			default:
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("channel never opened")
	}

	s.Signal(comm.GateFrame{Decision: comm.DecisionOK, Balance: decimal.NewFromInt(30)})

	select {
	case frame := <-frames:
		if frame != "STATUS:ok;SALDO:30" {
			t.Fatalf("unexpected frame: %s", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("controller never received the frame")
	}
}

func TestSignalDropsWhenClosed(t *testing.T) {
	s := NewSignaler("ws://127.0.0.1:1/ws", nil)

	if s.State() != StateClosed {
		t.Fatalf("expected closed state, got %s", s.State())
	}

	// must not panic or block
	s.Signal(comm.GateFrame{Decision: comm.DecisionDenied, Balance: decimal.Zero})
}

func TestRunStopsOnCancel(t *testing.T) {
	srv, _ := controllerServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	s := NewSignaler(url, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != StateOpen {
		if time.Now().After(deadline) {
			t.Fatal("channel never opened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if s.State() != StateClosed {
		t.Fatalf("expected closed state after cancel, got %s", s.State())
	}
}
