package gate

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/metroapp/fare-services/internal/comm"
)

type ConnState int

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Signaler keeps a websocket session open to the station's gate controller
// and pushes one status frame per completed verification. Frames written
// while the channel is down are dropped, never queued; the controller only
// ever sees fresh decisions.
type Signaler struct {
	url     string
	onState func(ConnState)

	mu    sync.Mutex
	conn  *websocket.Conn
	state ConnState
}

func NewSignaler(url string, onState func(ConnState)) *Signaler {
	return &Signaler{url: url, onState: onState, state: StateClosed}
}

func (s *Signaler) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Signaler) setState(state ConnState, conn *websocket.Conn) {
	s.mu.Lock()
	s.state = state
	s.conn = conn
	s.mu.Unlock()

	if s.onState != nil {
		s.onState(state)
	}
}

// Run dials the controller and redials with backoff whenever the session
// drops. It returns when ctx is cancelled.
func (s *Signaler) Run(ctx context.Context) {
	backoff := initialBackoff
	for {
		s.setState(StateConnecting, nil)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateClosed, nil)
				return
			}
			log.Warnf("gate controller dial failed, retrying in %s: %v", backoff, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				s.setState(StateClosed, nil)
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = initialBackoff
		s.setState(StateOpen, conn)
		log.Infof("gate controller channel open: %s", s.url)

		readDone := make(chan struct{})
		go func() {
			defer close(readDone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		select {
		case <-ctx.Done():
			conn.Close()
			<-readDone
			s.setState(StateClosed, nil)
			return
		case <-readDone:
			conn.Close()
			s.setState(StateClosed, nil)
			log.Warnf("gate controller channel lost, reconnecting")
		}
	}
}

// Signal pushes one frame to the controller. Best effort: a closed channel
// or a write error drops the frame.
func (s *Signaler) Signal(frame comm.GateFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen || s.conn == nil {
		log.Warnf("gate channel not open, dropping frame %q", frame.Encode())
		return
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(frame.Encode())); err != nil {
		log.Errorf("failed to write gate frame: %v", err)
	}
}
