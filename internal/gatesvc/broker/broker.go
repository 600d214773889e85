package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/metroapp/fare-services/internal/comm"
	"github.com/metroapp/fare-services/internal/gatesvc/store"
)

type Broker struct {
	Conn       *nats.Conn
	GetStation func(string) (*websocket.Conn, bool)
	Events     *store.EventStore
}

func NewBroker(conn *nats.Conn, fncGetStation func(string) (*websocket.Conn, bool), events *store.EventStore) *Broker {
	return &Broker{
		Conn:       conn,
		GetStation: fncGetStation,
		Events:     events,
	}
}

// consume fare events from the fare service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.HandleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// HandleMessage receives one message from the fare service and pushes the
// gate status frame to the station's controller. Exactly one frame per
// completed verification; no session means the frame is dropped.
func (b *Broker) HandleMessage(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(msgNats.Data, &message); err != nil {
		log.Errorf("invalid WSMessage: %v", err)
		return
	}

	switch message.Type {
	case "fare-event":
		var ev comm.FareEvent
		if err := json.Unmarshal(message.Data, &ev); err != nil {
			log.Errorf("invalid FareEvent: %v", err)
			return
		}
		b.dispatch(ev)
	default:
		log.Warnf("unknown message type: %s", message.Type)
	}
}

func (b *Broker) dispatch(ev comm.FareEvent) {
	if b.Events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.Events.Insert(ctx, ev); err != nil {
			log.Errorf("failed to record fare event for station %s: %v", ev.Station, err)
		}
	}

	conn, ok := b.GetStation(ev.Station)
	if !ok {
		log.Warnf("no gate session for station %s, dropping signal", ev.Station)
		return
	}

	frame := comm.GateFrame{Decision: ev.Status, Balance: ev.Balance}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame.Encode())); err != nil {
		log.Errorf("failed to push gate frame to station %s: %v", ev.Station, err)
	}
}
