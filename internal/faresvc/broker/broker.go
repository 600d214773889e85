package broker

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/metroapp/fare-services/internal/comm"
)

const GateTopic = "gate.service"

// Broker publishes verification outcomes for the gate gateway to consume.
// Delivery is best effort: a failed publish is logged, never retried, and
// never blocks the verify response.
type Broker struct {
	Conn *nats.Conn
}

func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{Conn: nc}
}

func (b *Broker) PublishFareEvent(station, tag string, out comm.VerifyResponse) {
	if b == nil || b.Conn == nil {
		return
	}

	ev := comm.FareEvent{
		EventID:   uuid.NewString(),
		Station:   station,
		CardTag:   tag,
		Status:    out.Status,
		Balance:   out.NewBalance,
		Timestamp: time.Now().UnixMilli(),
	}
	if out.Status == comm.DecisionDenied {
		ev.Reason = out.Message
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("unable to marshal FareEvent: %v", err)
		return
	}

	msg := &comm.WSMessage{
		Type:     "fare-event",
		Data:     data,
		SocketId: "",
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error marshaling WSMessage: %v", err)
		return
	}

	if err := b.Conn.Publish(GateTopic, payload); err != nil {
		log.Errorf("error publishing fare event for station %s: %v", station, err)
	}
}
