package comm

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "fare-event"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// FareEvent is published on NATS for every completed verification attempt
// so the gate gateway and dashboards can follow station activity live.
type FareEvent struct {
	EventID   string          `json:"event_id,omitempty"`
	Station   string          `json:"station"`
	CardTag   string          `json:"card_tag"`
	Status    string          `json:"status"` // ok | denied
	Reason    string          `json:"reason,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	Timestamp int64           `json:"timestamp"`
}

type VerifyRequest struct {
	CardTag string `json:"cardTag"`
	Station string `json:"station,omitempty"`
}

// VerifyResponse is the flat verify body consumed by the reader daemon.
// Status is "ok" or "denied"; Message carries the denial reason.
type VerifyResponse struct {
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	NewBalance decimal.Decimal `json:"newBalance"`
}

type TopUpRequest struct {
	CardTag string          `json:"cardTag"`
	Amount  decimal.Decimal `json:"amount"`
}

type TopUpResponse struct {
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	NewBalance decimal.Decimal `json:"newBalance"`
}
