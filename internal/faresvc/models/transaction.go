package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTopUp = "topup"
	TransactionFare  = "fare"
)

// Transaction is an append-only ledger entry for a card. Amount is signed:
// positive for top-ups, negative for fare debits.
type Transaction struct {
	ID        int64           `json:"id"`
	CardID    int64           `json:"card_id"`
	TType     string          `json:"ttype"`
	Amount    decimal.Decimal `json:"amount"`
	Station   string          `json:"station,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
