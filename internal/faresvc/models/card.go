package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Card represents one registered NFC fare card. Tag is the uppercase hex
// encoding of the physical tag uid and is unique across all users.
type Card struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Tag       string          `json:"tag"`
	Alias     string          `json:"alias"`
	Balance   decimal.Decimal `json:"balance"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
