package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/metroapp/fare-services/internal/comm"
	"github.com/metroapp/fare-services/internal/faresvc/store"
)

var ErrInvalidAmount = errors.New("amount must be positive")

const (
	ReasonCardNotFound        = "card not found"
	ReasonCardInactive        = "card inactive"
	ReasonInsufficientBalance = "insufficient balance"
)

// FareService runs the verify-and-debit protocol against the ledger. The
// fare cost is fixed server-side; the client never supplies it.
type FareService struct {
	ledger store.Ledger
	fare   decimal.Decimal
}

func NewFareService(ledger store.Ledger, fare decimal.Decimal) *FareService {
	return &FareService{ledger: ledger, fare: fare}
}

func (s *FareService) FareCost() decimal.Decimal {
	return s.fare
}

// Verify debits one fare from the card identified by tag, scoped to the
// requesting user. Denials come back as a denied outcome with the reason and
// the unchanged balance; only unexpected failures surface as an error.
// Verification is never retried here: a failed tap is re-tapped by the rider.
func (s *FareService) Verify(ctx context.Context, userID int64, tag, station string) (comm.VerifyResponse, error) {
	tag = NormalizeTag(tag)
	if tag == "" {
		return denied(ReasonCardNotFound, decimal.Zero), nil
	}

	newBalance, err := s.ledger.DebitIfSufficient(ctx, userID, tag, s.fare, station)
	switch {
	case err == nil:
		return comm.VerifyResponse{
			Status:     comm.DecisionOK,
			Message:    "fare approved",
			NewBalance: newBalance,
		}, nil
	case errors.Is(err, store.ErrCardNotFound):
		return denied(ReasonCardNotFound, decimal.Zero), nil
	case errors.Is(err, store.ErrCardInactive):
		return denied(ReasonCardInactive, newBalance), nil
	case errors.Is(err, store.ErrInsufficientBalance):
		return denied(ReasonInsufficientBalance, newBalance), nil
	default:
		return comm.VerifyResponse{}, fmt.Errorf("verify card %s: %w", tag, err)
	}
}

// TopUp credits the card. It shares the ledger atomicity contract with
// Verify but has no sufficiency check.
func (s *FareService) TopUp(ctx context.Context, userID int64, tag string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return s.ledger.Credit(ctx, userID, NormalizeTag(tag), amount)
}

// NormalizeTag maps a hardware tag uid to its canonical form: uppercase hex.
func NormalizeTag(tag string) string {
	return strings.ToUpper(strings.TrimSpace(tag))
}

func denied(reason string, balance decimal.Decimal) comm.VerifyResponse {
	return comm.VerifyResponse{
		Status:     comm.DecisionDenied,
		Message:    reason,
		NewBalance: balance,
	}
}
