package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/metroapp/fare-services/internal/faresvc/models"
	"github.com/metroapp/fare-services/internal/faresvc/store"
)

var ErrInvalidTag = errors.New("card tag must be hex")

type CardService struct {
	cards store.CardRepository
	txs   store.TransactionRepository
}

func NewCardService(cards store.CardRepository, txs store.TransactionRepository) *CardService {
	return &CardService{cards: cards, txs: txs}
}

func (s *CardService) Register(ctx context.Context, userID int64, tag, alias string, balance decimal.Decimal) (*models.Card, error) {
	tag = NormalizeTag(tag)
	if !validTag(tag) {
		return nil, ErrInvalidTag
	}
	if balance.IsNegative() {
		return nil, ErrInvalidAmount
	}

	return s.cards.Register(ctx, &models.Card{
		UserID:  userID,
		Tag:     tag,
		Alias:   alias,
		Balance: balance,
		Active:  true,
	})
}

func (s *CardService) List(ctx context.Context, userID int64) ([]*models.Card, error) {
	return s.cards.ListByUser(ctx, userID)
}

func (s *CardService) UpdateAlias(ctx context.Context, userID int64, tag, alias string) error {
	return s.cards.UpdateAlias(ctx, userID, NormalizeTag(tag), alias)
}

func (s *CardService) Delete(ctx context.Context, userID int64, tag string) error {
	return s.cards.Delete(ctx, userID, NormalizeTag(tag))
}

func (s *CardService) Transactions(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	return s.txs.ListByUser(ctx, userID)
}

// validTag accepts the uppercase hex uid produced by the reader hardware.
// Length varies by tag type (4, 7 or 10 byte uids), so only the alphabet and
// an even length are checked.
func validTag(tag string) bool {
	if tag == "" || len(tag)%2 != 0 {
		return false
	}
	for _, c := range tag {
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
