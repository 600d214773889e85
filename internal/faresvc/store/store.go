package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/metroapp/fare-services/internal/faresvc/models"
)

var (
	// ErrCardNotFound means the tag is not registered to the requesting user.
	ErrCardNotFound = errors.New("card not found")

	// ErrCardInactive means the card exists but has been deactivated.
	ErrCardInactive = errors.New("card inactive")

	// ErrInsufficientBalance means the balance does not cover the fare.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDuplicateTag means the requesting user already registered this tag.
	ErrDuplicateTag = errors.New("card already registered")

	// ErrTagOwnedByOther means another user already registered this tag.
	ErrTagOwnedByOther = errors.New("card registered by another user")
)

// Ledger is the atomic balance contract the fare service depends on.
// DebitIfSufficient and Credit each commit the balance change together with
// the transaction append as one indivisible unit; no intermediate state is
// observable to a concurrent caller. Neither retries on its own.
//
// On ErrCardInactive and ErrInsufficientBalance the returned balance is the
// current, unchanged balance. On ErrCardNotFound it is zero.
type Ledger interface {
	GetByTag(ctx context.Context, userID int64, tag string) (*models.Card, error)
	DebitIfSufficient(ctx context.Context, userID int64, tag string, amount decimal.Decimal, station string) (decimal.Decimal, error)
	Credit(ctx context.Context, userID int64, tag string, amount decimal.Decimal) (decimal.Decimal, error)
}

// CardRepository adds the card lifecycle operations around the ledger.
type CardRepository interface {
	Ledger
	Register(ctx context.Context, card *models.Card) (*models.Card, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Card, error)
	UpdateAlias(ctx context.Context, userID int64, tag, alias string) error
	Delete(ctx context.Context, userID int64, tag string) error
}

type TransactionRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]*models.Transaction, error)
	ListByCard(ctx context.Context, cardID int64, limit int) ([]*models.Transaction, error)
}
