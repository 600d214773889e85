package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/metroapp/fare-services/internal/faresvc/models"
)

type CardStore struct {
	db *pgxpool.Pool
}

func NewCardStore(db *pgxpool.Pool) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) GetByTag(ctx context.Context, userID int64, tag string) (*models.Card, error) {
	query := `
		SELECT id, user_id, tag, alias, balance, active, created_at, updated_at
		FROM cards
		WHERE user_id = $1 AND tag = $2
		LIMIT 1
	`

	var card models.Card
	err := s.db.QueryRow(ctx, query, userID, tag).Scan(
		&card.ID,
		&card.UserID,
		&card.Tag,
		&card.Alias,
		&card.Balance,
		&card.Active,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card by tag: %w", err)
	}

	return &card, nil
}

// DebitIfSufficient locks the card row, checks the active flag and balance,
// and commits the decrement together with the fare transaction. Two
// concurrent debits serialize on the row lock, so both can never observe the
// same sufficient balance.
func (s *CardStore) DebitIfSufficient(ctx context.Context, userID int64, tag string, amount decimal.Decimal, station string) (decimal.Decimal, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var cardID int64
	var balance decimal.Decimal
	var active bool
	err = tx.QueryRow(ctx, `
		SELECT id, balance, active
		FROM cards
		WHERE user_id = $1 AND tag = $2
		FOR UPDATE
	`, userID, tag).Scan(&cardID, &balance, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrCardNotFound
		}
		return decimal.Zero, fmt.Errorf("lock card row: %w", err)
	}

	if !active {
		return balance, ErrCardInactive
	}
	if balance.LessThan(amount) {
		return balance, ErrInsufficientBalance
	}

	newBalance := balance.Sub(amount)

	if _, err := tx.Exec(ctx, `
		UPDATE cards
		SET balance = $1, updated_at = now()
		WHERE id = $2
	`, newBalance, cardID); err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (card_id, ttype, amount, station)
		VALUES ($1, $2, $3, $4)
	`, cardID, models.TransactionFare, amount.Neg(), station); err != nil {
		return decimal.Zero, fmt.Errorf("insert fare transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("commit tx: %w", err)
	}

	return newBalance, nil
}

// Credit adds amount to the card balance and appends a topup transaction.
// Unconditional apart from the card existing.
func (s *CardStore) Credit(ctx context.Context, userID int64, tag string, amount decimal.Decimal) (decimal.Decimal, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var cardID int64
	var newBalance decimal.Decimal
	err = tx.QueryRow(ctx, `
		UPDATE cards
		SET balance = balance + $1, updated_at = now()
		WHERE user_id = $2 AND tag = $3
		RETURNING id, balance
	`, amount, userID, tag).Scan(&cardID, &newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrCardNotFound
		}
		return decimal.Zero, fmt.Errorf("credit balance: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (card_id, ttype, amount)
		VALUES ($1, $2, $3)
	`, cardID, models.TransactionTopUp, amount); err != nil {
		return decimal.Zero, fmt.Errorf("insert topup transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("commit tx: %w", err)
	}

	return newBalance, nil
}

// Register creates the card for its owner. A tag already registered by the
// same user yields ErrDuplicateTag, by any other user ErrTagOwnedByOther.
// An opening balance is recorded as a topup transaction so the balance always
// equals the sum of the card's transactions.
func (s *CardStore) Register(ctx context.Context, card *models.Card) (*models.Card, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var ownerID int64
	err = tx.QueryRow(ctx, `
		SELECT user_id FROM cards WHERE tag = $1 LIMIT 1
	`, card.Tag).Scan(&ownerID)
	if err == nil {
		if ownerID == card.UserID {
			return nil, ErrDuplicateTag
		}
		return nil, ErrTagOwnedByOther
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check tag owner: %w", err)
	}

	created := &models.Card{}
	err = tx.QueryRow(ctx, `
		INSERT INTO cards (user_id, tag, alias, balance, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, tag, alias, balance, active, created_at, updated_at
	`, card.UserID, card.Tag, card.Alias, card.Balance, card.Active).Scan(
		&created.ID,
		&created.UserID,
		&created.Tag,
		&created.Alias,
		&created.Balance,
		&created.Active,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}

	if created.Balance.IsPositive() {
		if _, err := tx.Exec(ctx, `
			INSERT INTO transactions (card_id, ttype, amount)
			VALUES ($1, $2, $3)
		`, created.ID, models.TransactionTopUp, created.Balance); err != nil {
			return nil, fmt.Errorf("insert opening transaction: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return created, nil
}

func (s *CardStore) ListByUser(ctx context.Context, userID int64) ([]*models.Card, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, tag, alias, balance, active, created_at, updated_at
		FROM cards
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		var card models.Card
		err := rows.Scan(
			&card.ID,
			&card.UserID,
			&card.Tag,
			&card.Alias,
			&card.Balance,
			&card.Active,
			&card.CreatedAt,
			&card.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		cards = append(cards, &card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cards, nil
}

func (s *CardStore) UpdateAlias(ctx context.Context, userID int64, tag, alias string) error {
	ct, err := s.db.Exec(ctx, `
		UPDATE cards
		SET alias = $1, updated_at = now()
		WHERE user_id = $2 AND tag = $3
	`, alias, userID, tag)
	if err != nil {
		return fmt.Errorf("update alias: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrCardNotFound
	}
	return nil
}

// Delete removes the card and cascades to its transaction history.
func (s *CardStore) Delete(ctx context.Context, userID int64, tag string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var cardID int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM cards WHERE user_id = $1 AND tag = $2 FOR UPDATE
	`, userID, tag).Scan(&cardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCardNotFound
		}
		return fmt.Errorf("lock card row: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE card_id = $1`, cardID); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cards WHERE id = $1`, cardID); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
