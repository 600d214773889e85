package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metroapp/fare-services/internal/faresvc/models"
)

type TransactionStore struct {
	db *pgxpool.Pool
}

func NewTransactionStore(db *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{db: db}
}

// ListByUser returns the transactions of every card the user owns,
// newest first.
func (s *TransactionStore) ListByUser(ctx context.Context, userID int64) ([]*models.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.card_id, t.ttype, t.amount, COALESCE(t.station, ''), t.created_at
		FROM transactions t
		JOIN cards c ON c.id = t.card_id
		WHERE c.user_id = $1
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions by user: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *TransactionStore) ListByCard(ctx context.Context, cardID int64, limit int) ([]*models.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, card_id, ttype, amount, COALESCE(station, ''), created_at
		FROM transactions
		WHERE card_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, cardID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions by card: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTransactions(rows rowScanner) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(
			&t.ID,
			&t.CardID,
			&t.TType,
			&t.Amount,
			&t.Station,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txs = append(txs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return txs, nil
}
