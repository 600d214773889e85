package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/metroapp/fare-services/internal/faresvc/models"
)

// MemoryStore is a concurrency-safe in-memory card ledger. It backs unit
// tests and mirrors the transactional semantics of CardStore: debit checks
// and the transaction append happen under one lock.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	cards  map[string]*models.Card // key: tag
	txs    map[int64][]*models.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cards: make(map[string]*models.Card),
		txs:   make(map[int64][]*models.Transaction),
	}
}

func (m *MemoryStore) GetByTag(_ context.Context, userID int64, tag string) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, ok := m.cards[tag]
	if !ok || card.UserID != userID {
		return nil, ErrCardNotFound
	}
	copied := *card
	return &copied, nil
}

func (m *MemoryStore) DebitIfSufficient(_ context.Context, userID int64, tag string, amount decimal.Decimal, station string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, ok := m.cards[tag]
	if !ok || card.UserID != userID {
		return decimal.Zero, ErrCardNotFound
	}
	if !card.Active {
		return card.Balance, ErrCardInactive
	}
	if card.Balance.LessThan(amount) {
		return card.Balance, ErrInsufficientBalance
	}

	card.Balance = card.Balance.Sub(amount)
	card.UpdatedAt = time.Now()
	m.appendLocked(card.ID, models.TransactionFare, amount.Neg(), station)

	return card.Balance, nil
}

func (m *MemoryStore) Credit(_ context.Context, userID int64, tag string, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, ok := m.cards[tag]
	if !ok || card.UserID != userID {
		return decimal.Zero, ErrCardNotFound
	}

	card.Balance = card.Balance.Add(amount)
	card.UpdatedAt = time.Now()
	m.appendLocked(card.ID, models.TransactionTopUp, amount, "")

	return card.Balance, nil
}

func (m *MemoryStore) Register(_ context.Context, card *models.Card) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.cards[card.Tag]; ok {
		if existing.UserID == card.UserID {
			return nil, ErrDuplicateTag
		}
		return nil, ErrTagOwnedByOther
	}

	m.nextID++
	now := time.Now()
	created := &models.Card{
		ID:        m.nextID,
		UserID:    card.UserID,
		Tag:       card.Tag,
		Alias:     card.Alias,
		Balance:   card.Balance,
		Active:    card.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.cards[created.Tag] = created

	if created.Balance.IsPositive() {
		m.appendLocked(created.ID, models.TransactionTopUp, created.Balance, "")
	}

	copied := *created
	return &copied, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID int64) ([]*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cards []*models.Card
	for _, card := range m.cards {
		if card.UserID == userID {
			copied := *card
			cards = append(cards, &copied)
		}
	}
	return cards, nil
}

func (m *MemoryStore) UpdateAlias(_ context.Context, userID int64, tag, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, ok := m.cards[tag]
	if !ok || card.UserID != userID {
		return ErrCardNotFound
	}
	card.Alias = alias
	card.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, ok := m.cards[tag]
	if !ok || card.UserID != userID {
		return ErrCardNotFound
	}
	delete(m.txs, card.ID)
	delete(m.cards, tag)
	return nil
}

// ListTransactions returns the transactions recorded for a card, newest last.
func (m *MemoryStore) ListTransactions(cardID int64) []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	txs := m.txs[cardID]
	copied := make([]*models.Transaction, len(txs))
	copy(copied, txs)
	return copied
}

// SetActive flips the active flag directly, for tests.
func (m *MemoryStore) SetActive(tag string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if card, ok := m.cards[tag]; ok {
		card.Active = active
	}
}

func (m *MemoryStore) appendLocked(cardID int64, ttype string, amount decimal.Decimal, station string) {
	m.nextID++
	m.txs[cardID] = append(m.txs[cardID], &models.Transaction{
		ID:        m.nextID,
		CardID:    cardID,
		TType:     ttype,
		Amount:    amount,
		Station:   station,
		CreatedAt: time.Now(),
	})
}
