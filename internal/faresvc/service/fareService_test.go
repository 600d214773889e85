package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/metroapp/fare-services/internal/comm"
	"github.com/metroapp/fare-services/internal/faresvc/models"
	"github.com/metroapp/fare-services/internal/faresvc/store"
)

const testUserID = int64(7)

func newTestService(t *testing.T, fare int64) (*FareService, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	return NewFareService(mem, decimal.NewFromInt(fare)), mem
}

func registerCard(t *testing.T, mem *store.MemoryStore, tag string, balance int64) *models.Card {
	t.Helper()
	card, err := mem.Register(context.Background(), &models.Card{
		UserID:  testUserID,
		Tag:     tag,
		Alias:   "commute",
		Balance: decimal.NewFromInt(balance),
		Active:  true,
	})
	if err != nil {
		t.Fatalf("register card: %v", err)
	}
	return card
}

func TestVerifyApprovedDebitsFare(t *testing.T) {
	svc, mem := newTestService(t, 20)
	card := registerCard(t, mem, "04A1B2C3", 50)

	out, err := svc.Verify(context.Background(), testUserID, "04a1b2c3", "baquedano")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Status != comm.DecisionOK {
		t.Fatalf("expected ok, got %s (%s)", out.Status, out.Message)
	}
	if !out.NewBalance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected new balance 30, got %s", out.NewBalance)
	}

	txs := mem.ListTransactions(card.ID)
	if len(txs) != 2 { // opening topup + fare debit
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	last := txs[len(txs)-1]
	if last.TType != models.TransactionFare {
		t.Fatalf("expected fare transaction, got %s", last.TType)
	}
	if !last.Amount.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("expected amount -20, got %s", last.Amount)
	}
	if last.Station != "baquedano" {
		t.Fatalf("expected station recorded, got %q", last.Station)
	}
}

func TestVerifyInsufficientBalance(t *testing.T) {
	svc, mem := newTestService(t, 20)
	card := registerCard(t, mem, "04A1B2C3", 10)

	out, err := svc.Verify(context.Background(), testUserID, "04A1B2C3", "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Status != comm.DecisionDenied || out.Message != ReasonInsufficientBalance {
		t.Fatalf("expected insufficient balance denial, got %+v", out)
	}
	if !out.NewBalance.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected balance unchanged at 10, got %s", out.NewBalance)
	}

	if txs := mem.ListTransactions(card.ID); len(txs) != 1 {
		t.Fatalf("expected no fare transaction appended, got %d entries", len(txs))
	}
}

func TestVerifyInactiveCard(t *testing.T) {
	svc, mem := newTestService(t, 20)
	registerCard(t, mem, "04A1B2C3", 50)
	mem.SetActive("04A1B2C3", false)

	out, err := svc.Verify(context.Background(), testUserID, "04A1B2C3", "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Status != comm.DecisionDenied || out.Message != ReasonCardInactive {
		t.Fatalf("expected inactive denial, got %+v", out)
	}
	if !out.NewBalance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected balance unchanged at 50, got %s", out.NewBalance)
	}
}

func TestVerifyUnknownTag(t *testing.T) {
	svc, _ := newTestService(t, 20)

	out, err := svc.Verify(context.Background(), testUserID, "DEADBEEF", "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Status != comm.DecisionDenied || out.Message != ReasonCardNotFound {
		t.Fatalf("expected not found denial, got %+v", out)
	}
	if !out.NewBalance.IsZero() {
		t.Fatalf("expected zero balance for unknown tag, got %s", out.NewBalance)
	}
}

func TestVerifyOtherUsersCardNotVisible(t *testing.T) {
	svc, mem := newTestService(t, 20)
	if _, err := mem.Register(context.Background(), &models.Card{
		UserID:  99,
		Tag:     "04A1B2C3",
		Balance: decimal.NewFromInt(100),
		Active:  true,
	}); err != nil {
		t.Fatalf("register card: %v", err)
	}

	out, err := svc.Verify(context.Background(), testUserID, "04A1B2C3", "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Status != comm.DecisionDenied || out.Message != ReasonCardNotFound {
		t.Fatalf("cross-tenant lookup must not resolve, got %+v", out)
	}
}

// Two concurrent verifications against exactly one fare's worth of balance
// must produce one approval and one insufficient-balance denial.
func TestVerifyConcurrentSingleFare(t *testing.T) {
	svc, mem := newTestService(t, 20)
	registerCard(t, mem, "04A1B2C3", 20)

	results := make([]comm.VerifyResponse, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.Verify(context.Background(), testUserID, "04A1B2C3", "")
			if err != nil {
				t.Errorf("verify %d: %v", i, err)
				return
			}
			results[i] = out
		}(i)
	}
	wg.Wait()

	approved, denied := 0, 0
	for _, out := range results {
		switch out.Status {
		case comm.DecisionOK:
			approved++
		case comm.DecisionDenied:
			denied++
			if out.Message != ReasonInsufficientBalance {
				t.Fatalf("expected insufficient balance denial, got %q", out.Message)
			}
		}
	}
	if approved != 1 || denied != 1 {
		t.Fatalf("expected exactly one approval and one denial, got %d/%d", approved, denied)
	}

	card, err := mem.GetByTag(context.Background(), testUserID, "04A1B2C3")
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if !card.Balance.IsZero() {
		t.Fatalf("expected balance 0 after single debit, got %s", card.Balance)
	}
}

// Balance always equals the sum of the card's transaction amounts,
// regardless of the topup/debit interleaving.
func TestLedgerConsistency(t *testing.T) {
	svc, mem := newTestService(t, 20)
	card := registerCard(t, mem, "04A1B2C3", 35)

	ctx := context.Background()
	if _, err := svc.TopUp(ctx, testUserID, "04A1B2C3", decimal.NewFromInt(45)); err != nil {
		t.Fatalf("topup: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Verify(ctx, testUserID, "04A1B2C3", ""); err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
	}

	sum := decimal.Zero
	for _, tx := range mem.ListTransactions(card.ID) {
		sum = sum.Add(tx.Amount)
	}

	current, err := mem.GetByTag(ctx, testUserID, "04A1B2C3")
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if !current.Balance.Equal(sum) {
		t.Fatalf("balance %s diverged from transaction sum %s", current.Balance, sum)
	}
	if !current.Balance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected balance 20 after 35+45-3*20, got %s", current.Balance)
	}
}

func TestTopUpRejectsNonPositiveAmount(t *testing.T) {
	svc, mem := newTestService(t, 20)
	registerCard(t, mem, "04A1B2C3", 10)

	for _, amount := range []int64{0, -5} {
		if _, err := svc.TopUp(context.Background(), testUserID, "04A1B2C3", decimal.NewFromInt(amount)); err != ErrInvalidAmount {
			t.Fatalf("expected ErrInvalidAmount for %d, got %v", amount, err)
		}
	}
}
