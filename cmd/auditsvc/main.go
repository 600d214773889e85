package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	config "github.com/metroapp/fare-services/configs"
	"github.com/metroapp/fare-services/internal/faresvc/db"
	"github.com/metroapp/fare-services/internal/faresvc/notify"
)

const SERVICE_NAME = "audit"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

// drift is a card whose stored balance disagrees with its transaction log.
// Every card starts with an opening top-up transaction, so the sum of the
// log always equals the balance when the ledger is healthy.
type drift struct {
	CardID   int
	Tag      string
	Balance  decimal.Decimal
	Expected decimal.Decimal
}

func main() {
	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	notifier := notify.NewFromEnv()

	ctx := context.Background()
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		drifts, err := sweepLedger(ctx, dbpool)
		if err != nil {
			log.Printf("sweepLedger error: %v", err)
			continue
		}

		for _, d := range drifts {
			log.Errorf("ledger drift on card %d (%s): balance %s, transactions sum %s",
				d.CardID, d.Tag, d.Balance.String(), d.Expected.String())
			notifier.SendNotification(fmt.Sprintf(
				"⚠️ *LEDGER DRIFT*\n\n💳 *Card:* %s\n📊 *Balance:* %s\n🧾 *Transactions sum:* %s",
				d.Tag, d.Balance.String(), d.Expected.String(),
			))
		}
		if len(drifts) == 0 {
			log.Debugf("ledger sweep clean")
		}
	}
}

// sweepLedger recomputes each card's balance from its transaction log inside
// one transaction. SKIP LOCKED keeps the sweep out of the way of live taps
// and top-ups; a card being charged right now is simply checked next round.
func sweepLedger(ctx context.Context, pool *pgxpool.Pool) ([]drift, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
        SELECT id, tag, balance
        FROM cards
        FOR UPDATE SKIP LOCKED
    `)
	if err != nil {
		return nil, fmt.Errorf("select cards: %w", err)
	}
	defer rows.Close()

	type cardRow struct {
		ID      int
		Tag     string
		Balance decimal.Decimal
	}
	var cards []cardRow
	for rows.Next() {
		var c cardRow
		if err := rows.Scan(&c.ID, &c.Tag, &c.Balance); err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	var drifts []drift
	for _, c := range cards {
		var expected decimal.Decimal
		if err := tx.QueryRow(ctx, `
            SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE card_id = $1
        `, c.ID).Scan(&expected); err != nil {
			return nil, fmt.Errorf("sum transactions for card %d: %w", c.ID, err)
		}

		if !c.Balance.Equal(expected) {
			drifts = append(drifts, drift{
				CardID:   c.ID,
				Tag:      c.Tag,
				Balance:  c.Balance,
				Expected: expected,
			})
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return drifts, nil
}
