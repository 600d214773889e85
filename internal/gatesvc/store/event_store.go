package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/metroapp/fare-services/internal/comm"
)

const eventRetention = 24 * time.Hour

// EventStore keeps the recent tap feed per station. Documents carry an
// expires_at field and age out through a TTL index; the gate channel itself
// stays fire-and-forget.
type EventStore struct {
	coll *mongo.Collection
}

func NewEventStore(db *mongo.Database) *EventStore {
	return &EventStore{coll: db.Collection("fare_events")}
}

// EnsureTTLIndex creates the expiry index. ExpireAfterSeconds of 0 makes
// MongoDB honor the per-document expires_at value.
func (s *EventStore) EnsureTTLIndex(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"expires_at": 1},
		Options: options.Index().SetExpireAfterSeconds(0),
	}

	if _, err := s.coll.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("create ttl index: %w", err)
	}
	return nil
}

type eventDoc struct {
	EventID   string    `bson:"event_id,omitempty"`
	Station   string    `bson:"station"`
	CardTag   string    `bson:"card_tag"`
	Status    string    `bson:"status"`
	Reason    string    `bson:"reason,omitempty"`
	Balance   string    `bson:"balance"`
	At        time.Time `bson:"at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func (s *EventStore) Insert(ctx context.Context, ev comm.FareEvent) error {
	at := time.UnixMilli(ev.Timestamp)
	doc := eventDoc{
		EventID:   ev.EventID,
		Station:   ev.Station,
		CardTag:   ev.CardTag,
		Status:    ev.Status,
		Reason:    ev.Reason,
		Balance:   ev.Balance.String(),
		At:        at,
		ExpiresAt: at.Add(eventRetention),
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert fare event: %w", err)
	}
	return nil
}

func (s *EventStore) Recent(ctx context.Context, station string, limit int64) ([]comm.FareEvent, error) {
	opts := options.Find().
		SetSort(bson.M{"at": -1}).
		SetLimit(limit)

	cur, err := s.coll.Find(ctx, bson.M{"station": station}, opts)
	if err != nil {
		return nil, fmt.Errorf("find fare events: %w", err)
	}
	defer cur.Close(ctx)

	var events []comm.FareEvent
	for cur.Next(ctx) {
		var doc eventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode fare event: %w", err)
		}

		balance, err := decimal.NewFromString(doc.Balance)
		if err != nil {
			balance = decimal.Zero
		}
		events = append(events, comm.FareEvent{
			EventID:   doc.EventID,
			Station:   doc.Station,
			CardTag:   doc.CardTag,
			Status:    doc.Status,
			Reason:    doc.Reason,
			Balance:   balance,
			Timestamp: doc.At.UnixMilli(),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return events, nil
}
