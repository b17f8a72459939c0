package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_eshop/cart-service/internal/repository"
	"github.com/fjod/go_eshop/pkg/events"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "outbox"

// Record is a checkout event waiting to be relayed to the bus. ID is the
// event id, which consumers use to drop duplicates.
type Record struct {
	ID          string     `bson:"_id"`
	AggregateID string     `bson:"aggregate_id"`
	EventType   string     `bson:"event_type"`
	Payload     []byte     `bson:"payload"`
	CreatedAt   time.Time  `bson:"created_at"`
	ProcessedAt *time.Time `bson:"processed_at,omitempty"`
}

type Store interface {
	GetUnprocessed(ctx context.Context, limit int) ([]*Record, error)
	MarkProcessed(ctx context.Context, id string) error
	PurgeProcessed(ctx context.Context, before time.Time) (int64, error)
}

type MongoStore struct {
	client *mongo.Client
	carts  *mongo.Collection
	outbox *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		client: db.Client(),
		carts:  db.Collection(repository.CartsCollection),
		outbox: db.Collection(Collection),
	}
}

// Checkout deletes the user's cart and records the event in one transaction.
// Either both happen or neither does.
func (s *MongoStore) Checkout(ctx context.Context, ev events.CheckoutEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal checkout event: %w", err)
	}
	rec := Record{
		ID:          ev.EventID.String(),
		AggregateID: ev.UserName,
		EventType:   events.CheckoutEventType,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		res, err := s.carts.DeleteOne(sc, bson.M{"user_name": ev.UserName})
		if err != nil {
			return nil, fmt.Errorf("delete cart: %w", err)
		}
		if res.DeletedCount == 0 {
			return nil, repository.ErrCartNotFound
		}
		if _, err := s.outbox.InsertOne(sc, rec); err != nil {
			return nil, fmt.Errorf("insert outbox record: %w", err)
		}
		return nil, nil
	})
	return err
}

func (s *MongoStore) GetUnprocessed(ctx context.Context, limit int) ([]*Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := s.outbox.Find(ctx, bson.M{"processed_at": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("find unprocessed: %w", err)
	}

	var records []*Record
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode outbox records: %w", err)
	}
	return records, nil
}

func (s *MongoStore) MarkProcessed(ctx context.Context, id string) error {
	_, err := s.outbox.UpdateByID(ctx, id, bson.M{"$set": bson.M{"processed_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func (s *MongoStore) PurgeProcessed(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.outbox.DeleteMany(ctx, bson.M{"processed_at": bson.M{"$lt": before}})
	if err != nil {
		return 0, fmt.Errorf("purge processed: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) CreateIndexes(ctx context.Context) error {
	_, err := s.outbox.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "processed_at", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create outbox index: %w", err)
	}
	return nil
}
