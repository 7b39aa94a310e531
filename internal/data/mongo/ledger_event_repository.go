package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/ledgerevent"
)

const (
	// LedgerEventsCollectionName is the audit trail of committed ledger mutations.
	LedgerEventsCollectionName = "ledger_events"
)

// LedgerEventRepository implements ledgerevent.Repository on MongoDB.
type LedgerEventRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerEventRepository creates a new MongoDB audit log repository
func NewLedgerEventRepository(logger *slog.Logger, db *mongo.Database) *LedgerEventRepository {
	return &LedgerEventRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique event id index and the per-seller timeline index.
func (r *LedgerEventRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(LedgerEventsCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_event_id"),
		},
		{
			Keys:    bson.D{{Key: "seller_id", Value: 1}, {Key: "occurred_at", Value: -1}},
			Options: options.Index().SetName("seller_timeline"),
		},
	})
	if err != nil {
		r.logger.Error("Failed to create ledger event indexes", "error", err)
		return fmt.Errorf("failed to create ledger event indexes: %w", err)
	}

	return nil
}

// Append stores the event unless one with the same event id is already present.
// A redelivered outbox message therefore leaves exactly one audit document.
func (r *LedgerEventRepository) Append(ctx context.Context, event *ledgerevent.Event) error {
	collection := r.db.Collection(LedgerEventsCollectionName)

	filter := bson.M{"event_id": event.EventID}
	update := bson.M{"$setOnInsert": event}

	result, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// two pollers racing on the same event both try the insert
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Ledger event already appended",
				"event_id", event.EventID.String())
			return nil
		}
		r.logger.Error("Failed to append ledger event",
			"event_id", event.EventID.String(),
			"seller_id", event.SellerID.String(),
			"error", err)
		return fmt.Errorf("failed to append ledger event: %w", err)
	}

	if result.UpsertedCount == 0 {
		r.logger.Debug("Ledger event already appended",
			"event_id", event.EventID.String())
	}

	return nil
}

// ListBySeller returns a page of a seller's audit trail, newest first.
func (r *LedgerEventRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*ledgerevent.Event, error) {
	collection := r.db.Collection(LedgerEventsCollectionName)

	filter := bson.M{"seller_id": sellerID}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list ledger events",
			"seller_id", sellerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list ledger events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]*ledgerevent.Event, 0)
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode ledger events",
			"seller_id", sellerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger events: %w", err)
	}

	return events, nil
}

// CountBySeller counts the audit documents stored for a seller
func (r *LedgerEventRepository) CountBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	collection := r.db.Collection(LedgerEventsCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"seller_id": sellerID})
	if err != nil {
		r.logger.Error("Failed to count ledger events",
			"seller_id", sellerID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count ledger events: %w", err)
	}

	return count, nil
}

var _ ledgerevent.Repository = (*LedgerEventRepository)(nil)
