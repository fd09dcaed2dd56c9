package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tilbudsradar/backend/internal/domain"
)

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// priceDocument is one product's latest lookup result
type priceDocument struct {
	ProductName string    `bson:"_id"`
	MarketPrice *int      `bson:"market_price"`
	LookedUpAt  string    `bson:"looked_up_at"`
	RunID       string    `bson:"run_id"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// MongoStore upserts one document per product name
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", domain.ErrStoreUnavailable, err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrStoreUnavailable, err)
	}

	s := NewMongoStoreFromDatabase(client.Database(cfg.Database), cfg.Collection)
	s.client = client
	return s, nil
}

// NewMongoStoreFromDatabase creates a store on an existing database handle
func NewMongoStoreFromDatabase(db *mongo.Database, collectionName string) *MongoStore {
	if collectionName == "" {
		collectionName = "market_prices"
	}
	return &MongoStore{collection: db.Collection(collectionName)}
}

// Save upserts every result of the run
func (s *MongoStore) Save(ctx context.Context, run *domain.PriceRun) error {
	docs := toDocuments(run)
	if len(docs) == 0 {
		return nil
	}

	writeModels := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		writeModels = append(writeModels, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ProductName}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	opts := options.BulkWrite().SetOrdered(false)
	if _, err := s.collection.BulkWrite(ctx, writeModels, opts); err != nil {
		return fmt.Errorf("%w: bulk upsert: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Latest returns the results written by the most recent run
func (s *MongoStore) Latest(ctx context.Context) (domain.PriceTable, error) {
	var newest priceDocument
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if err := s.collection.FindOne(ctx, bson.D{}, opts).Decode(&newest); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	cursor, err := s.collection.Find(ctx, bson.M{"run_id": newest.RunID})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var docs []priceDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return toTable(docs), nil
}

// Get returns the latest known result for one product name
func (s *MongoStore) Get(ctx context.Context, productName string) (*domain.LookupResult, error) {
	var doc priceDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": productName}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return &domain.LookupResult{MarketPrice: doc.MarketPrice, LookedUpAt: doc.LookedUpAt}, nil
}

// Close disconnects the client when the store owns it
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func toDocuments(run *domain.PriceRun) []priceDocument {
	if run == nil {
		return nil
	}
	updated := run.FinishedAt
	if updated.IsZero() {
		updated = run.StartedAt
	}

	docs := make([]priceDocument, 0, len(run.Results))
	for name, result := range run.Results {
		docs = append(docs, priceDocument{
			ProductName: name,
			MarketPrice: result.MarketPrice,
			LookedUpAt:  result.LookedUpAt,
			RunID:       run.ID,
			UpdatedAt:   updated,
		})
	}
	return docs
}

func toTable(docs []priceDocument) domain.PriceTable {
	table := make(domain.PriceTable, len(docs))
	for _, doc := range docs {
		table[doc.ProductName] = domain.LookupResult{MarketPrice: doc.MarketPrice, LookedUpAt: doc.LookedUpAt}
	}
	return table
}
