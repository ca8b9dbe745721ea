// Package mirror keeps an optional MongoDB copy of persisted reviews.
package mirror

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection receives mirrored reviews.
const Collection = "reviews"

// Document is the mirrored form of one review.
type Document struct {
	ReviewID       string    `bson:"_id"`
	Bank           string    `bson:"bank"`
	AppID          string    `bson:"app_id"`
	ReviewText     string    `bson:"review_text"`
	Rating         int       `bson:"rating"`
	ReviewDate     time.Time `bson:"review_date"`
	Sentiment      string    `bson:"sentiment"`
	SentimentScore float64   `bson:"sentiment_score"`
	Themes         []string  `bson:"themes"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

// IndexKey is one field of an index.
type IndexKey struct {
	Field string
	Order int // 1 ascending, -1 descending
}

// Index describes a secondary index on the mirror collection.
type Index struct {
	Name string
	Keys []IndexKey
}

// Indexes are the secondary indexes kept on the mirror collection.
var Indexes = []Index{
	{Name: "bank_date", Keys: []IndexKey{{Field: "bank", Order: 1}, {Field: "review_date", Order: -1}}},
	{Name: "sentiment", Keys: []IndexKey{{Field: "sentiment", Order: 1}}},
	{Name: "themes", Keys: []IndexKey{{Field: "themes", Order: 1}}},
}

// Writer upserts mirrored documents.
type Writer interface {
	EnsureIndexes(ctx context.Context) error
	Upsert(ctx context.Context, docs []Document) (int, error)
	Close(ctx context.Context) error
}

// MongoWriter implements Writer using the MongoDB driver.
type MongoWriter struct {
	client   *mongo.Client
	database string
}

// NewMongoWriter connects to uri and pings the deployment.
func NewMongoWriter(ctx context.Context, uri, database string) (*MongoWriter, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}
	return &MongoWriter{client: client, database: database}, nil
}

// EnsureIndexes creates the secondary indexes. Existing indexes with the
// same definition are left alone by the server.
func (w *MongoWriter) EnsureIndexes(ctx context.Context) error {
	models := make([]mongo.IndexModel, len(Indexes))
	for i, idx := range Indexes {
		keys := bson.D{}
		for _, k := range idx.Keys {
			keys = append(keys, bson.E{Key: k.Field, Value: k.Order})
		}
		models[i] = mongo.IndexModel{Keys: keys, Options: options.Index().SetName(idx.Name)}
	}
	if _, err := w.client.Database(w.database).Collection(Collection).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("creating indexes on %s: %w", Collection, err)
	}
	return nil
}

// Upsert replaces each document by review id in one unordered bulk write.
func (w *MongoWriter) Upsert(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, len(docs))
	now := time.Now().UTC()
	for i, d := range docs {
		d.UpdatedAt = now
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: d.ReviewID}}).
			SetReplacement(d).
			SetUpsert(true)
	}
	res, err := w.client.Database(w.database).Collection(Collection).
		BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("mirroring reviews: %w", err)
	}
	return int(res.UpsertedCount + res.MatchedCount), nil
}

// Close disconnects the client.
func (w *MongoWriter) Close(ctx context.Context) error {
	return w.client.Disconnect(ctx)
}
