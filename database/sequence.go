package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sequences hands out increasing int64 IDs per collection from a counters collection
type Sequences struct {
	collection *mongo.Collection
}

func NewSequences(db *MongoDB) *Sequences {
	return &Sequences{collection: db.GetCollection("counters")}
}

// Next returns the next ID for name, starting at 1
func (s *Sequences) Next(ctx context.Context, name string) (int64, error) {
	return s.Reserve(ctx, name, 1)
}

// Reserve allocates n consecutive IDs and returns the first one
func (s *Sequences) Reserve(ctx context.Context, name string, n int) (int64, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Value int64 `bson:"value"`
	}
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(n)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve %d ids for %s: %w", n, name, err)
	}
	return counter.Value - int64(n) + 1, nil
}
