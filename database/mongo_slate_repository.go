package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"perfect-slate/logging"
	"perfect-slate/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSlateRepository stores submitted slates, one per user and contest
type MongoSlateRepository struct {
	collection *mongo.Collection
	sequences  *Sequences
	logger     *logging.Logger
}

func NewMongoSlateRepository(db *MongoDB) *MongoSlateRepository {
	collection := db.GetCollection("slates")
	logger := logging.WithPrefix("mongo_slate_repo")

	ctx, cancel := WithShortTimeout(context.Background())
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "contest_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "contest_id", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Errorf("Failed to create indexes on slates collection: %v", err)
	}

	return &MongoSlateRepository{
		collection: collection,
		sequences:  NewSequences(db),
		logger:     logger,
	}
}

// Insert stores a new slate. A second slate for the same user and contest fails with ErrDuplicateKey.
func (r *MongoSlateRepository) Insert(ctx context.Context, s *models.Slate) error {
	id, err := r.sequences.Next(ctx, "slates")
	if err != nil {
		return err
	}

	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	s.ID = id
	if s.Status == "" {
		s.Status = models.SlateStatusPending
	}
	if _, err := r.collection.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("slate for user %s in contest %d: %w", s.UserID, s.ContestID, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert slate: %w", err)
	}
	return nil
}

// FindByUserAndContest returns nil, nil when the user has not submitted
func (r *MongoSlateRepository) FindByUserAndContest(ctx context.Context, userID string, contestID int64) (*models.Slate, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	var s models.Slate
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID, "contest_id": contestID}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find slate for user %s: %w", userID, err)
	}
	return &s, nil
}

// FindByContest returns every slate entered in a contest
func (r *MongoSlateRepository) FindByContest(ctx context.Context, contestID int64) ([]models.Slate, error) {
	return r.find(ctx, bson.M{"contest_id": contestID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// FindByUser returns a user's most recent slates
func (r *MongoSlateRepository) FindByUser(ctx context.Context, userID string, limit int64) ([]models.Slate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}}).SetLimit(limit)
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *MongoSlateRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Slate, error) {
	ctx, cancel := WithMediumTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slates: %w", err)
	}
	defer cursor.Close(ctx)

	var slates []models.Slate
	if err := cursor.All(ctx, &slates); err != nil {
		return nil, fmt.Errorf("failed to decode slates: %w", err)
	}
	return slates, nil
}

// UpdateGrades stores graded slates in one bulk write
func (r *MongoSlateRepository) UpdateGrades(ctx context.Context, slates []models.Slate) error {
	if len(slates) == 0 {
		return nil
	}

	ctx, cancel := WithLongTimeout(ctx)
	defer cancel()

	now := time.Now()
	operations := make([]mongo.WriteModel, 0, len(slates))
	for _, s := range slates {
		operations = append(operations, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": s.ID}).
			SetUpdate(bson.M{"$set": bson.M{
				"correct_count": s.CorrectCount,
				"status":        s.Status,
				"payout_cents":  s.PayoutCents,
				"graded_at":     now,
			}}))
	}

	result, err := r.collection.BulkWrite(ctx, operations, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk slate grading failed: %w", err)
	}
	r.logger.Infof("Graded %d slates: %d modified", len(slates), result.ModifiedCount)
	return nil
}
