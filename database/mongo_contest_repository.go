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

type MongoContestRepository struct {
	collection *mongo.Collection
	sequences  *Sequences
	logger     *logging.Logger
}

func NewMongoContestRepository(db *MongoDB) *MongoContestRepository {
	collection := db.GetCollection("contests")
	logger := logging.WithPrefix("mongo_contest_repo")

	ctx, cancel := WithShortTimeout(context.Background())
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sport", Value: 1}, {Key: "status", Value: 1}, {Key: "week_number", Value: -1}}},
		{Keys: bson.D{{Key: "sport", Value: 1}, {Key: "pending_rollover_cents", Value: 1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Errorf("Failed to create indexes on contests collection: %v", err)
	}

	return &MongoContestRepository{
		collection: collection,
		sequences:  NewSequences(db),
		logger:     logger,
	}
}

// Create assigns an ID and inserts the contest
func (r *MongoContestRepository) Create(ctx context.Context, contest *models.Contest) error {
	id, err := r.sequences.Next(ctx, "contests")
	if err != nil {
		return err
	}

	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	now := time.Now()
	contest.ID = id
	contest.CreatedAt = now
	contest.UpdatedAt = now
	if _, err := r.collection.InsertOne(ctx, contest); err != nil {
		return fmt.Errorf("failed to create contest: %w", err)
	}
	return nil
}

func (r *MongoContestRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Contest, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	var contest models.Contest
	err := r.collection.FindOne(ctx, filter, opts...).Decode(&contest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &contest, nil
}

// FindByID returns nil, nil when the contest does not exist
func (r *MongoContestRepository) FindByID(ctx context.Context, id int64) (*models.Contest, error) {
	contest, err := r.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to find contest %d: %w", id, err)
	}
	return contest, nil
}

// FindCurrent returns the player-facing contest of a sport: the highest week among open, locked and in-progress contests
func (r *MongoContestRepository) FindCurrent(ctx context.Context, sport models.Sport) (*models.Contest, error) {
	filter := bson.M{
		"sport":  sport,
		"status": bson.M{"$in": models.ActiveContestStatuses},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "week_number", Value: -1}, {Key: "created_at", Value: -1}})

	contest, err := r.findOne(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find current %s contest: %w", sport, err)
	}
	return contest, nil
}

// FindOpenForIngestion returns the newest open contest whose lock time has not passed
func (r *MongoContestRepository) FindOpenForIngestion(ctx context.Context, sport models.Sport, now time.Time) (*models.Contest, error) {
	filter := bson.M{
		"sport":     sport,
		"status":    models.ContestStatusOpen,
		"lock_time": bson.M{"$gte": now},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	contest, err := r.findOne(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find open %s contest: %w", sport, err)
	}
	return contest, nil
}

// FindByStatus lists contests of a sport in the given statuses, oldest week first
func (r *MongoContestRepository) FindByStatus(ctx context.Context, sport models.Sport, statuses ...models.ContestStatus) ([]models.Contest, error) {
	ctx, cancel := WithMediumTimeout(ctx)
	defer cancel()

	filter := bson.M{"sport": sport, "status": bson.M{"$in": statuses}}
	opts := options.Find().SetSort(bson.D{{Key: "week_number", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s contests: %w", sport, err)
	}
	defer cursor.Close(ctx)

	var contests []models.Contest
	if err := cursor.All(ctx, &contests); err != nil {
		return nil, fmt.Errorf("failed to decode contests: %w", err)
	}
	return contests, nil
}

func (r *MongoContestRepository) updateByID(ctx context.Context, id int64, update bson.M) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrConditionNotMet
	}
	return nil
}

// UpdateStatus moves a contest to a new lifecycle status
func (r *MongoContestRepository) UpdateStatus(ctx context.Context, id int64, status models.ContestStatus) error {
	err := r.updateByID(ctx, id, bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to set contest %d status to %s: %w", id, status, err)
	}
	return nil
}

// RecordEntry bumps the entry and token counters after a slate is accepted
func (r *MongoContestRepository) RecordEntry(ctx context.Context, id int64, tokensUsed int) error {
	update := bson.M{
		"$inc": bson.M{"total_entries": 1, "tokens_used_count": tokensUsed},
		"$set": bson.M{"updated_at": time.Now()},
	}
	if err := r.updateByID(ctx, id, update); err != nil {
		return fmt.Errorf("failed to record entry on contest %d: %w", id, err)
	}
	return nil
}

// Finalize completes a contest with its winner counts and any pool left to roll over
func (r *MongoContestRepository) Finalize(ctx context.Context, id int64, winners, perfect int, pendingRolloverCents int64) error {
	update := bson.M{"$set": bson.M{
		"status":                 models.ContestStatusCompleted,
		"total_winners":          winners,
		"perfect_slates_count":   perfect,
		"pending_rollover_cents": pendingRolloverCents,
		"updated_at":             time.Now(),
	}}
	if err := r.updateByID(ctx, id, update); err != nil {
		return fmt.Errorf("failed to finalize contest %d: %w", id, err)
	}
	return nil
}

// TakePendingRollover claims and clears all rollover money held by completed contests of a sport
func (r *MongoContestRepository) TakePendingRollover(ctx context.Context, sport models.Sport) (int64, error) {
	ctx, cancel := WithMediumTimeout(ctx)
	defer cancel()

	filter := bson.M{"sport": sport, "pending_rollover_cents": bson.M{"$gt": 0}}
	update := bson.M{"$set": bson.M{"pending_rollover_cents": int64(0), "updated_at": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var total int64
	for {
		var contest models.Contest
		err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&contest)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("failed to take pending rollover for %s: %w", sport, err)
		}
		r.logger.Infof("Claimed %d cents of rollover from contest %d", contest.PendingRolloverCents, contest.ID)
		total += contest.PendingRolloverCents
	}
}
