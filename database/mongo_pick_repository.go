package database

import (
	"context"
	"fmt"
	"time"

	"perfect-slate/logging"
	"perfect-slate/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPickRepository stores the selectable market outcomes of each game
type MongoPickRepository struct {
	collection *mongo.Collection
	sequences  *Sequences
	logger     *logging.Logger
}

func NewMongoPickRepository(db *MongoDB) *MongoPickRepository {
	collection := db.GetCollection("picks")
	logger := logging.WithPrefix("mongo_pick_repo")

	ctx, cancel := WithShortTimeout(context.Background())
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "game_id", Value: 1},
			{Key: "pick_type", Value: 1},
			{Key: "selection", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		logger.Errorf("Failed to create index on picks collection: %v", err)
	}

	return &MongoPickRepository{
		collection: collection,
		sequences:  NewSequences(db),
		logger:     logger,
	}
}

// CreateMany assigns consecutive IDs and inserts the picks
func (r *MongoPickRepository) CreateMany(ctx context.Context, picks []*models.Pick) error {
	if len(picks) == 0 {
		return nil
	}
	first, err := r.sequences.Reserve(ctx, "picks", len(picks))
	if err != nil {
		return err
	}

	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	now := time.Now()
	docs := make([]interface{}, len(picks))
	for i, p := range picks {
		p.ID = first + int64(i)
		p.UpdatedAt = now
		if p.Result == "" {
			p.Result = models.PickResultPending
		}
		docs[i] = p
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("picks for game %d already exist: %w", picks[0].GameID, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create picks: %w", err)
	}
	return nil
}

// FindByGameIDs returns every pick of the given games
func (r *MongoPickRepository) FindByGameIDs(ctx context.Context, gameIDs []int64) ([]models.Pick, error) {
	if len(gameIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := WithMediumTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"game_id": bson.M{"$in": gameIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find picks: %w", err)
	}
	defer cursor.Close(ctx)

	var picks []models.Pick
	if err := cursor.All(ctx, &picks); err != nil {
		return nil, fmt.Errorf("failed to decode picks: %w", err)
	}
	return picks, nil
}

// UpdateLine sets the line of one side of a game's market
func (r *MongoPickRepository) UpdateLine(ctx context.Context, gameID int64, pickType models.PickType, selection models.Selection, line float64) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	filter := bson.M{"game_id": gameID, "pick_type": pickType, "selection": selection}
	update := bson.M{"$set": bson.M{"line_value": line, "updated_at": time.Now()}}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to update %s/%s line for game %d: %w", pickType, selection, gameID, err)
	}
	return nil
}

// IncrementTimesSelected bumps the popularity counter of each pick once
func (r *MongoPickRepository) IncrementTimesSelected(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	_, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$inc": bson.M{"times_selected": 1}},
	)
	if err != nil {
		return fmt.Errorf("failed to increment pick popularity: %w", err)
	}
	return nil
}

// SetResults stores graded results in one bulk write
func (r *MongoPickRepository) SetResults(ctx context.Context, results map[int64]models.PickResult) error {
	if len(results) == 0 {
		return nil
	}

	ctx, cancel := WithLongTimeout(ctx)
	defer cancel()

	now := time.Now()
	operations := make([]mongo.WriteModel, 0, len(results))
	for id, result := range results {
		operations = append(operations, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{"result": result, "updated_at": now}}))
	}

	opts := options.BulkWrite().SetOrdered(false)
	res, err := r.collection.BulkWrite(ctx, operations, opts)
	if err != nil {
		return fmt.Errorf("bulk pick grading failed: %w", err)
	}
	r.logger.Debugf("Graded %d picks: %d modified", len(results), res.ModifiedCount)
	return nil
}
