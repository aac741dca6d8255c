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

type MongoGameRepository struct {
	collection *mongo.Collection
	sequences  *Sequences
	logger     *logging.Logger
}

func NewMongoGameRepository(db *MongoDB) *MongoGameRepository {
	collection := db.GetCollection("games")
	logger := logging.WithPrefix("mongo_game_repo")

	ctx, cancel := WithShortTimeout(context.Background())
	defer cancel()

	// A provider event appears at most once per contest
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "contest_id", Value: 1}, {Key: "external_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"external_id": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "contest_id", Value: 1}, {Key: "scheduled_time", Value: 1}}},
		{Keys: bson.D{{Key: "sport", Value: 1}, {Key: "status", Value: 1}, {Key: "scheduled_time", Value: 1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Errorf("Failed to create indexes on games collection: %v", err)
	}

	return &MongoGameRepository{
		collection: collection,
		sequences:  NewSequences(db),
		logger:     logger,
	}
}

// Create assigns an ID and inserts the game
func (r *MongoGameRepository) Create(ctx context.Context, game *models.Game) error {
	id, err := r.sequences.Next(ctx, "games")
	if err != nil {
		return err
	}

	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	game.ID = id
	game.UpdatedAt = time.Now()
	if _, err := r.collection.InsertOne(ctx, game); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("game %s already exists in contest %d: %w", game.ExternalID, game.ContestID, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (r *MongoGameRepository) findOne(ctx context.Context, filter bson.M) (*models.Game, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	var game models.Game
	if err := r.collection.FindOne(ctx, filter).Decode(&game); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &game, nil
}

func (r *MongoGameRepository) find(ctx context.Context, filter bson.M) ([]models.Game, error) {
	ctx, cancel := WithMediumTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "scheduled_time", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var games []models.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// FindByID returns nil, nil when the game does not exist
func (r *MongoGameRepository) FindByID(ctx context.Context, id int64) (*models.Game, error) {
	game, err := r.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to find game %d: %w", id, err)
	}
	return game, nil
}

// FindByExternalID looks up a provider event inside a contest
func (r *MongoGameRepository) FindByExternalID(ctx context.Context, contestID int64, externalID string) (*models.Game, error) {
	game, err := r.findOne(ctx, bson.M{"contest_id": contestID, "external_id": externalID})
	if err != nil {
		return nil, fmt.Errorf("failed to find game %s: %w", externalID, err)
	}
	return game, nil
}

// FindByContest returns a contest's games ordered by start time
func (r *MongoGameRepository) FindByContest(ctx context.Context, contestID int64) ([]models.Game, error) {
	games, err := r.find(ctx, bson.M{"contest_id": contestID})
	if err != nil {
		return nil, fmt.Errorf("failed to find games for contest %d: %w", contestID, err)
	}
	return games, nil
}

// FindForScoreUpdate returns unfinished games of a sport scheduled since the given time
func (r *MongoGameRepository) FindForScoreUpdate(ctx context.Context, sport models.Sport, since time.Time) ([]models.Game, error) {
	filter := bson.M{
		"sport":          sport,
		"status":         bson.M{"$in": []models.GameStatus{models.GameStatusScheduled, models.GameStatusInProgress}},
		"scheduled_time": bson.M{"$gte": since},
	}
	games, err := r.find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s games for score update: %w", sport, err)
	}
	return games, nil
}

// UpdateLines refreshes the market lines and start time of a game
func (r *MongoGameRepository) UpdateLines(ctx context.Context, id int64, homeSpread, awaySpread, total float64, scheduled time.Time) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"home_spread":    homeSpread,
		"away_spread":    awaySpread,
		"total_points":   total,
		"scheduled_time": scheduled,
		"updated_at":     time.Now(),
	}}
	if _, err := r.collection.UpdateByID(ctx, id, update); err != nil {
		return fmt.Errorf("failed to update lines for game %d: %w", id, err)
	}
	return nil
}

// UpdateScore stores the latest status and scores of a game
func (r *MongoGameRepository) UpdateScore(ctx context.Context, id int64, status models.GameStatus, homeScore, awayScore *int) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	set := bson.M{"status": status, "updated_at": time.Now()}
	if homeScore != nil {
		set["home_score"] = *homeScore
	}
	if awayScore != nil {
		set["away_score"] = *awayScore
	}
	if _, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("failed to update score for game %d: %w", id, err)
	}
	return nil
}
