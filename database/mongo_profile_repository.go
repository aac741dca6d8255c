package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"perfect-slate/logging"
	"perfect-slate/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProfileRepository stores user profiles keyed by user ID
type MongoProfileRepository struct {
	collection *mongo.Collection
}

// usernameIndex makes usernames unique regardless of case
const usernameIndex = "username_ci"

var usernameCollation = &options.Collation{Locale: "en", Strength: 2}

func NewMongoProfileRepository(db *MongoDB) *MongoProfileRepository {
	collection := db.GetCollection("profiles")

	ctx, cancel := WithShortTimeout(context.Background())
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetName(usernameIndex).SetUnique(true).SetCollation(usernameCollation),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		logging.WithPrefix("mongo_profile_repo").Errorf("Failed to create index on profiles collection: %v", err)
	}

	return &MongoProfileRepository{collection: collection}
}

// duplicateUsername reports a write rejected by the username index
func duplicateUsername(err error) bool {
	return mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), usernameIndex)
}

// FindByID returns nil, nil when the profile has not been created yet
func (r *MongoProfileRepository) FindByID(ctx context.Context, id string) (*models.UserProfile, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	var profile models.UserProfile
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&profile); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find profile %s: %w", id, err)
	}
	return &profile, nil
}

// FindByUsername matches usernames case-insensitively; nil, nil when unused
func (r *MongoProfileRepository) FindByUsername(ctx context.Context, username string) (*models.UserProfile, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	var profile models.UserProfile
	opts := options.FindOne().SetCollation(usernameCollation)
	if err := r.collection.FindOne(ctx, bson.M{"username": username}, opts).Decode(&profile); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find profile by username: %w", err)
	}
	return &profile, nil
}

// Create inserts a profile. A concurrent first access surfaces as ErrDuplicateKey,
// a username held by another profile as ErrUsernameTaken.
func (r *MongoProfileRepository) Create(ctx context.Context, profile *models.UserProfile) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, profile); err != nil {
		if duplicateUsername(err) {
			return fmt.Errorf("username %q: %w", profile.Username, ErrUsernameTaken)
		}
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("profile %s: %w", profile.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// UpdateDetails changes the user-editable profile fields
func (r *MongoProfileRepository) UpdateDetails(ctx context.Context, id string, req models.ProfileUpdateRequest) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"username":       req.Username,
		"favorite_team":  req.FavoriteTeam,
		"favorite_sport": req.FavoriteSport,
		"updated_at":     time.Now(),
	}}
	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		if duplicateUsername(err) {
			return fmt.Errorf("username %q: %w", req.Username, ErrUsernameTaken)
		}
		return fmt.Errorf("failed to update profile %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrConditionNotMet
	}
	return nil
}

// SpendTokens debits n tokens only if the balance covers them
func (r *MongoProfileRepository) SpendTokens(ctx context.Context, id string, n int) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": id, "token_balance": bson.M{"$gte": n}}
	update := bson.M{
		"$inc": bson.M{"token_balance": -n},
		"$set": bson.M{"updated_at": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to spend tokens for %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrConditionNotMet
	}
	return nil
}

// RefundTokens credits back tokens of a submission that did not go through
func (r *MongoProfileRepository) RefundTokens(ctx context.Context, id string, n int) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"token_balance": n},
		"$set": bson.M{"updated_at": time.Now()},
	}
	if _, err := r.collection.UpdateByID(ctx, id, update); err != nil {
		return fmt.Errorf("failed to refund tokens for %s: %w", id, err)
	}
	return nil
}

// IncSubmission counts a submitted slate toward the statistics and the next earned token
func (r *MongoProfileRepository) IncSubmission(ctx context.Context, id string, tokensUsed int, now time.Time) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{
			"total_slates_submitted":   1,
			"lifetime_tokens_used":     tokensUsed,
			"slates_toward_next_token": 1,
		},
		"$set": bson.M{"updated_at": now},
	}
	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to record submission for %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrConditionNotMet
	}
	return nil
}

// ClaimEarnedToken turns every submissions of progress into one token. The
// filter lets only one of several concurrent claims on the same progress match.
func (r *MongoProfileRepository) ClaimEarnedToken(ctx context.Context, id string, every int, now time.Time) (bool, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": id, "slates_toward_next_token": bson.M{"$gte": every}}
	update := bson.M{
		"$inc": bson.M{
			"slates_toward_next_token": -every,
			"token_balance":            1,
			"lifetime_tokens_earned":   1,
		},
		"$set": bson.M{"updated_at": now},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to credit earned token to %s: %w", id, err)
	}
	return result.ModifiedCount > 0, nil
}

func addTo(field string, n interface{}) bson.M {
	return bson.M{"$add": bson.A{"$" + field, n}}
}

// RecordResult applies a graded slate as a pipeline update, so the streak,
// its maximum and the win rate are derived from the stored values.
func (r *MongoProfileRepository) RecordResult(ctx context.Context, id string, outcome models.SlateOutcome, now time.Time) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	perfect := 0
	var streak interface{} = 0
	if outcome.Perfect {
		perfect = 1
		streak = addTo("current_streak", 1)
	}
	nine, eight := outcome.BadBeats()

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"slates_graded":        addTo("slates_graded", 1),
			"perfect_slates":       addTo("perfect_slates", perfect),
			"total_earnings_cents": addTo("total_earnings_cents", outcome.EarningsCents()),
			"current_streak":       streak,
			"bad_beats_9":          addTo("bad_beats_9", nine),
			"bad_beats_8":          addTo("bad_beats_8", eight),
			"updated_at":           now,
		}}},
		{{Key: "$set", Value: bson.M{
			"longest_streak": bson.M{"$max": bson.A{"$longest_streak", "$current_streak"}},
			"win_percentage": bson.M{"$multiply": bson.A{
				bson.M{"$divide": bson.A{"$perfect_slates", "$slates_graded"}}, 100,
			}},
		}}},
	}
	result, err := r.collection.UpdateByID(ctx, id, pipeline)
	if err != nil {
		return fmt.Errorf("failed to record result for %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrConditionNotMet
	}
	return nil
}
