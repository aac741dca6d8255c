package services

import (
	"context"
	"time"

	"perfect-slate/database"
	"perfect-slate/logging"
	"perfect-slate/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const changeStreamRetryDelay = 5 * time.Second

// gameChange is the subset of a change stream event we read
type gameChange struct {
	OperationType string       `bson:"operationType"`
	FullDocument  *models.Game `bson:"fullDocument"`
}

// ChangeStreamWatcher relays game status and score changes written by any
// instance to a local broadcaster. It needs MongoDB running as a replica set.
type ChangeStreamWatcher struct {
	db          *database.MongoDB
	broadcaster GameBroadcaster
	logger      *logging.Logger
}

func NewChangeStreamWatcher(db *database.MongoDB, broadcaster GameBroadcaster) *ChangeStreamWatcher {
	return &ChangeStreamWatcher{
		db:          db,
		broadcaster: broadcaster,
		logger:      logging.WithPrefix("ChangeStream"),
	}
}

// gameChangePipeline matches inserts and updates touching status or scores
func gameChangePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"$or": []bson.M{
				{"operationType": "insert"},
				{
					"operationType": "update",
					"$or": []bson.M{
						{"updateDescription.updatedFields.status": bson.M{"$exists": true}},
						{"updateDescription.updatedFields.home_score": bson.M{"$exists": true}},
						{"updateDescription.updatedFields.away_score": bson.M{"$exists": true}},
					},
				},
			},
		}}},
	}
}

// Run watches the games collection until ctx is cancelled, reconnecting after errors
func (w *ChangeStreamWatcher) Run(ctx context.Context) {
	collection := w.db.GetCollection("games")
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	for {
		stream, err := collection.Watch(ctx, gameChangePipeline(), opts)
		if err != nil {
			w.logger.Warnf("Failed to open change stream: %v", err)
		} else {
			w.logger.Info("Watching games collection")
			w.consume(ctx, stream)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(changeStreamRetryDelay):
		}
	}
}

func (w *ChangeStreamWatcher) consume(ctx context.Context, stream *mongo.ChangeStream) {
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var change gameChange
		if err := stream.Decode(&change); err != nil {
			w.logger.Warnf("Failed to decode change event: %v", err)
			continue
		}
		if change.FullDocument == nil {
			continue
		}
		w.logger.Debugf("Game %d %s (%s)", change.FullDocument.ID, change.OperationType, change.FullDocument.Status)
		w.broadcaster.BroadcastGameUpdate(change.FullDocument)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		w.logger.Warnf("Change stream closed: %v", err)
	}
}
