package database

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxBackupLine bounds one document line when restoring (Mongo caps documents at 16MB)
const maxBackupLine = 16 << 20

// ExportCollection writes every document of a collection as one canonical
// Extended JSON document per line, so types like int64 and dates survive a restore.
func (m *MongoDB) ExportCollection(ctx context.Context, name string, w io.Writer) (int, error) {
	cursor, err := m.GetCollection(name).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", name, err)
	}
	defer cursor.Close(ctx)

	count := 0
	for cursor.Next(ctx) {
		line, err := bson.MarshalExtJSON(cursor.Current, true, false)
		if err != nil {
			return count, fmt.Errorf("failed to encode %s document: %w", name, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return count, err
		}
		count++
	}
	if err := cursor.Err(); err != nil {
		return count, fmt.Errorf("cursor error on %s: %w", name, err)
	}
	return count, nil
}

// RestoreCollection upserts documents written by ExportCollection, matching on _id
func (m *MongoDB) RestoreCollection(ctx context.Context, name string, r io.Reader) (int, error) {
	collection := m.GetCollection(name)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxBackupLine)

	var models []mongo.WriteModel
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var doc bson.D
		if err := bson.UnmarshalExtJSON(scanner.Bytes(), true, &doc); err != nil {
			return 0, fmt.Errorf("failed to decode %s line %d: %w", name, len(models)+1, err)
		}
		id, ok := documentID(doc)
		if !ok {
			return 0, fmt.Errorf("%s line %d has no _id", name, len(models)+1)
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if len(models) == 0 {
		return 0, nil
	}

	if _, err := collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return 0, fmt.Errorf("failed to restore %s: %w", name, err)
	}
	return len(models), nil
}

func documentID(doc bson.D) (interface{}, bool) {
	for _, e := range doc {
		if e.Key == "_id" {
			return e.Value, true
		}
	}
	return nil, false
}
