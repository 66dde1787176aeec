package runstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists Run records in a MongoDB "runs" collection, keyed by
// the run UUID, for shared/production deployments (SPEC_FULL.md §6/§10).
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and returns a store backed by
// database.runs.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection("runs"),
	}, nil
}

func (s *MongoStore) Append(ctx context.Context, run *Run) error {
	_, err := s.coll.InsertOne(ctx, run)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]*Run, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find runs: %w", err)
	}
	defer cur.Close(ctx)

	var runs []*Run
	for cur.Next(ctx) {
		var run Run
		if err := cur.Decode(&run); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&run)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find run %q: %w", id, err)
	}
	return &run, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
