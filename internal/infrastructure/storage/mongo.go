package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/ports"
)

// MongoStore keeps one collection per source inside a single database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ ports.StoreProvider = (*MongoStore)(nil)

// OpenMongo connects to uri with a pool of at most poolSize connections.
func OpenMongo(ctx context.Context, uri, database string, poolSize int) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri)
	if poolSize > 0 {
		opts.SetMaxPoolSize(uint64(poolSize))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// EnsureIndexes adds the datetime and title indexes used by the stop policies.
func (s *MongoStore) EnsureIndexes(ctx context.Context, sourceIDs []string) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "datetime", Value: -1}}},
		{Keys: bson.D{{Key: "title", Value: 1}}},
	}
	for _, id := range sourceIDs {
		name := CollectionName(id)
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return &domain.StorageError{Op: domain.StorageWrite, Collection: name, Err: fmt.Errorf("create indexes: %w", err)}
		}
	}
	return nil
}

func (s *MongoStore) Collection(sourceID string) (ports.RecordStore, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("empty source id")
	}
	return newMongoCollection(s.db.Collection(CollectionName(sourceID))), nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func newMongoCollection(coll *mongo.Collection) *mongoCollection {
	return &mongoCollection{coll: coll}
}

func (c *mongoCollection) Insert(ctx context.Context, record domain.Record) (string, error) {
	res, err := c.coll.InsertOne(ctx, record)
	if err != nil {
		return "", c.fail(domain.StorageWrite, fmt.Errorf("insert record: %w", err))
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (c *mongoCollection) MostRecentTimestamp(ctx context.Context) (time.Time, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "datetime", Value: -1}}).
		SetProjection(bson.D{{Key: "datetime", Value: 1}})

	var latest domain.Record
	err := c.coll.FindOne(ctx, bson.D{}, opts).Decode(&latest)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.Floor, nil
	case err != nil:
		return domain.Floor, c.fail(domain.StorageRead, fmt.Errorf("find latest: %w", err))
	}
	return latest.PublishedAt, nil
}

func (c *mongoCollection) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	n, err := c.coll.CountDocuments(ctx, bson.D{{Key: "title", Value: title}}, options.Count().SetLimit(1))
	if err != nil {
		return false, c.fail(domain.StorageRead, fmt.Errorf("count title: %w", err))
	}
	return n > 0, nil
}

func (c *mongoCollection) fail(op domain.StorageOp, err error) error {
	return &domain.StorageError{Op: op, Collection: c.coll.Name(), Err: err}
}
