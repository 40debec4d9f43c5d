package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"chalkboard/internal/domain"
)

const (
	defaultMongoDatabase = "chalkboard"
	mongoSlotCollection  = "slots"
)

type mongoSlot struct {
	Name      string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoSlotStore keeps each slot as one document keyed by slot name.
type MongoSlotStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func openMongoSlotStore(ctx context.Context, uri string) (*MongoSlotStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	coll := client.Database(mongoDatabaseName(uri)).Collection(mongoSlotCollection)
	return &MongoSlotStore{client: client, coll: coll}, nil
}

// mongoDatabaseName takes the database from the URI path: mongodb://host/DB_NAME?params
func mongoDatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultMongoDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return defaultMongoDatabase
}

func (s *MongoSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc mongoSlot
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get slot %s: %w", key, err)
	}
	return doc.Value, nil
}

func (s *MongoSlotStore) Put(ctx context.Context, key string, value []byte) error {
	doc := mongoSlot{Name: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put slot %s: %w", key, err)
	}
	return nil
}

func (s *MongoSlotStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
