package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Rrens/ddoksori/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "kv_store"

type document struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// KV implements storage.Backend on a MongoDB collection
type KV struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect opens a client for uri and selects database
func Connect(ctx context.Context, uri, database string) (*KV, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &KV{
		client: client,
		coll:   client.Database(database).Collection(collectionName),
	}, nil
}

func (k *KV) Name() string {
	return "mongo"
}

// Close disconnects the client
func (k *KV) Close(ctx context.Context) error {
	return k.client.Disconnect(ctx)
}

// Ping verifies connectivity
func (k *KV) Ping(ctx context.Context) error {
	return k.client.Ping(ctx, nil)
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var doc document
	err := k.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return doc.Value, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	doc := document{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := k.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (k *KV) Delete(ctx context.Context, key string) error {
	if _, err := k.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (k *KV) DeletePrefix(ctx context.Context, prefix string) error {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	if _, err := k.coll.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}
