package storage

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoConfig describes the MongoDB connection for the durable engine.
type MongoConfig struct {
	ConnectionURL  string        `env:"MONGODB_URL,required"`
	Database       string        `env:"MONGODB_DATABASE" envDefault:"rtkit"`
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize    uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	RetryAttempts  int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}

// Mongo persists documents in a MongoDB database, one Mongo collection per
// logical collection.
type Mongo struct {
	db *mongo.Database
}

// NewMongo wraps an already-connected database handle.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

// ConnectMongo establishes a client with retry and returns the engine bound
// to the configured database.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	for range max(cfg.RetryAttempts, 1) {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize),
		)
		if err == nil {
			if err := client.Ping(ctx, nil); err == nil {
				return NewMongo(client.Database(cfg.Database)), nil
			}
			_ = client.Disconnect(ctx)
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnect, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, ErrFailedToConnect
}

// Write implements Engine.
func (m *Mongo) Write(ctx context.Context, op Operation, collection string, doc Document) (Result, error) {
	coll := m.db.Collection(collection)

	switch op {
	case OpCreate:
		stored := withID(doc)
		if _, err := coll.InsertOne(ctx, stored); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return Result{}, ErrDocumentExists
			}
			return Result{}, err
		}
		return Result{Collection: collection, ID: documentID(stored), Count: 1, Document: stored}, nil

	case OpCreateOrReplace:
		stored := withID(doc)
		id := documentID(stored)
		_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, stored, options.Replace().SetUpsert(true))
		if err != nil {
			return Result{}, err
		}
		return Result{Collection: collection, ID: id, Count: 1, Document: stored}, nil

	case OpUpdate:
		id := documentID(doc)
		if id == "" {
			return Result{}, ErrMissingDocumentID
		}
		fields := maps.Clone(doc)
		delete(fields, "_id")
		res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
		if err != nil {
			return Result{}, err
		}
		if res.MatchedCount == 0 {
			return Result{}, ErrDocumentNotFound
		}
		return Result{Collection: collection, ID: id, Count: res.ModifiedCount, Document: doc}, nil

	case OpReplace:
		id := documentID(doc)
		if id == "" {
			return Result{}, ErrMissingDocumentID
		}
		res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
		if err != nil {
			return Result{}, err
		}
		if res.MatchedCount == 0 {
			return Result{}, ErrDocumentNotFound
		}
		return Result{Collection: collection, ID: id, Count: 1, Document: doc}, nil

	case OpDelete:
		id := documentID(doc)
		if id == "" {
			return Result{}, ErrMissingDocumentID
		}
		res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return Result{}, err
		}
		if res.DeletedCount == 0 {
			return Result{}, ErrDocumentNotFound
		}
		return Result{Collection: collection, ID: id, Count: 1}, nil

	case OpDeleteByQuery:
		res, err := coll.DeleteMany(ctx, bson.M(query(doc)))
		if err != nil {
			return Result{}, err
		}
		return Result{Collection: collection, Count: res.DeletedCount}, nil

	case OpCreateCollection:
		err := m.db.CreateCollection(ctx, collection)
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
			err = nil
		}
		if err != nil {
			return Result{}, err
		}
		return Result{Collection: collection}, nil
	}
	return Result{}, ErrUnsupportedOperation
}

func withID(doc Document) Document {
	stored := maps.Clone(doc)
	if documentID(stored) == "" {
		stored["_id"] = uuid.New().String()
	}
	return stored
}

func query(doc Document) Document {
	if doc == nil {
		return Document{}
	}
	return doc
}
