package repomanager

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/tours/internal/server/repositories/reviews"
	"github.com/dmitrijs2005/tours/internal/server/repositories/tours"
	"github.com/dmitrijs2005/tours/internal/server/repositories/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultMongoDatabase is used when the DSN names no database.
const DefaultMongoDatabase = "tours"

// MongoRepositoryManager vends MongoDB-backed repositories over one client.
type MongoRepositoryManager struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoRepositoryManager(ctx context.Context, dsn string) (*MongoRepositoryManager, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return newMongoRepositoryManager(client, databaseName(dsn)), nil
}

func newMongoRepositoryManager(client *mongo.Client, name string) *MongoRepositoryManager {
	return &MongoRepositoryManager{client: client, db: client.Database(name)}
}

// databaseName takes the database from the DSN path.
func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return DefaultMongoDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return DefaultMongoDatabase
}

func (m *MongoRepositoryManager) Users() users.Repository { return users.NewMongoRepository(m.db) }
func (m *MongoRepositoryManager) Tours() tours.Repository { return tours.NewMongoRepository(m.db) }
func (m *MongoRepositoryManager) Reviews() reviews.Repository {
	return reviews.NewMongoRepository(m.db)
}

// RunMigrations creates the indexes each collection relies on. Creating an
// existing index is a no-op in MongoDB.
func (m *MongoRepositoryManager) RunMigrations(ctx context.Context) error {
	sets := []struct {
		collection string
		indexes    []mongo.IndexModel
	}{
		{users.CollectionName, users.Indexes()},
		{tours.CollectionName, tours.Indexes()},
		{reviews.CollectionName, reviews.Indexes()},
	}
	for _, s := range sets {
		if _, err := m.db.Collection(s.collection).Indexes().CreateMany(ctx, s.indexes); err != nil {
			return fmt.Errorf("indexes for %s: %w", s.collection, err)
		}
	}
	return nil
}

func (m *MongoRepositoryManager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
