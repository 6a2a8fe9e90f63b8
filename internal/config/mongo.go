package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson" // Use bson for index keys
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	err = createIndexes(ctx, client, cfg.DBName, cfg.MongoCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(ctx context.Context, client *mongo.Client, dbName, collection string) error {
	uploadsCollection := client.Database(dbName).Collection(collection)
	uploadIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "company_name", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "session_id", Value: 1}},
		},
	}
	_, err := uploadsCollection.Indexes().CreateMany(ctx, uploadIndexes)
	return err
}
