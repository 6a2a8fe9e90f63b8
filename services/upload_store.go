package services

import (
	"context"
	"fmt"
	"sort"

	"manuals-backend/internal/telemetry"
	"manuals-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUploadStore persists upload records in a single collection.
type MongoUploadStore struct {
	collection *mongo.Collection
	metrics    *telemetry.Metrics
}

func NewMongoUploadStore(db *mongo.Database, collection string, metrics *telemetry.Metrics) *MongoUploadStore {
	return &MongoUploadStore{
		collection: db.Collection(collection),
		metrics:    metrics,
	}
}

// Insert stores rec and returns the generated id as hex.
func (s *MongoUploadStore) Insert(ctx context.Context, rec *models.UploadRecord) (string, error) {
	result, err := s.collection.InsertOne(ctx, rec)
	s.metrics.RecordDatabaseOperation(ctx, "insert", s.collection.Name(), err == nil)
	if err != nil {
		return "", err
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	rec.ID = id
	return id.Hex(), nil
}

// DistinctCompanies returns every company name once, sorted.
func (s *MongoUploadStore) DistinctCompanies(ctx context.Context) ([]string, error) {
	values, err := s.collection.Distinct(ctx, "company_name", bson.M{})
	s.metrics.RecordDatabaseOperation(ctx, "distinct", s.collection.Name(), err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	companies := make([]string, 0, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok {
			companies = append(companies, name)
		}
	}
	sort.Strings(companies)
	return companies, nil
}

// LatestCompany returns the company of the most recently inserted record.
func (s *MongoUploadStore) LatestCompany(ctx context.Context) (string, bool, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetProjection(bson.M{"company_name": 1})

	var rec models.UploadRecord
	err := s.collection.FindOne(ctx, bson.M{}, opts).Decode(&rec)
	s.metrics.RecordDatabaseOperation(ctx, "find_latest", s.collection.Name(), err == nil || err == mongo.ErrNoDocuments)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load latest record: %w", err)
	}
	return rec.CompanyName, rec.CompanyName != "", nil
}

// FindByCompany returns the records of company in insertion order.
func (s *MongoUploadStore) FindByCompany(ctx context.Context, company string) ([]models.UploadRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"company_name": company}, opts)
	s.metrics.RecordDatabaseOperation(ctx, "find", s.collection.Name(), err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.UploadRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

// Ping checks the database connection.
func (s *MongoUploadStore) Ping(ctx context.Context) error {
	return s.collection.Database().Client().Ping(ctx, nil)
}
