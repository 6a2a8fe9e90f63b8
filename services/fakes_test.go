package services

import (
	"context"
	"errors"
	"sync"

	"manuals-backend/internal/vectorstore"
	"manuals-backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUploadStore struct {
	mu        sync.Mutex
	records   []models.UploadRecord
	insertErr error
	queryErr  error
}

func (f *fakeUploadStore) Insert(ctx context.Context, rec *models.UploadRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return "", f.insertErr
	}
	rec.ID = primitive.NewObjectID()
	f.records = append(f.records, *rec)
	return rec.ID.Hex(), nil
}

func (f *fakeUploadStore) DistinctCompanies(ctx context.Context) ([]string, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	seen := map[string]bool{}
	var out []string
	for _, r := range f.records {
		if !seen[r.CompanyName] {
			seen[r.CompanyName] = true
			out = append(out, r.CompanyName)
		}
	}
	return out, nil
}

func (f *fakeUploadStore) LatestCompany(ctx context.Context) (string, bool, error) {
	if f.queryErr != nil {
		return "", false, f.queryErr
	}
	if len(f.records) == 0 {
		return "", false, nil
	}
	return f.records[len(f.records)-1].CompanyName, true, nil
}

func (f *fakeUploadStore) FindByCompany(ctx context.Context, company string) ([]models.UploadRecord, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := []models.UploadRecord{}
	for _, r := range f.records {
		if r.CompanyName == company {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeUploadStore) Ping(ctx context.Context) error {
	return f.queryErr
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

type fakeVectorIndex struct {
	mu        sync.Mutex
	dims      []int
	points    []vectorstore.Point
	upsertErr error

	searches []*vectorstore.Filter
	results  func(filter *vectorstore.Filter) ([]vectorstore.Match, error)
	readyErr error
}

func (f *fakeVectorIndex) EnsureCollection(ctx context.Context, dim int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dims = append(f.dims, dim)
	return nil
}

func (f *fakeVectorIndex) Upsert(ctx context.Context, points []vectorstore.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeVectorIndex) Search(ctx context.Context, vector []float32, limit int, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	f.mu.Lock()
	f.searches = append(f.searches, filter)
	f.mu.Unlock()
	if f.results == nil {
		return nil, nil
	}
	return f.results(filter)
}

func (f *fakeVectorIndex) Ready(ctx context.Context) error {
	return f.readyErr
}

func (f *fakeVectorIndex) metadataOf(i int) map[string]any {
	return f.points[i].Payload["metadata"].(map[string]any)
}

type fakeAnswerer struct {
	system   string
	question string
	answer   string
	err      error
}

func (f *fakeAnswerer) Answer(ctx context.Context, systemPrompt, question string) (string, error) {
	f.system = systemPrompt
	f.question = question
	return f.answer, f.err
}

// brokenMetadataExtractor reads pages normally but cannot read document info.
type brokenMetadataExtractor struct {
	*PDFExtractor
}

func (brokenMetadataExtractor) ExtractMetadata(path string) (map[string]any, error) {
	return nil, errors.New("trailer is corrupt")
}
