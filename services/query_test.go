package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"manuals-backend/internal/vectorstore"
	"manuals-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMatch() vectorstore.Match {
	return vectorstore.Match{
		ID:    "p-1",
		Score: 0.9,
		Payload: map[string]any{
			"page_content": "Unplug the washer before cleaning the filter.",
			"metadata": map[string]any{
				"page_label":   "4",
				"company_name": "Acme",
				"product_code": nil,
				"source":       "uploads/w100.pdf",
				"total_pages":  float64(12),
				"page":         float64(3),
			},
		},
	}
}

func TestAnswerUsesScopedSearch(t *testing.T) {
	vectors := &fakeVectorIndex{results: func(f *vectorstore.Filter) ([]vectorstore.Match, error) {
		return []vectorstore.Match{sampleMatch()}, nil
	}}
	answerer := &fakeAnswerer{answer: "Unplug it first. [src: page_label=4 pdf_path=uploads/w100.pdf]"}
	svc := NewQueryService(&fakeEmbedder{}, vectors, answerer, nil, 5)

	answer, err := svc.Answer(context.Background(), models.QueryRequest{
		Query:       "How do I clean the filter?",
		CompanyName: "Acme",
		ProductCode: "W-100",
	})
	require.NoError(t, err)
	assert.Equal(t, answerer.answer, answer)
	assert.Equal(t, "How do I clean the filter?", answerer.question)

	require.Len(t, vectors.searches, 1)
	require.NotNil(t, vectors.searches[0])
	assert.Equal(t, []vectorstore.Condition{
		{Key: "metadata.company_name", Value: "Acme"},
		{Key: "metadata.product_name", Value: "W-100"},
	}, vectors.searches[0].Must)

	assert.Contains(t, answerer.system, "page_content: Unplug the washer before cleaning the filter.")
	assert.Contains(t, answerer.system, "page_label: 4")
	assert.Contains(t, answerer.system, "product_code: None")
	assert.Contains(t, answerer.system, "total_pages: 12")
	assert.Contains(t, answerer.system, "page: 3")
	assert.Contains(t, answerer.system, `Not found in Context.`)
}

func TestAnswerFallsBackToUnfilteredSearch(t *testing.T) {
	vectors := &fakeVectorIndex{results: func(f *vectorstore.Filter) ([]vectorstore.Match, error) {
		if f != nil {
			return nil, nil
		}
		return []vectorstore.Match{sampleMatch()}, nil
	}}
	svc := NewQueryService(&fakeEmbedder{}, vectors, &fakeAnswerer{answer: "ok"}, nil, 5)

	answer, err := svc.Answer(context.Background(), models.QueryRequest{
		Query: "q", CompanyName: "Acme", ProductName: "W-100",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	require.Len(t, vectors.searches, 2)
	assert.NotNil(t, vectors.searches[0])
	assert.Nil(t, vectors.searches[1])
}

func TestAnswerWithoutScopeSearchesOnce(t *testing.T) {
	vectors := &fakeVectorIndex{}
	svc := NewQueryService(&fakeEmbedder{}, vectors, &fakeAnswerer{}, nil, 5)

	_, err := svc.Answer(context.Background(), models.QueryRequest{Query: "q", CompanyName: "Acme"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "No relevant information found in the uploaded documents.", vErr.Message)
	assert.Equal(t, []*vectorstore.Filter{nil}, vectors.searches)
}

func TestAnswerMissingCollection(t *testing.T) {
	vectors := &fakeVectorIndex{results: func(f *vectorstore.Filter) ([]vectorstore.Match, error) {
		return nil, fmt.Errorf("%w: learn_vector2", vectorstore.ErrCollectionNotFound)
	}}
	svc := NewQueryService(&fakeEmbedder{}, vectors, &fakeAnswerer{}, nil, 5)

	_, err := svc.Answer(context.Background(), models.QueryRequest{Query: "q"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "No documents uploaded. Please upload a PDF first.", vErr.Message)
}

func TestAnswerRejectsEmptyQuery(t *testing.T) {
	svc := NewQueryService(&fakeEmbedder{}, &fakeVectorIndex{}, &fakeAnswerer{}, nil, 5)

	_, err := svc.Answer(context.Background(), models.QueryRequest{Query: "   "})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestAnswerPropagatesModelFailure(t *testing.T) {
	vectors := &fakeVectorIndex{results: func(f *vectorstore.Filter) ([]vectorstore.Match, error) {
		return []vectorstore.Match{sampleMatch()}, nil
	}}
	svc := NewQueryService(&fakeEmbedder{}, vectors, &fakeAnswerer{err: errors.New("quota exceeded")}, nil, 5)

	_, err := svc.Answer(context.Background(), models.QueryRequest{Query: "q"})
	assert.ErrorContains(t, err, "quota exceeded")
	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr))
}

func TestHealth(t *testing.T) {
	store := &fakeUploadStore{}
	vectors := &fakeVectorIndex{}
	svc := NewQueryService(&fakeEmbedder{}, vectors, &fakeAnswerer{}, store, 5)
	require.NoError(t, svc.Health(context.Background()))

	store.queryErr = errors.New("no primary")
	assert.ErrorContains(t, svc.Health(context.Background()), "mongodb: no primary")

	vectors.readyErr = errors.New("connection refused")
	assert.ErrorContains(t, svc.Health(context.Background()), "qdrant: connection refused")
}

func TestFormatContextSeparatesHits(t *testing.T) {
	ctx := FormatContext([]vectorstore.Match{sampleMatch(), sampleMatch()})
	assert.Contains(t, ctx, "page: 3\n\n\npage_content:")
}
