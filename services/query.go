package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"manuals-backend/internal/ai"
	"manuals-backend/internal/logger"
	"manuals-backend/internal/vectorstore"
	"manuals-backend/models"
)

const (
	msgNoDocuments = "No documents uploaded. Please upload a PDF first."
	msgNoResults   = "No relevant information found in the uploaded documents."
)

// VectorSearcher runs similarity searches over indexed chunks.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int, filter *vectorstore.Filter) ([]vectorstore.Match, error)
	Ready(ctx context.Context) error
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueryService answers questions from the indexed manuals.
type QueryService struct {
	embedder ai.Embedder
	searcher VectorSearcher
	answerer ai.Answerer
	db       Pinger
	topK     int
}

func NewQueryService(embedder ai.Embedder, searcher VectorSearcher, answerer ai.Answerer, db Pinger, topK int) *QueryService {
	if topK <= 0 {
		topK = 5
	}
	return &QueryService{
		embedder: embedder,
		searcher: searcher,
		answerer: answerer,
		db:       db,
		topK:     topK,
	}
}

// Answer retrieves the closest chunks and asks the chat model to answer from
// them only. When company and product are both given the search is scoped to
// them, and widened to everything if the scoped search finds nothing.
func (s *QueryService) Answer(ctx context.Context, req models.QueryRequest) (string, error) {
	question := strings.TrimSpace(req.Query)
	if question == "" {
		return "", validationErrorf("query is required")
	}
	product := req.ProductName
	if product == "" {
		product = req.ProductCode
	}

	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	var filter *vectorstore.Filter
	if req.CompanyName != "" && product != "" {
		filter = &vectorstore.Filter{Must: []vectorstore.Condition{
			{Key: "metadata." + models.MetaCompanyName, Value: req.CompanyName},
			{Key: "metadata." + models.MetaProductName, Value: product},
		}}
	}

	matches, err := s.search(ctx, vector, filter)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 && filter != nil {
		logger.Warn("No results with filter, retrying without filter", "company_name", req.CompanyName, "product", product)
		matches, err = s.search(ctx, vector, nil)
		if err != nil {
			return "", err
		}
	}
	if len(matches) == 0 {
		return "", validationErrorf(msgNoResults)
	}

	answer, err := s.answerer.Answer(ctx, BuildSystemPrompt(matches), question)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return answer, nil
}

func (s *QueryService) search(ctx context.Context, vector []float32, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	matches, err := s.searcher.Search(ctx, vector, s.topK, filter)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return nil, validationErrorf(msgNoDocuments)
	}
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return matches, nil
}

// Health checks the vector index and the metadata database.
func (s *QueryService) Health(ctx context.Context) error {
	if err := s.searcher.Ready(ctx); err != nil {
		return fmt.Errorf("qdrant: %w", err)
	}
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			return fmt.Errorf("mongodb: %w", err)
		}
	}
	return nil
}

var contextKeys = []string{
	models.MetaPageLabel,
	models.MetaCompanyName,
	models.MetaProductCode,
	models.MetaSource,
	models.MetaTotalPages,
	models.MetaPage,
}

// FormatContext renders search hits as the context block of the prompt.
func FormatContext(matches []vectorstore.Match) string {
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		content, _ := m.Payload["page_content"].(string)
		meta, _ := m.Payload["metadata"].(map[string]any)

		var sb strings.Builder
		fmt.Fprintf(&sb, "page_content: %s", content)
		for _, k := range contextKeys {
			fmt.Fprintf(&sb, "\n%s: %s", k, formatMetaValue(meta[k]))
		}
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n\n\n")
}

func formatMetaValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}

const systemPromptTemplate = `Role: You are "Companion AI". Provide usage, troubleshooting, parts and maintenance guidance strictly from the provided Context.

Hard rules:
- Answer ONLY using the information in the Context below. Do not add outside knowledge, guesses or general guidance.
- If the requested information is not in Context, say exactly: "Not found in Context."
- Answer in English. Keep the tone clear, empathetic and concise.
- For every fact or step derived from Context, append a citation: [src: page_label=<PAGE_LABEL> pdf_path=<PDF_PATH>].
- Prioritize safety: warn before risky steps and include unplug/power-off where the Context indicates it.
- If the question is not about product usage, troubleshooting or maintenance, say you can't help with that.
- For troubleshooting or maintenance questions, give step by step guidance.

Context:
%s
`

// BuildSystemPrompt embeds the formatted matches into the answering instructions.
func BuildSystemPrompt(matches []vectorstore.Match) string {
	return fmt.Sprintf(systemPromptTemplate, FormatContext(matches))
}
