package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"manuals-backend/internal/logger"
)

const maxErrorBodyBytes = 1024

// DefaultUpsertBatchSize is the number of points sent per upsert request.
const DefaultUpsertBatchSize = 64

// Point is one vector with its payload. Payloads follow the
// {page_content, metadata} layout so filters address "metadata.<key>".
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Match is one similarity search hit.
type Match struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Condition is an exact-value match on a payload key.
type Condition struct {
	Key   string
	Value any
}

// Filter ANDs its conditions.
type Filter struct {
	Must []Condition
}

// QdrantStore talks to a single Qdrant collection over the REST API.
type QdrantStore struct {
	baseURL    string
	collection string
	http       *http.Client
	batchSize  int

	mu         sync.Mutex
	ensuredDim int
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewQdrantStore builds a store for collection at baseURL. A nil httpClient
// gets a client with a 30s timeout.
func NewQdrantStore(baseURL, collection string, httpClient *http.Client) *QdrantStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &QdrantStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		http:       httpClient,
		batchSize:  DefaultUpsertBatchSize,
	}
}

// WithUpsertBatchSize sets how many points go into one upsert request.
// Values below 1 keep the current size.
func (s *QdrantStore) WithUpsertBatchSize(n int) *QdrantStore {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Collection returns the collection name.
func (s *QdrantStore) Collection() string {
	return s.collection
}

// Ready checks the /readyz endpoint.
func (s *QdrantStore) Ready(ctx context.Context) error {
	const op = "ready"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", resp.StatusCode),
		}
	}
	return nil
}

// EnsureCollection creates the collection with cosine distance if it is
// missing. An existing collection with a different vector size is an error.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dim int) error {
	const op = "ensure_collection"
	if dim <= 0 {
		return opErr(op, OperationErrorValidation, fmt.Sprintf("invalid vector dimension %d", dim), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensuredDim == dim {
		return nil
	}

	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &info)
	switch {
	case err == nil:
		size := info.Config.Params.Vectors.Size
		if size != 0 && size != dim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("collection %q vector size mismatch: expected=%d actual=%d", s.collection, dim, size), nil)
		}
	case isStatus(err, http.StatusNotFound):
		req := map[string]any{
			"vectors": map[string]any{
				"size":     dim,
				"distance": "Cosine",
			},
		}
		if err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath(""), req, nil); err != nil {
			return err
		}
		logger.Info("Created Qdrant collection", "collection", s.collection, "vector_dim", dim)
	default:
		return err
	}

	s.ensuredDim = dim
	return nil
}

// Upsert writes points in batches and waits for each write to be applied.
// A batch that hits a missing collection recreates it once and is retried.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}

	body := make([]map[string]any, 0, len(points))
	for _, p := range points {
		if strings.TrimSpace(p.ID) == "" {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if len(p.Vector) == 0 {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %q has empty vector", p.ID), nil)
		}
		payload := p.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		body = append(body, map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": payload,
		})
	}

	for start := 0; start < len(body); start += s.batchSize {
		end := min(start+s.batchSize, len(body))
		if err := s.upsertBatch(ctx, body[start:end], len(points[start].Vector)); err != nil {
			return fmt.Errorf("upsert points %d-%d of %d: %w", start, end, len(body), err)
		}
	}
	return nil
}

func (s *QdrantStore) upsertBatch(ctx context.Context, batch []map[string]any, dim int) error {
	const op = "upsert"
	req := map[string]any{"points": batch}
	err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), req, nil)
	if !isStatus(err, http.StatusNotFound) {
		return err
	}

	logger.Warn("Qdrant collection missing during upsert, recreating", "collection", s.collection)
	s.mu.Lock()
	s.ensuredDim = 0
	s.mu.Unlock()
	if err := s.EnsureCollection(ctx, dim); err != nil {
		return err
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), req, nil)
}

// Search returns up to limit nearest points. A missing collection yields
// ErrCollectionNotFound.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int, filter *Filter) ([]Match, error) {
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if limit <= 0 {
		limit = 5
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if f := translateFilter(filter); f != nil {
		req["filter"] = f
	}

	var raw []qdrantSearchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &raw); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, s.collection)
		}
		return nil, err
	}

	out := make([]Match, 0, len(raw))
	for _, item := range raw {
		out = append(out, Match{
			ID:      decodePointID(item.ID),
			Score:   item.Score,
			Payload: item.Payload,
		})
	}
	return out, nil
}

func translateFilter(filter *Filter) map[string]any {
	if filter == nil || len(filter.Must) == 0 {
		return nil
	}
	must := make([]any, 0, len(filter.Must))
	for _, c := range filter.Must {
		must = append(must, map[string]any{
			"key":   c.Key,
			"match": map[string]any{"value": c.Value},
		})
	}
	return map[string]any{"must": must}
}

func (s *QdrantStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func (s *QdrantStore) collectionPath(suffix string) string {
	return "/collections/" + s.collection + suffix
}

func isStatus(err error, status int) bool {
	var opErrTyped *OperationError
	return errors.As(err, &opErrTyped) && opErrTyped.StatusCode == status
}

func classifyHTTPCallError(op, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") || strings.EqualFold(statusString, "acknowledged") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}

	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}
