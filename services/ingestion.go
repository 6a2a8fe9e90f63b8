package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"manuals-backend/internal/ai"
	"manuals-backend/internal/logger"
	"manuals-backend/internal/telemetry"
	"manuals-backend/internal/vectorstore"
	"manuals-backend/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ValidationError is a client error; handlers answer it with 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UploadStore inserts upload records.
type UploadStore interface {
	Insert(ctx context.Context, rec *models.UploadRecord) (string, error)
}

// DocumentExtractor reads PDF metadata and page text.
type DocumentExtractor interface {
	ExtractMetadata(path string) (map[string]any, error)
	LoadPages(path string) ([]models.Document, error)
}

// VectorWriter persists embedded chunks.
type VectorWriter interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []vectorstore.Point) error
}

// UploadRequest is one received manual with its product metadata.
type UploadRequest struct {
	File        io.Reader
	Filename    string
	CompanyName string
	ProductName string
	ProductCode string
}

// IngestionService turns uploaded PDFs into indexed chunks and owns the
// uploaded-files list. Uploads and removals run one at a time.
type IngestionService struct {
	uploadDir string
	store     UploadStore
	session   SessionStore
	extractor DocumentExtractor
	splitter  *TextSplitter
	embedder  ai.Embedder
	vectors   VectorWriter
	metrics   *telemetry.Metrics

	mu sync.Mutex
}

func NewIngestionService(
	uploadDir string,
	store UploadStore,
	session SessionStore,
	extractor DocumentExtractor,
	splitter *TextSplitter,
	embedder ai.Embedder,
	vectors VectorWriter,
	metrics *telemetry.Metrics,
) *IngestionService {
	return &IngestionService{
		uploadDir: uploadDir,
		store:     store,
		session:   session,
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		vectors:   vectors,
		metrics:   metrics,
	}
}

// SanitizeFilename reduces name to its base name and rejects names that
// cannot be stored in the upload directory.
func SanitizeFilename(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	switch {
	case base == "" || base == "." || base == ".." || base == "/":
		return "", validationErrorf("Invalid file name")
	case strings.ContainsRune(base, 0):
		return "", validationErrorf("Invalid file name")
	}
	return base, nil
}

// Ingest stores the upload, indexes its chunks and makes it the only active
// file. Steps already completed are not undone when a later step fails.
func (s *IngestionService) Ingest(ctx context.Context, req UploadRequest) (*models.UploadResponse, error) {
	companyName := strings.TrimSpace(req.CompanyName)
	if companyName == "" {
		return nil, validationErrorf("company_name is required")
	}
	productName := strings.TrimSpace(req.ProductName)
	if productName == "" {
		productName = strings.TrimSpace(req.ProductCode)
	}
	if productName == "" {
		return nil, validationErrorf("Either product_name or product_code must be provided")
	}
	if req.File == nil {
		return nil, validationErrorf("file is required")
	}
	filename, err := SanitizeFilename(req.Filename)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tracer := otel.Tracer("ingestion")
	ctx, span := tracer.Start(ctx, "ingestion.ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("upload.filename", filename),
		attribute.String("upload.company_name", companyName),
		attribute.String("upload.product_name", productName),
	)

	start := time.Now()
	log := logger.With("filename", filename, "company_name", companyName, "product_name", productName)

	resp, chunks, err := s.ingest(ctx, req, filename, companyName, productName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordIngestion(ctx, time.Since(start).Seconds(), 0, "error")
		log.Error("PDF ingestion failed", "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("upload.chunks", chunks))
	s.metrics.RecordIngestion(ctx, time.Since(start).Seconds(), chunks, "success")
	log.Info("PDF ingested", "chunks", chunks, "db_id", resp.DBRecord.ID, "duration", time.Since(start).String())
	return resp, nil
}

func (s *IngestionService) ingest(ctx context.Context, req UploadRequest, filename, companyName, productName string) (*models.UploadResponse, int, error) {
	tracer := otel.Tracer("ingestion")

	if err := s.clearUploads(ctx); err != nil {
		return nil, 0, err
	}

	path := filepath.Join(s.uploadDir, filename)
	if err := writeUpload(path, req.File); err != nil {
		return nil, 0, err
	}

	sessionID := uuid.NewString()
	rec := &models.UploadRecord{
		CompanyName: companyName,
		ProductName: productName,
		URI:         path,
		Filename:    filename,
		SessionID:   sessionID,
		UploadedAt:  time.Now().UTC(),
	}
	dbID, err := s.store.Insert(ctx, rec)
	if err != nil {
		return nil, 0, fmt.Errorf("database insert failed: %w", err)
	}
	if err := s.session.SetCurrentCompany(ctx, companyName); err != nil {
		return nil, 0, err
	}

	pdfMeta, err := s.extractor.ExtractMetadata(path)
	if err != nil {
		logger.Warn("PDF metadata extraction failed, continuing with source only", "path", path, "error", err)
		pdfMeta = map[string]any{models.MetaSource: path}
	}

	var productCode any
	if code := strings.TrimSpace(req.ProductCode); code != "" {
		productCode = code
	}
	base := map[string]any{
		models.MetaCompanyName: companyName,
		models.MetaProductName: productName,
		models.MetaProductCode: productCode,
	}
	for k, v := range pdfMeta {
		if v != nil {
			base[k] = v
		}
	}

	_, loadSpan := tracer.Start(ctx, "ingestion.load_pages")
	pages, err := s.extractor.LoadPages(path)
	loadSpan.End()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load PDF pages: %w", err)
	}
	for i := range pages {
		mergeMetadata(&pages[i], base)
	}

	chunkMeta := make(map[string]any, len(base)+3)
	for k, v := range base {
		chunkMeta[k] = v
	}
	chunkMeta[models.MetaFilename] = filename
	chunkMeta[models.MetaDBID] = dbID
	chunkMeta[models.MetaSessionID] = sessionID

	chunks := s.splitter.SplitDocuments(pages)
	for i := range chunks {
		mergeMetadata(&chunks[i], chunkMeta)
	}

	if err := s.index(ctx, chunks); err != nil {
		return nil, 0, err
	}

	if err := s.session.AddFile(ctx, filename); err != nil {
		return nil, 0, err
	}
	files, err := s.session.Files(ctx)
	if err != nil {
		return nil, 0, err
	}

	return &models.UploadResponse{
		Message: fmt.Sprintf("PDF %s processed successfully", filename),
		Files:   files,
		DBRecord: models.DBRecord{
			ID:          dbID,
			CompanyName: companyName,
			ProductName: productName,
			URI:         path,
		},
	}, len(chunks), nil
}

func (s *IngestionService) index(ctx context.Context, chunks []models.Document) error {
	if len(chunks) == 0 {
		logger.Warn("PDF produced no text chunks, nothing to index")
		return nil
	}

	ctx, span := otel.Tracer("ingestion").Start(ctx, "ingestion.index")
	defer span.End()
	span.SetAttributes(attribute.Int("chunks", len(chunks)))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.PageContent
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if err := s.vectors.EnsureCollection(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("failed to prepare vector collection: %w", err)
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorstore.Point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"page_content": c.PageContent,
				"metadata":     c.Metadata,
			},
		}
	}
	if err := s.vectors.Upsert(ctx, points); err != nil {
		return fmt.Errorf("failed to write vectors: %w", err)
	}
	return nil
}

// clearUploads deletes every regular file in the upload directory and resets
// the uploaded-files list.
func (s *IngestionService) clearUploads(ctx context.Context) error {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return fmt.Errorf("failed to read upload directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(s.uploadDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
	}
	return s.session.ResetFiles(ctx)
}

func writeUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func mergeMetadata(doc *models.Document, meta map[string]any) {
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any, len(meta))
	}
	for k, v := range meta {
		doc.Metadata[k] = v
	}
}

// Files returns the uploaded-files list.
func (s *IngestionService) Files(ctx context.Context) ([]string, error) {
	return s.session.Files(ctx)
}

// Remove forgets a tracked file and deletes it from disk. Its upload record
// and indexed chunks are kept.
func (s *IngestionService) Remove(ctx context.Context, name string) (*models.FilesResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.session.Files(ctx)
	if err != nil {
		return nil, err
	}
	tracked := false
	for _, f := range files {
		if f == name {
			tracked = true
			break
		}
	}
	if !tracked {
		return nil, validationErrorf("File not found")
	}

	path := filepath.Join(s.uploadDir, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to delete file: %w", err)
	}
	if _, err := s.session.RemoveFile(ctx, name); err != nil {
		return nil, err
	}

	files, err = s.session.Files(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Uploaded file removed", "filename", name)
	return &models.FilesResponse{
		Message: fmt.Sprintf("File %s removed successfully", name),
		Files:   files,
	}, nil
}
