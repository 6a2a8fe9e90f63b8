package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"manuals-backend/internal/ai"
	"manuals-backend/internal/config"
	"manuals-backend/internal/logger"
	"manuals-backend/internal/telemetry"
	"manuals-backend/internal/vectorstore"
	"manuals-backend/middleware"
	"manuals-backend/routes"
	"manuals-backend/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)
	ctx := context.Background()

	if cfg.OTelEnabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.OTelEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
		metrics = nil
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	session, closeSession, err := newSessionStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize session store:", err)
	}
	defer closeSession()

	embedder, err := ai.NewEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embeddings:", err)
	}
	defer closeIfCloser(embedder)

	answerer, err := ai.NewAnswerer(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize chat model:", err)
	}
	defer closeIfCloser(answerer)

	splitter, err := services.NewTextSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal("Invalid chunking settings:", err)
	}

	qdrant := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection, nil).
		WithUpsertBatchSize(cfg.QdrantUpsertBatch)
	uploads := services.NewMongoUploadStore(db, cfg.MongoCollection, metrics)

	ingestion := services.NewIngestionService(cfg.UploadDir, uploads, session,
		services.NewPDFExtractor(), splitter, embedder, qdrant, metrics)
	catalog := services.NewCatalogService(uploads, session)
	export := services.NewExportService(catalog)
	query := services.NewQueryService(embedder, qdrant, answerer, uploads, cfg.QueryTopK)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.OTelEnabled {
		router.Use(middleware.TracingMiddleware(cfg.ServiceName))
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize))

	// Setup routes
	routes.SetupUploadRoutes(router, ingestion)
	routes.SetupCompanyRoutes(router, catalog, export)
	routes.SetupQueryRoutes(router, query)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "qdrant", cfg.QdrantURL, "collection", cfg.QdrantCollection)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func newSessionStore(cfg *config.Config) (services.SessionStore, func(), error) {
	if cfg.SessionStore != "redis" {
		return services.NewMemorySessionStore(), func() {}, nil
	}
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return services.NewRedisSessionStore(rdb, cfg.SessionKeyPrefix), func() { rdb.Close() }, nil
}

func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("Close failed", "error", err)
		}
	}
}
