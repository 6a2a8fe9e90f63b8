package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"manuals-backend/internal/ai"
	"manuals-backend/internal/config"
	"manuals-backend/internal/logger"
	"manuals-backend/internal/vectorstore"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  ensure-indexes     - Create the upload record indexes in MongoDB")
		fmt.Println("  ensure-collection  - Create the Qdrant collection sized for the configured embedding model")
		fmt.Println("  verify             - Check MongoDB and Qdrant are reachable")
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch command {
	case "ensure-indexes":
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			log.Fatalf("Index creation failed: %v", err)
		}
		defer client.Disconnect(context.Background())
		fmt.Printf("Indexes ready on %s.%s\n", cfg.DBName, cfg.MongoCollection)

	case "ensure-collection":
		if err := ensureCollection(ctx, cfg); err != nil {
			log.Fatalf("Collection setup failed: %v", err)
		}

	case "verify":
		if err := verify(ctx, cfg); err != nil {
			log.Fatalf("Verification failed: %v", err)
		}
		fmt.Println("MongoDB and Qdrant are reachable")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

// ensureCollection embeds a probe string to learn the vector size, then
// creates the collection if it is missing.
func ensureCollection(ctx context.Context, cfg *config.Config) error {
	embedder, err := ai.NewEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	vector, err := embedder.EmbedQuery(ctx, "dimension probe")
	if err != nil {
		return fmt.Errorf("probe embedding failed: %w", err)
	}

	store := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection, nil)
	if err := store.EnsureCollection(ctx, len(vector)); err != nil {
		return err
	}
	fmt.Printf("Collection %s ready with %d dimensions\n", store.Collection(), len(vector))
	return nil
}

func verify(ctx context.Context, cfg *config.Config) error {
	client, err := config.ConnectMongoDB(cfg)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	store := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection, nil)
	return store.Ready(ctx)
}
