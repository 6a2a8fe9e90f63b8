package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string
	MaxFileSize int64
	UploadDir   string

	// MongoDB metadata store
	MongoURI        string
	DBName          string
	MongoCollection string

	// Qdrant vector index
	QdrantURL         string
	QdrantCollection  string
	QdrantUpsertBatch int

	// Embeddings configuration
	EmbeddingsProvider    string // "openai" (default), "google"
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIEmbeddingsModel string
	GeminiAPIKey          string
	GoogleEmbeddingsModel string
	EmbedBatchSize        int
	EmbedRPM              int

	// Answer generation for /query/
	LLMProvider     string // "openai" (default), "google"
	OpenAIChatModel string
	GeminiChatModel string
	QueryTopK       int

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Session state (uploaded files list, current company)
	SessionStore     string // "memory" (default), "redis"
	RedisURL         string
	RedisPassword    string
	RedisDB          int
	SessionKeyPrefix string

	// OpenTelemetry
	OTelEnabled  bool
	OTelEndpoint string
	ServiceName  string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),

		MongoURI:        getEnv("MONGODB_URI", "mongodb://localhost:27017/datquest"),
		DBName:          getEnv("MONGODB_DB", "datquest"),
		MongoCollection: getEnv("MONGODB_COLLECTION", "uploads"),

		QdrantURL:         getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:  getEnv("QDRANT_COLLECTION", "learn_vector2"),
		QdrantUpsertBatch: getEnvInt("QDRANT_UPSERT_BATCH", 64),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "openai"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIEmbeddingsModel: getEnv("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-large"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		EmbedBatchSize:        getEnvInt("EMBED_BATCH_SIZE", 64),
		EmbedRPM:              getEnvInt("EMBED_RPM", 3000),

		LLMProvider:     getEnv("LLM_PROVIDER", "openai"),
		OpenAIChatModel: getEnv("OPENAI_CHAT_MODEL", "gpt-4o"),
		GeminiChatModel: getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
		QueryTopK:       getEnvInt("QUERY_TOP_K", 5),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 500),

		SessionStore:     getEnv("SESSION_STORE", "memory"),
		RedisURL:         getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		SessionKeyPrefix: getEnv("SESSION_KEY_PREFIX", "manuals"),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "manuals-backend"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects combinations the ingestion pipeline cannot run with.
// API keys are checked lazily by the provider that needs them.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	switch c.EmbeddingsProvider {
	case "openai", "google":
	default:
		return fmt.Errorf("unknown EMBEDDINGS_PROVIDER: %s", c.EmbeddingsProvider)
	}
	switch c.LLMProvider {
	case "openai", "google":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER: %s", c.LLMProvider)
	}
	switch c.SessionStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown SESSION_STORE: %s", c.SessionStore)
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
