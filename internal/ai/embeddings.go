package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"manuals-backend/internal/config"
	"manuals-backend/internal/logger"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// Embedder maps text to fixed-length vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Answerer produces an answer grounded in the context carried by systemPrompt.
type Answerer interface {
	Answer(ctx context.Context, systemPrompt, question string) (string, error)
}

type batchEmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

type completeFunc func(ctx context.Context, systemPrompt, userMessage string) (string, error)

// guardedEmbedder splits work into batches and sends each batch through a
// rate limiter and a circuit breaker. Failures are not retried.
type guardedEmbedder struct {
	provider  string
	model     string
	embed     batchEmbedFunc
	batchSize int
	breaker   *gobreaker.CircuitBreaker
	limiter   *rate.Limiter
	closer    func() error
}

func newGuardedEmbedder(provider, model string, embed batchEmbedFunc, batchSize, rpm int) *guardedEmbedder {
	if batchSize <= 0 {
		batchSize = 64
	}
	if rpm <= 0 {
		rpm = 3000
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	return &guardedEmbedder{
		provider:  provider,
		model:     model,
		embed:     embed,
		batchSize: batchSize,
		breaker:   newBreaker(provider + "-embeddings"),
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
	}
}

func (g *guardedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	tracer := otel.Tracer("embeddings")
	ctx, span := tracer.Start(ctx, "embeddings.embed_documents")
	defer span.End()
	span.SetAttributes(
		attribute.String("embeddings.provider", g.provider),
		attribute.String("embeddings.model", g.model),
		attribute.Int("embeddings.inputs", len(texts)),
	)

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		result, err := g.breaker.Execute(func() (interface{}, error) {
			return g.embed(ctx, batch)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				span.SetAttributes(attribute.Bool("embeddings.circuit_breaker_open", true))
				return nil, fmt.Errorf("%s embeddings unavailable: %w", g.provider, err)
			}
			span.SetAttributes(attribute.Bool("embeddings.error", true))
			return nil, err
		}
		vectors := result.([][]float32)
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%s returned %d embeddings for %d inputs", g.provider, len(vectors), len(batch))
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (g *guardedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (g *guardedEmbedder) Close() error {
	if g.closer != nil {
		return g.closer()
	}
	return nil
}

type guardedAnswerer struct {
	provider string
	complete completeFunc
	breaker  *gobreaker.CircuitBreaker
	closer   func() error
}

func (g *guardedAnswerer) Answer(ctx context.Context, systemPrompt, question string) (string, error) {
	tracer := otel.Tracer("answers")
	ctx, span := tracer.Start(ctx, "answers.complete")
	defer span.End()
	span.SetAttributes(attribute.String("answers.provider", g.provider))

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.complete(ctx, systemPrompt, question)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("answers.error", true))
		return "", err
	}
	return result.(string), nil
}

func (g *guardedAnswerer) Close() error {
	if g.closer != nil {
		return g.closer()
	}
	return nil
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// NewEmbedder builds the embedder selected by cfg.EmbeddingsProvider. The
// result implements io.Closer.
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingsProvider {
	case "openai", "":
		client, err := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbeddingsModel, cfg.OpenAIChatModel, nil)
		if err != nil {
			return nil, err
		}
		return newGuardedEmbedder("openai", cfg.OpenAIEmbeddingsModel, client.Embed, cfg.EmbedBatchSize, cfg.EmbedRPM), nil

	case "google":
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.GeminiChatModel)
		if err != nil {
			return nil, err
		}
		g := newGuardedEmbedder("google", cfg.GoogleEmbeddingsModel, client.Embed, cfg.EmbedBatchSize, cfg.EmbedRPM)
		g.closer = client.Close
		return g, nil

	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}

// NewAnswerer builds the chat model selected by cfg.LLMProvider.
func NewAnswerer(ctx context.Context, cfg *config.Config) (Answerer, error) {
	switch cfg.LLMProvider {
	case "openai", "":
		client, err := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbeddingsModel, cfg.OpenAIChatModel, nil)
		if err != nil {
			return nil, err
		}
		return &guardedAnswerer{provider: "openai", complete: client.Complete, breaker: newBreaker("openai-chat")}, nil

	case "google":
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.GeminiChatModel)
		if err != nil {
			return nil, err
		}
		return &guardedAnswerer{provider: "google", complete: client.Complete, breaker: newBreaker("gemini-chat"), closer: client.Close}, nil

	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
