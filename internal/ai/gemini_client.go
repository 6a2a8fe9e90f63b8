package ai

import (
	"context"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini's batch embed endpoint accepts at most 100 contents per call.
const geminiMaxBatch = 100

type GeminiClient struct {
	client     *genai.Client
	embedModel string
	chatModel  string
}

func NewGeminiClient(ctx context.Context, apiKey, embedModel, chatModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		client:     client,
		embedModel: embedModel,
		chatModel:  chatModel,
	}, nil
}

// Embed returns one vector per text using the batch embed endpoint.
func (gc *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := gc.client.EmbeddingModel(gc.embedModel)
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += geminiMaxBatch {
		end := start + geminiMaxBatch
		if end > len(texts) {
			end = len(texts)
		}

		batch := model.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		resp, err := model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), end-start)
		}
		for _, e := range resp.Embeddings {
			if e == nil || len(e.Values) == 0 {
				return nil, fmt.Errorf("no embedding returned")
			}
			out = append(out, e.Values)
		}
	}
	return out, nil
}

// Complete asks the chat model to answer userMessage under systemPrompt.
func (gc *GeminiClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	model := gc.client.GenerativeModel(gc.chatModel)
	model.SetTemperature(0.2)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userMessage))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text")
	}
	return sb.String(), nil
}

func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
