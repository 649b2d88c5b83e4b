package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Encoder maps one text to a raw embedding vector.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEncoder calls an OpenAI-compatible /embeddings endpoint. Pointing
// baseURL at a local inference server lets it serve all-MiniLM-L6-v2.
type OpenAIEncoder struct {
	client     *openai.Client
	model      string
	dimensions int
}

func NewOpenAIEncoder(apiKey, baseURL, model string, httpClient openai.HTTPDoer) *OpenAIEncoder {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}

	enc := &OpenAIEncoder{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
	// Only the text-embedding-3 family accepts a requested width.
	if strings.HasPrefix(model, "text-embedding-3") {
		enc.dimensions = Dimensions
	}
	return enc
}

func (e *OpenAIEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}
