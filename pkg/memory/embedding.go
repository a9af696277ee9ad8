package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultEmbeddingEndpoint = "https://api.openai.com/v1/embeddings"

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	APIKey     string
	Model      string
	Endpoint   string
	HTTPClient *http.Client
}

// NewOpenAIEmbedder returns an embedder with sane defaults. An empty apiKey
// falls back to the OPENAI_API_KEY environment variable.
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return &OpenAIEmbedder{
		APIKey:   apiKey,
		Model:    "text-embedding-3-small",
		Endpoint: defaultEmbeddingEndpoint,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	cleaned := make([]string, len(texts))
	for i, text := range texts {
		cleaned[i] = strings.TrimSpace(text)
	}

	body, err := json.Marshal(embeddingRequest{Model: e.Model, Input: cleaned})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, e.Endpoint, bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return nil, fmt.Errorf("embedding API error (status %d)", resp.StatusCode)
		}
		return nil, fmt.Errorf("embedding API error: %s (%s)", apiErr.Error.Message, apiErr.Error.Type)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	result := make([][]float32, len(cleaned))
	for _, item := range parsed.Data {
		if item.Index >= len(result) {
			continue
		}
		result[item.Index] = item.Embedding
	}

	return result, nil
}

/*
MockEmbedder produces small deterministic unit vectors from the text's bytes.
Identical texts embed identically, which is all the tests need.
*/
type MockEmbedder struct{}

// NewMockEmbedder returns a deterministic embedder for tests and demos.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// Embed produces an 8-dimensional deterministic embedding.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	const dims = 8
	embedding := make([]float32, dims)
	if len(text) == 0 {
		embedding[0] = 1
		return embedding, nil
	}

	for i, b := range []byte(text) {
		embedding[i%dims] += float32(b)
	}

	var norm float64
	for _, v := range embedding {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range embedding {
		embedding[i] = float32(float64(embedding[i]) / norm)
	}

	return embedding, nil
}

// EmbedBatch embeds each text independently.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = embedding
	}
	return result, nil
}
