package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// EmbeddingsClient is a client for interacting with llama.cpp embeddings API.
type EmbeddingsClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	ExpectedSize int // Expected vector size for validation
	client       *http.Client
	loader       *ModelLoader
}

// NewEmbeddingsClient creates a new embeddings client.
// expectedSize is the expected vector size (from EMBEDDING_DIMENSIONS config).
// All returned embeddings are validated against this size.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		ExpectedSize: expectedSize,
		client:       newHTTPClient(),
	}
}

// WithModelLoader makes Init load the model through loader before the first embedding.
func (c *EmbeddingsClient) WithModelLoader(loader *ModelLoader) *EmbeddingsClient {
	c.loader = loader
	return c
}

// EmbeddingsRequest represents the request payload for embeddings API.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData represents a single embedding in the response.
type EmbeddingData struct {
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse represents the response from the embeddings API.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// Init loads the model into the server when a model loader is configured.
func (c *EmbeddingsClient) Init(ctx context.Context) error {
	if c.loader == nil {
		return nil
	}
	return c.loader.LoadModel(ctx, c.Model, nil)
}

// Embed returns the embedding of a single text. An empty response yields a nil
// vector and no error.
func (c *EmbeddingsClient) Embed(ctx context.Context, text string) ([]float32, error) {
	data, err := c.post(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data[0].Embedding) == 0 {
		return nil, nil
	}
	return c.convert(0, data[0].Embedding)
}

// EmbedTexts generates embeddings for the given texts.
// Returns a slice of float32 vectors, one per input text.
// Validates that all returned vectors match the expected size.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	data, err := c.post(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(data))
	}

	result := make([][]float32, len(data))
	for i, d := range data {
		vec, err := c.convert(i, d.Embedding)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

func (c *EmbeddingsClient) post(ctx context.Context, texts []string) ([]EmbeddingData, error) {
	url := fmt.Sprintf("%s/v1/embeddings", c.BaseURL)

	body, err := json.Marshal(EmbeddingsRequest{Model: c.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var embeddingsResp EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return embeddingsResp.Data, nil
}

// convert turns a float64 embedding into float32 after checking its size.
func (c *EmbeddingsClient) convert(i int, embedding []float64) ([]float32, error) {
	if c.ExpectedSize > 0 && len(embedding) != c.ExpectedSize {
		return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(embedding), c.ExpectedSize)
	}

	vec := make([]float32, len(embedding))
	for j, v := range embedding {
		vec[j] = float32(v)
	}
	return vec, nil
}
