package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medassist/internal/ai"
	"medassist/internal/model"
)

// DefaultTopK is used when a caller does not specify a passage count.
const DefaultTopK = 5

// Embedder turns a query into a vector. Satisfied by the shared
// OpenAI-compatible client via EmbedderFunc in bootstrap.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// PineconeClient embeds a query and fetches nearest-neighbor passages from a
// Pinecone index over its REST API. Online use only; callers gate on
// connectivity.
type PineconeClient struct {
	indexHost  string
	apiKey     string
	namespace  string
	embedder   Embedder
	httpClient *http.Client
}

func NewPineconeClient(indexHost, apiKey, namespace string, embedder Embedder) *PineconeClient {
	return &PineconeClient{
		indexHost:  strings.TrimRight(indexHost, "/"),
		apiKey:     apiKey,
		namespace:  namespace,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewEmbedderFromClient binds the shared OpenAI-compatible client and its
// embedding config into an Embedder.
func NewEmbedderFromClient(client *ai.OpenAICompatibleClient, cfg ai.EmbeddingConfig) Embedder {
	return EmbedderFunc(func(ctx context.Context, text string) ([]float32, error) {
		return client.Embed(ctx, cfg, text)
	})
}

// Search returns the topK most similar passages for query, ordered by score
// descending as the index returns them.
func (c *PineconeClient) Search(ctx context.Context, query string, topK int) ([]model.Passage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("retrieval query is empty")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed retrieval query failed: %w", err)
	}

	reqBody := map[string]interface{}{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	if c.namespace != "" {
		reqBody["namespace"] = c.namespace
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal retrieval request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.indexHost+"/query", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build retrieval request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read retrieval response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("retrieval response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Matches []struct {
			Score    float32           `json:"score"`
			Metadata map[string]string `json:"metadata"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse retrieval json failed: %w", err)
	}

	passages := make([]model.Passage, 0, len(parsed.Matches))
	for _, match := range parsed.Matches {
		text := match.Metadata["text"]
		if text == "" {
			continue
		}
		passages = append(passages, model.Passage{
			Text:     text,
			Score:    match.Score,
			Metadata: match.Metadata,
		})
	}
	return passages, nil
}

// JoinPassages renders retrieved passages into one context block.
func JoinPassages(passages []model.Passage) string {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n")
}
