package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LocalLLMClient talks to a llama.cpp server hosting the offline model. The
// server's own timeout behavior governs slow generations; the client only
// bounds the HTTP exchange.
type LocalLLMClient struct {
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

func NewLocalLLMClient(baseURL string, maxTokens int) *LocalLLMClient {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &LocalLLMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Generate runs one completion against the local model's /completion
// endpoint and returns the generated text.
func (c *LocalLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"prompt":    prompt,
		"n_predict": c.maxTokens,
		"stream":    false,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal local llm request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completion", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build local llm request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("local llm request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read local llm response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("local llm response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse local llm json failed: %w", err)
	}
	return strings.TrimSpace(parsed.Content), nil
}
