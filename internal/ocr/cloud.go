package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const extractionPrompt = "Extract all readable text from this image. Reply with the text only, preserving line breaks. Reply with an empty message if the image contains no readable text."

// CloudVisionExtractor sends the image to an OpenAI-compatible vision chat
// model and returns whatever text the model reads out of it.
type CloudVisionExtractor struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewCloudVisionExtractor(baseURL, apiKey, model string) *CloudVisionExtractor {
	return &CloudVisionExtractor{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (e *CloudVisionExtractor) ExtractText(ctx context.Context, imagePath string) (string, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image failed: %w", err)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		mimeTypeFor(imagePath),
		base64.StdEncoding.EncodeToString(imageData),
	)

	reqBody := map[string]interface{}{
		"model": e.model,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": extractionPrompt},
					{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
				},
			},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal ocr request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build ocr request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read ocr response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ocr response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse ocr json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty ocr choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
