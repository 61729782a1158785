package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CloudSpeechClient implements Transcriber and Synthesizer against an
// OpenAI-compatible audio API.
type CloudSpeechClient struct {
	baseURL    string
	apiKey     string
	sttModel   string
	ttsModel   string
	httpClient *http.Client
}

func NewCloudSpeechClient(baseURL, apiKey, sttModel, ttsModel string) *CloudSpeechClient {
	return &CloudSpeechClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		sttModel:   sttModel,
		ttsModel:   ttsModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *CloudSpeechClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file failed: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("build transcription form failed: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio into form failed: %w", err)
	}
	if err := writer.WriteField("model", c.sttModel); err != nil {
		return "", fmt.Errorf("write transcription form field failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close transcription form failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("build transcription request failed: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcription response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse transcription json failed: %w", err)
	}
	return strings.TrimSpace(parsed.Text), nil
}

func (c *CloudSpeechClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesis input is empty")
	}

	reqBody := map[string]interface{}{
		"model":           c.ttsModel,
		"input":           text,
		"voice":           voiceID,
		"response_format": "mp3",
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("synthesis response status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
