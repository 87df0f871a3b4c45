package providers

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

// Part is one text part of a content turn.
type Part struct {
	Text string `json:"text"`
}

// Content is one turn in the wire format the generateContent API expects.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// GenerationConfig tunes the backend's sampling.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// Provider generates one reply from an ordered conversation.
type Provider interface {
	Generate(ctx context.Context, contents []Content) (string, error)
}

// GeminiProvider calls the Gemini generateContent REST endpoint.
type GeminiProvider struct {
	apiKey     string
	apiBase    string
	model      string
	genConfig  GenerationConfig
	httpClient *http.Client
}

func NewGeminiProvider(apiKey, apiBase, model string, genConfig GenerationConfig) *GeminiProvider {
	return &GeminiProvider{
		apiKey:     apiKey,
		apiBase:    strings.TrimRight(apiBase, "/"),
		model:      model,
		genConfig:  genConfig,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *GeminiProvider) Generate(ctx context.Context, contents []Content) (string, error) {
	requestBody := map[string]any{
		"contents":         contents,
		"generationConfig": p.genConfig,
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.apiBase + "/models/" + p.model + ":generateContent?key=" + p.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API request failed:\n  Status: %d\n  Body:   %s", resp.StatusCode, string(body))
	}

	return parseGenerateResponse(body)
}

func parseGenerateResponse(body []byte) (string, error) {
	var apiResponse struct {
		Candidates []struct {
			Content struct {
				Parts []Part `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(apiResponse.Candidates) == 0 || len(apiResponse.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini response carried no candidates")
	}

	var sb strings.Builder
	for _, part := range apiResponse.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
