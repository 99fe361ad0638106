package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const anthropicAPIVersion = "2023-06-01"

// Anthropic calls the Anthropic messages API.
type Anthropic struct {
	BaseURL string // e.g. https://api.anthropic.com
	APIKey  string
	Client  *http.Client
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

func (a *Anthropic) Execute(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	body, err := json.Marshal(map[string]any{
		"model":       req.Model,
		"max_tokens":  maxTokens,
		"messages":    []map[string]any{{"role": "user", "content": req.Prompt}},
		"temperature": req.Temperature,
	})
	if err != nil {
		return Response{}, err
	}
	url := strings.TrimSuffix(a.BaseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	resp, err := a.httpClient().Do(httpReq)
	if err != nil {
		return Response{Duration: time.Since(start)}, fmt.Errorf("anthropic request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Response{Duration: time.Since(start)}, fmt.Errorf("anthropic returned %d", resp.StatusCode)
	}
	var apiResp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int64 `json:"input_tokens"`
			OutputTokens int64 `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Response{Duration: time.Since(start)}, fmt.Errorf("anthropic response decode: %w", err)
	}
	tokens := apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens
	out := Response{
		Tokens:   tokens,
		Cost:     float64(tokens) / 1000 * RatePer1K(AnthropicHaiku),
		Duration: time.Since(start),
	}
	if len(apiResp.Content) == 0 {
		return out, fmt.Errorf("anthropic returned no content")
	}
	out.Content = apiResp.Content[0].Text
	return out, nil
}
