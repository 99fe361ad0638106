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

// OpenAI calls an OpenAI-compatible chat completions API. One adapter serves
// both the premium and the cheap tier; the request's Model picks the tier and
// the matching rate is applied to the usage the API reports.
type OpenAI struct {
	BaseURL string // e.g. https://api.openai.com
	APIKey  string
	Client  *http.Client
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) httpClient() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

func (o *OpenAI) Execute(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	body, err := json.Marshal(map[string]any{
		"model":       req.Model,
		"messages":    []map[string]any{{"role": "user", "content": req.Prompt}},
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	})
	if err != nil {
		return Response{}, err
	}
	url := strings.TrimSuffix(o.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)
	resp, err := o.httpClient().Do(httpReq)
	if err != nil {
		return Response{Duration: time.Since(start)}, fmt.Errorf("openai request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Response{Duration: time.Since(start)}, fmt.Errorf("openai returned %d", resp.StatusCode)
	}
	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int64 `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Response{Duration: time.Since(start)}, fmt.Errorf("openai response decode: %w", err)
	}
	tokens := apiResp.Usage.TotalTokens
	out := Response{
		Tokens:   tokens,
		Cost:     float64(tokens) / 1000 * rateForModel(req.Model),
		Duration: time.Since(start),
	}
	if len(apiResp.Choices) == 0 {
		// Usage was billed even though no completion came back.
		return out, fmt.Errorf("openai returned no choices")
	}
	out.Content = apiResp.Choices[0].Message.Content
	return out, nil
}

// rateForModel maps a backend model name back to its per-1K rate.
func rateForModel(model string) float64 {
	switch model {
	case Model(OpenAIGPT4):
		return RatePer1K(OpenAIGPT4)
	case Model(OpenAIGPT35):
		return RatePer1K(OpenAIGPT35)
	case Model(AnthropicHaiku):
		return RatePer1K(AnthropicHaiku)
	default:
		return 0
	}
}
