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

// Local calls an Ollama-compatible server over HTTP. Calls are free; cost is
// always zero regardless of token usage.
type Local struct {
	BaseURL string // e.g. http://localhost:11434
	Client  *http.Client
}

func (l *Local) Name() string { return "ollama" }

func (l *Local) httpClient() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return http.DefaultClient
}

// Ping checks the server is reachable (used by doctor).
func (l *Local) Ping(ctx context.Context) error {
	url := strings.TrimSuffix(l.BaseURL, "/") + "/api/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := l.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama version endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (l *Local) Execute(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	body, err := json.Marshal(map[string]any{
		"model":  req.Model,
		"prompt": req.Prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	})
	if err != nil {
		return Response{}, err
	}
	url := strings.TrimSuffix(l.BaseURL, "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := l.httpClient().Do(httpReq)
	if err != nil {
		return Response{Duration: time.Since(start)}, fmt.Errorf("ollama request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Response{Duration: time.Since(start)}, fmt.Errorf("ollama returned %d", resp.StatusCode)
	}
	var apiResp struct {
		Response  string `json:"response"`
		EvalCount int64  `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Response{Duration: time.Since(start)}, fmt.Errorf("ollama response decode: %w", err)
	}
	tokens := apiResp.EvalCount
	if tokens == 0 {
		// Older servers omit eval_count; estimate from output words.
		tokens = int64(float64(len(strings.Fields(apiResp.Response))) * 1.3)
	}
	return Response{
		Content:  apiResp.Response,
		Tokens:   tokens,
		Cost:     0,
		Duration: time.Since(start),
	}, nil
}
