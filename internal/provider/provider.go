// Package provider defines the uniform call contract to completion backends
// and a registry mapping provider identifiers to adapter implementations.
package provider

import (
	"context"
	"sync"
	"time"
)

// Provider identifiers. The identifier selects both the backend and the model
// tier; the registry resolves it to an adapter, the routing tables to a rate.
const (
	LocalMistral   = "ollama/mistral"
	OpenAIGPT4     = "openai/gpt-4"
	OpenAIGPT35    = "openai/gpt-3.5-turbo"
	AnthropicHaiku = "anthropic/claude-3-haiku"
)

// RatePer1K returns the metered USD price per 1000 tokens for a provider.
// The local backend is always free.
func RatePer1K(id string) float64 {
	switch id {
	case OpenAIGPT4:
		return 0.03
	case OpenAIGPT35:
		return 0.0015
	case AnthropicHaiku:
		return 0.0008
	default:
		return 0
	}
}

// Model returns the backend model name for a provider identifier.
func Model(id string) string {
	switch id {
	case LocalMistral:
		return "mistral:7b-instruct"
	case OpenAIGPT4:
		return "gpt-4"
	case OpenAIGPT35:
		return "gpt-3.5-turbo"
	case AnthropicHaiku:
		return "claude-3-haiku-20240307"
	default:
		return ""
	}
}

// Request is one completion call.
type Request struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Response carries the generated content plus the usage actually billed.
// On error an adapter may still return non-zero Tokens/Cost when the backend
// reported usage before failing; callers must account for that spend.
type Response struct {
	Content  string
	Tokens   int64
	Cost     float64
	Duration time.Duration
}

// Adapter is the uniform contract to one completion backend.
type Adapter interface {
	Name() string
	Execute(ctx context.Context, req Request) (Response, error)
}

// Registry holds configured adapters by provider identifier.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(id string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[id] = a
}

func (r *Registry) Get(id string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[id]
}

// Available reports whether an adapter is configured for id.
func (r *Registry) Available(id string) bool {
	return r.Get(id) != nil
}

// IDs returns the registered provider identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, id)
	}
	return out
}
