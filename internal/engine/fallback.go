package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/otel"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/provider"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

const (
	defaultCallTimeout = 60 * time.Second
	defaultMaxTokens   = 2000
	defaultTemperature = 0.7
)

// Executor runs a routing decision's candidate chain in order until one
// succeeds or the list is exhausted. Each candidate gets a bounded timeout,
// so total elapsed time never exceeds the sum of per-candidate timeouts.
type Executor struct {
	Registry    *provider.Registry
	CallTimeout time.Duration // per candidate; defaults to 60s
	MaxTokens   int
}

func (e *Executor) callTimeout() time.Duration {
	if e.CallTimeout > 0 {
		return e.CallTimeout
	}
	return defaultCallTimeout
}

func (e *Executor) maxTokens() int {
	if e.MaxTokens > 0 {
		return e.MaxTokens
	}
	return defaultMaxTokens
}

// Execute tries each candidate in decision order. The returned result always
// carries the full attempt history: billed-but-failed usage from earlier
// candidates is folded into Tokens/Cost so the ledger pays for every call
// that actually ran, and failure detail is retained for audit even when a
// later candidate succeeds.
func (e *Executor) Execute(ctx context.Context, decision models.RoutingDecision, prompt string) models.ExecutionResult {
	start := time.Now()
	result := models.ExecutionResult{ResultID: uuid.NewString()}

	var (
		failures     []error
		billedTokens int64
		billedCost   float64
	)
	for _, id := range decision.Candidates {
		adapter := e.Registry.Get(id)
		if adapter == nil {
			err := fmt.Errorf("provider %s not configured", id)
			failures = append(failures, err)
			result.Attempts = append(result.Attempts, models.Attempt{Provider: id, Error: err.Error()})
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout())
		resp, err := adapter.Execute(callCtx, provider.Request{
			Prompt:      prompt,
			Model:       provider.Model(id),
			MaxTokens:   e.maxTokens(),
			Temperature: defaultTemperature,
		})
		cancel()

		if err != nil {
			otel.RecordProviderCall(ctx, id, "error", resp.Tokens, resp.Duration)
			slog.Warn("provider call failed", "provider", id, "err", err)
			failures = append(failures, fmt.Errorf("%s: %w", id, err))
			result.Attempts = append(result.Attempts, models.Attempt{
				Provider: id,
				Error:    err.Error(),
				Tokens:   resp.Tokens,
				Cost:     resp.Cost,
				Duration: resp.Duration,
			})
			// The backend may have billed usage before failing; that spend
			// is real and must be committed with the final result.
			billedTokens += resp.Tokens
			billedCost += resp.Cost
			continue
		}

		otel.RecordProviderCall(ctx, id, "ok", resp.Tokens, resp.Duration)
		result.Attempts = append(result.Attempts, models.Attempt{
			Provider: id,
			Tokens:   resp.Tokens,
			Cost:     resp.Cost,
			Duration: resp.Duration,
		})
		result.Provider = id
		result.Content = resp.Content
		result.Tokens = billedTokens + resp.Tokens
		result.Cost = billedCost + resp.Cost
		result.Success = true
		result.Duration = time.Since(start)
		return result
	}

	// Exhausted: aggregate every per-candidate failure, not just the last.
	result.Tokens = billedTokens
	result.Cost = billedCost
	result.Duration = time.Since(start)
	if len(failures) == 0 {
		result.Error = "no provider candidates"
	} else {
		result.Error = errors.Join(failures...).Error()
	}
	return result
}
