package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// WithBreaker wraps an adapter in a circuit breaker so a backend that fails
// repeatedly is skipped quickly instead of eating its full timeout on every
// fallback pass. An open breaker surfaces as a normal provider error, which
// the fallback chain treats like any other candidate failure.
func WithBreaker(inner Adapter) Adapter {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("provider breaker state change", "provider", name, "from", from.String(), "to", to.String())
		},
	})
	return &breakerAdapter{inner: inner, cb: cb}
}

type breakerAdapter struct {
	inner Adapter
	cb    *gobreaker.CircuitBreaker
}

func (b *breakerAdapter) Name() string { return b.inner.Name() }

func (b *breakerAdapter) Execute(ctx context.Context, req Request) (Response, error) {
	out, err := b.cb.Execute(func() (any, error) {
		resp, execErr := b.inner.Execute(ctx, req)
		if execErr != nil {
			// Return the response through the error path so billed-but-failed
			// usage is not lost when the breaker records the failure.
			return resp, execErr
		}
		return resp, nil
	})
	if resp, ok := out.(Response); ok {
		return resp, err
	}
	return Response{}, err
}
