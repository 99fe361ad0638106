package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce      sync.Once
	routingCounter       metric.Int64Counter
	providerCallsCounter metric.Int64Counter
	providerCallDuration metric.Float64Histogram
	tokensCounter        metric.Int64Counter
	costCounter          metric.Float64Counter
	runsCounter          metric.Int64Counter
	runDuration          metric.Float64Histogram
	sseConnections       metric.Int64UpDownCounter
	sseEvents            metric.Int64Counter
)

// InitMetrics creates the meter instruments. Safe to call multiple times;
// only runs once. Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		routingCounter, err = m.Int64Counter("workforce_routing_decisions_total", metric.WithDescription("Routing decisions by complexity and chosen provider"))
		if err != nil {
			return
		}
		providerCallsCounter, err = m.Int64Counter("workforce_provider_calls_total", metric.WithDescription("Provider calls by backend and outcome"))
		if err != nil {
			return
		}
		providerCallDuration, err = m.Float64Histogram("workforce_provider_call_duration_seconds", metric.WithDescription("Provider call duration in seconds"))
		if err != nil {
			return
		}
		tokensCounter, err = m.Int64Counter("workforce_tokens_total", metric.WithDescription("Tokens billed by provider"))
		if err != nil {
			return
		}
		costCounter, err = m.Float64Counter("workforce_cost_usd_total", metric.WithDescription("Committed spend in USD by team and provider"))
		if err != nil {
			return
		}
		runsCounter, err = m.Int64Counter("workforce_runs_total", metric.WithDescription("Team runs by terminal status"))
		if err != nil {
			return
		}
		runDuration, err = m.Float64Histogram("workforce_run_duration_seconds", metric.WithDescription("Team run duration in seconds"))
		if err != nil {
			return
		}
		sseConnections, err = m.Int64UpDownCounter("workforce_sse_connections", metric.WithDescription("Open event-stream connections"))
		if err != nil {
			return
		}
		sseEvents, err = m.Int64Counter("workforce_sse_events_total", metric.WithDescription("Events delivered to event-stream subscribers"))
	})
	return err
}

// RecordRoutingDecision records one routing decision.
func RecordRoutingDecision(ctx context.Context, complexity, provider string) {
	if routingCounter == nil {
		return
	}
	routingCounter.Add(ctx, 1, metric.WithAttributes(
		AttrComplexity.String(complexity),
		AttrProvider.String(provider),
	))
}

// RecordProviderCall records one provider call attempt, its outcome, and usage.
func RecordProviderCall(ctx context.Context, provider, outcome string, tokens int64, duration time.Duration) {
	if providerCallsCounter != nil {
		providerCallsCounter.Add(ctx, 1, metric.WithAttributes(
			AttrProvider.String(provider),
			AttrOutcome.String(outcome),
		))
	}
	if providerCallDuration != nil {
		providerCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrProvider.String(provider)))
	}
	if tokensCounter != nil && tokens > 0 {
		tokensCounter.Add(ctx, tokens, metric.WithAttributes(AttrProvider.String(provider)))
	}
}

// RecordCost records committed spend for a team.
func RecordCost(ctx context.Context, team, provider string, usd float64) {
	if costCounter == nil || usd <= 0 {
		return
	}
	costCounter.Add(ctx, usd, metric.WithAttributes(
		AttrTeam.String(team),
		AttrProvider.String(provider),
	))
}

// AddSSEConnection adjusts the open event-stream connection gauge.
func AddSSEConnection(ctx context.Context, delta int64) {
	if sseConnections == nil {
		return
	}
	sseConnections.Add(ctx, delta)
}

// RecordSSEEvent counts one event delivered to a subscriber.
func RecordSSEEvent(ctx context.Context) {
	if sseEvents == nil {
		return
	}
	sseEvents.Add(ctx, 1)
}

// RecordRun records one finished team run.
func RecordRun(ctx context.Context, team, status string, duration time.Duration) {
	if runsCounter != nil {
		runsCounter.Add(ctx, 1, metric.WithAttributes(AttrTeam.String(team), AttrStatus.String(status)))
	}
	if runDuration != nil {
		runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrTeam.String(team), AttrStatus.String(status)))
	}
}
