package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/provider"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

func TestExecute_firstCandidateSucceeds(t *testing.T) {
	t.Parallel()
	reg := provider.NewRegistry()
	stub := &provider.Stub{ID: "a", Reply: "hello", Tokens: 100, CostEach: 0.002}
	reg.Register("a", stub)
	reg.Register("b", &provider.Stub{ID: "b"})

	ex := &Executor{Registry: reg}
	res := ex.Execute(context.Background(), models.RoutingDecision{Candidates: []string{"a", "b"}}, "prompt")

	if !res.Success || res.Provider != "a" || res.Content != "hello" {
		t.Fatalf("result: %+v", res)
	}
	if res.Tokens != 100 || res.Cost != 0.002 {
		t.Fatalf("usage: tokens=%d cost=%v", res.Tokens, res.Cost)
	}
	if len(res.Attempts) != 1 {
		t.Fatalf("attempts: %d", len(res.Attempts))
	}
	if res.ResultID == "" {
		t.Fatal("missing result id")
	}
}

func TestExecute_fallsBackAndKeepsBilledUsage(t *testing.T) {
	t.Parallel()
	reg := provider.NewRegistry()
	failing := &provider.Stub{ID: "a", Err: errors.New("boom"), BillOnErr: true, Tokens: 50, CostEach: 0.01}
	ok := &provider.Stub{ID: "b", Reply: "recovered", Tokens: 100, CostEach: 0.002}
	reg.Register("a", failing)
	reg.Register("b", ok)

	ex := &Executor{Registry: reg}
	res := ex.Execute(context.Background(), models.RoutingDecision{Candidates: []string{"a", "b"}}, "prompt")

	if !res.Success || res.Provider != "b" {
		t.Fatalf("result: %+v", res)
	}
	// Billed-but-failed usage from the first candidate is folded in.
	if res.Tokens != 150 || res.Cost != 0.012 {
		t.Fatalf("usage: tokens=%d cost=%v", res.Tokens, res.Cost)
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("attempts: %d", len(res.Attempts))
	}
	if res.Attempts[0].Error == "" || res.Attempts[0].Cost != 0.01 {
		t.Fatalf("failed attempt audit: %+v", res.Attempts[0])
	}
	if res.Error != "" {
		t.Fatalf("successful result should not carry a top-level error: %q", res.Error)
	}
}

func TestExecute_exhaustedAggregatesAllFailures(t *testing.T) {
	t.Parallel()
	reg := provider.NewRegistry()
	a := &provider.Stub{ID: "a", Err: errors.New("first down")}
	b := &provider.Stub{ID: "b", Err: errors.New("second down"), BillOnErr: true, CostEach: 0.003, Tokens: 10}
	reg.Register("a", a)
	reg.Register("b", b)

	ex := &Executor{Registry: reg}
	res := ex.Execute(context.Background(), models.RoutingDecision{Candidates: []string{"a", "b"}}, "prompt")

	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "first down") || !strings.Contains(res.Error, "second down") {
		t.Fatalf("aggregated error: %q", res.Error)
	}
	if res.Cost != 0.003 || res.Tokens != 10 {
		t.Fatalf("billed partials: cost=%v tokens=%d", res.Cost, res.Tokens)
	}
	// Bounded: each candidate is tried exactly once.
	if a.Calls() != 1 || b.Calls() != 1 {
		t.Fatalf("calls: a=%d b=%d", a.Calls(), b.Calls())
	}
}

func TestExecute_missingAdapterRecorded(t *testing.T) {
	t.Parallel()
	reg := provider.NewRegistry()
	reg.Register("b", &provider.Stub{ID: "b", Reply: "ok"})

	ex := &Executor{Registry: reg}
	res := ex.Execute(context.Background(), models.RoutingDecision{Candidates: []string{"ghost", "b"}}, "prompt")

	if !res.Success || res.Provider != "b" {
		t.Fatalf("result: %+v", res)
	}
	if len(res.Attempts) != 2 || !strings.Contains(res.Attempts[0].Error, "not configured") {
		t.Fatalf("attempts: %+v", res.Attempts)
	}
}

func TestExecute_emptyCandidates(t *testing.T) {
	t.Parallel()
	ex := &Executor{Registry: provider.NewRegistry()}
	res := ex.Execute(context.Background(), models.RoutingDecision{}, "prompt")
	if res.Success || res.Error != "no provider candidates" {
		t.Fatalf("result: %+v", res)
	}
}

func TestExecute_perCandidateTimeout(t *testing.T) {
	t.Parallel()
	reg := provider.NewRegistry()
	slow := &provider.Stub{ID: "slow", Sleep: time.Second}
	fast := &provider.Stub{ID: "fast", Reply: "quick"}
	reg.Register("slow", slow)
	reg.Register("fast", fast)

	ex := &Executor{Registry: reg, CallTimeout: 20 * time.Millisecond}
	res := ex.Execute(context.Background(), models.RoutingDecision{Candidates: []string{"slow", "fast"}}, "prompt")

	if !res.Success || res.Provider != "fast" {
		t.Fatalf("result: %+v", res)
	}
	if !strings.Contains(res.Attempts[0].Error, "deadline") {
		t.Fatalf("timeout attempt: %+v", res.Attempts[0])
	}
}
