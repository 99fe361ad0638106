package provider

import (
	"context"
	"errors"
	"testing"
)

func TestRatePer1K(t *testing.T) {
	t.Parallel()
	if got := RatePer1K(LocalMistral); got != 0 {
		t.Fatalf("local rate: got %v, want 0", got)
	}
	if got := RatePer1K(OpenAIGPT4); got != 0.03 {
		t.Fatalf("gpt-4 rate: got %v", got)
	}
	if got := RatePer1K(OpenAIGPT35); got != 0.0015 {
		t.Fatalf("gpt-3.5 rate: got %v", got)
	}
	if got := RatePer1K(AnthropicHaiku); got != 0.0008 {
		t.Fatalf("haiku rate: got %v", got)
	}
	if got := RatePer1K("unknown"); got != 0 {
		t.Fatalf("unknown rate: got %v", got)
	}
}

func TestModel(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		LocalMistral:   "mistral:7b-instruct",
		OpenAIGPT4:     "gpt-4",
		OpenAIGPT35:    "gpt-3.5-turbo",
		AnthropicHaiku: "claude-3-haiku-20240307",
		"unknown":      "",
	}
	for id, want := range cases {
		if got := Model(id); got != want {
			t.Fatalf("Model(%s): got %q, want %q", id, got, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	if reg.Available(LocalMistral) {
		t.Fatal("empty registry reports availability")
	}
	stub := &Stub{ID: "s"}
	reg.Register(LocalMistral, stub)
	if !reg.Available(LocalMistral) || reg.Get(LocalMistral) != Adapter(stub) {
		t.Fatal("registered adapter not resolvable")
	}
	ids := reg.IDs()
	if len(ids) != 1 || ids[0] != LocalMistral {
		t.Fatalf("IDs: got %v", ids)
	}
}

func TestWithBreaker_passesThrough(t *testing.T) {
	t.Parallel()
	stub := &Stub{ID: "s", Reply: "hi", Tokens: 5, CostEach: 0.001}
	a := WithBreaker(stub)
	if a.Name() != "s" {
		t.Fatalf("name: got %q", a.Name())
	}
	resp, err := a.Execute(context.Background(), Request{Prompt: "p"})
	if err != nil || resp.Content != "hi" || resp.Tokens != 5 {
		t.Fatalf("response: %+v, %v", resp, err)
	}
}

func TestWithBreaker_opensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	stub := &Stub{ID: "s", Err: errors.New("down")}
	a := WithBreaker(stub)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := a.Execute(ctx, Request{Prompt: "p"}); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	// The breaker is now open; the backend is no longer reached.
	before := stub.Calls()
	if _, err := a.Execute(ctx, Request{Prompt: "p"}); err == nil {
		t.Fatal("open breaker should fail fast")
	}
	if stub.Calls() != before {
		t.Fatalf("backend called while breaker open: %d -> %d", before, stub.Calls())
	}
}
