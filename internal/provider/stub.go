package provider

import (
	"context"
	"sync/atomic"
	"time"
)

// Stub is a deterministic in-memory adapter used in tests and by doctor's
// dry-run mode. It produces a fixed reply without any network calls and can
// be told to fail, bill on failure, or sleep past a deadline.
type Stub struct {
	ID        string
	Reply     string
	Tokens    int64
	CostEach  float64       // cost reported per call (also on failure when BillOnErr)
	Err       error         // returned on every call when set
	Sleep     time.Duration // simulated latency; respects ctx cancellation
	BillOnErr bool

	calls atomic.Int64
}

func (s *Stub) Name() string {
	if s.ID != "" {
		return s.ID
	}
	return "stub"
}

// Calls returns how many times Execute ran.
func (s *Stub) Calls() int64 { return s.calls.Load() }

func (s *Stub) Execute(ctx context.Context, req Request) (Response, error) {
	s.calls.Add(1)
	start := time.Now()
	if s.Sleep > 0 {
		t := time.NewTimer(s.Sleep)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Response{Duration: time.Since(start)}, ctx.Err()
		case <-t.C:
		}
	}
	if s.Err != nil {
		resp := Response{Duration: time.Since(start)}
		if s.BillOnErr {
			resp.Tokens = s.Tokens
			resp.Cost = s.CostEach
		}
		return resp, s.Err
	}
	reply := s.Reply
	if reply == "" {
		reply = "stub: ok"
	}
	return Response{
		Content:  reply,
		Tokens:   s.Tokens,
		Cost:     s.CostEach,
		Duration: time.Since(start),
	}, nil
}
