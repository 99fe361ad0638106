package httpapi

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSSEHub_publishReachesSubscribers(t *testing.T) {
	t.Parallel()
	hub := NewSSEHub()
	a := hub.Subscribe()
	b := hub.Subscribe()
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.PublishJSON(map[string]string{"type": "run_started"})

	for _, ch := range []chan []byte{a, b} {
		select {
		case msg := <-ch:
			if !strings.Contains(string(msg), "run_started") {
				t.Fatalf("message: %s", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the event")
		}
	}
}

func TestSSEHub_slowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()
	hub := NewSSEHub()
	slow := hub.Subscribe()
	defer hub.Unsubscribe(slow)

	// Overflow the buffer; publishes must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			hub.PublishJSON(map[string]int{"n": i})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestSSEHub_unsubscribeIsIdempotent(t *testing.T) {
	t.Parallel()
	hub := NewSSEHub()
	ch := hub.Subscribe()
	hub.Unsubscribe(ch)
	hub.Unsubscribe(ch) // second call must not panic on a closed channel
	hub.PublishJSON(map[string]string{"type": "noop"})
}

func TestSSEHandler_streamsEvents(t *testing.T) {
	t.Parallel()
	hub := NewSSEHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if !strings.Contains(line, `"type":"connected"`) {
		t.Fatalf("greeting: %q", line)
	}

	// The handler subscribes before writing the greeting, so the event
	// published now is guaranteed to be delivered.
	hub.PublishJSON(map[string]string{"type": "task_completed", "role": "Researcher"})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		line, err = r.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		if strings.Contains(line, "task_completed") {
			return
		}
	}
	t.Fatal("published event never arrived")
}
