package hub

import (
	"context"
	"testing"
	"time"
)

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := New("test", opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func testClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Message, buffer)}
	h.register <- c
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func waitCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", want, h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastFanOut(t *testing.T) {
	h := startHub(t)
	a := testClient(h, 4)
	b := testClient(h, 4)
	waitCount(t, h, 2)

	if err := h.BroadcastJSON(map[string]bool{"recording": true}); err != nil {
		t.Fatalf("BroadcastJSON failed: %v", err)
	}
	h.BroadcastBinary([]byte{0xff, 0xd8})

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		if msg.Type != JSONMessage || string(msg.Data) != `{"recording":true}` {
			t.Errorf("unexpected first message: %+v", msg)
		}
		msg = receive(t, c)
		if msg.Type != BinaryMessage || len(msg.Data) != 2 {
			t.Errorf("unexpected second message: %+v", msg)
		}
	}
}

func TestReplayLastMessage(t *testing.T) {
	h := startHub(t, WithReplay())

	if _, ok := h.Last(); ok {
		t.Error("expected no last message")
	}

	h.BroadcastJSON("first")
	h.BroadcastJSON("second")

	late := testClient(h, 4)
	msg := receive(t, late)
	if string(msg.Data) != `"second"` {
		t.Errorf("expected replay of latest message, got %s", msg.Data)
	}

	last, ok := h.Last()
	if !ok || string(last.Data) != `"second"` {
		t.Errorf("unexpected Last: %s", last.Data)
	}
}

func TestNoReplayByDefault(t *testing.T) {
	h := startHub(t)
	h.BroadcastJSON("before")
	// Let the hub drain the broadcast with no clients attached.
	time.Sleep(20 * time.Millisecond)

	c := testClient(h, 4)
	h.BroadcastJSON("after")

	if msg := receive(t, c); string(msg.Data) != `"after"` {
		t.Errorf("expected only new messages, got %s", msg.Data)
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := startHub(t)
	slow := testClient(h, 1)
	waitCount(t, h, 1)

	h.BroadcastJSON(1)
	h.BroadcastJSON(2)

	waitCount(t, h, 0)

	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("expected slow client channel to be closed")
	}
}

func TestUnregister(t *testing.T) {
	h := startHub(t)
	c := testClient(h, 1)
	waitCount(t, h, 1)

	h.unregister <- c
	waitCount(t, h, 0)

	if _, ok := <-c.send; ok {
		t.Error("expected channel closed after unregister")
	}
}

func TestStop(t *testing.T) {
	h := New("stop")
	done := make(chan struct{})
	go func() {
		h.Run(context.Background())
		close(done)
	}()

	c := testClient(h, 1)
	h.Stop()
	h.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if _, ok := <-c.send; ok {
		t.Error("expected client closed on stop")
	}
	if NewClient(h, nil) != nil {
		t.Error("expected nil client from stopped hub")
	}
	if h.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", h.ClientCount())
	}
}
