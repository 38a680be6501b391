package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{
		Timestamp: time.Now(),
		Decision:  DecisionLogin,
		Subject:   "u1",
		Allowed:   true,
	})
	sink.Emit(context.Background(), Event{
		Timestamp: time.Now(),
		Decision:  DecisionAuthorize,
		Subject:   "u1",
		Allowed:   false,
		Reason:    "insufficient role",
	})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var event Event
	if err := json.Unmarshal(lines[1], &event); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if event.Decision != DecisionAuthorize || event.Allowed {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestDispatcherForwardsToSink(t *testing.T) {
	sink := NewChannelSink(4)
	dispatcher := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)

	dispatcher.Emit(context.Background(), Event{Decision: DecisionLogout, TokenID: "jti-1", Allowed: true})

	select {
	case event := <-sink.Events():
		if event.TokenID != "jti-1" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}

	dispatcher.Close()
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), Event{Decision: DecisionLogin})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher should report zero drops")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := sinkFunc(func(context.Context, Event) { <-block })
	dispatcher := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the worker, second fills the buffer, third drops.
	for i := 0; i < 3; i++ {
		dispatcher.Emit(context.Background(), Event{Decision: DecisionLogin})
	}

	deadline := time.Now().Add(time.Second)
	for dispatcher.Dropped() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected at least one dropped event")
		}
		time.Sleep(time.Millisecond)
	}

	close(block)
	dispatcher.Close()
}

type sinkFunc func(context.Context, Event)

func (f sinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }
