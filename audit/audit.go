// Package audit emits authentication and authorization decisions to an
// external observability collaborator. The core never persists these events
// itself; it hands them to a pluggable Sink, optionally through an
// asynchronous buffered Dispatcher so emission never blocks a request path.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Decision names for Event.Decision.
const (
	DecisionLogin     = "login"
	DecisionRefresh   = "refresh"
	DecisionLogout    = "logout"
	DecisionResolve   = "resolve_principal"
	DecisionAuthorize = "authorize"
)

// Event is one auth decision. Credential material never appears in events;
// only the opaque token identifier does.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Decision  string    `json:"decision"`
	Subject   string    `json:"subject,omitempty"`
	ClientKey string    `json:"client_key,omitempty"`
	TokenID   string    `json:"token_id,omitempty"`
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason,omitempty"`
}

// Sink receives emitted decisions.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops all decisions.
type NoOpSink struct{}

// Emit implements Sink.
func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink forwards decisions into a buffered channel, for collaborators
// that consume them as a stream.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

// Emit implements Sink. It blocks until the event is accepted or ctx ends.
func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the stream for the consuming collaborator.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a JSONWriterSink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

// Emit implements Sink.
func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
