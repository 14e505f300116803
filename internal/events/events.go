// Package events describes the domain events emitted after committed
// workflow steps and the publishers that deliver them.
package events

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Type names an event.
type Type string

const (
	OrderConfirmed Type = "order.confirmed"
	OrderCancelled Type = "order.cancelled"
	InvoiceCreated Type = "invoice.created"
	InvoicePosted  Type = "invoice.posted"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "salescore.events"

// Event is one committed change. Aggregate and AggregateID identify the
// entity the event is about and form the partition key.
type Event struct {
	Type        Type           `json:"event_type"`
	Aggregate   string         `json:"aggregate"`
	AggregateID int            `json:"aggregate_id"`
	CustomerID  int            `json:"customer_id,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Key returns the partition key, e.g. "sale_order:7".
func (e Event) Key() string {
	return e.Aggregate + ":" + strconv.Itoa(e.AggregateID)
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop drops every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned by every Publish after recording.
	Err error
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
