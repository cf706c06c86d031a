// Package events emits CloudEvents-shaped structured events for every
// distributor state transition, for consumption by downstream indexers.
// Events are a log-only side effect: no program state ever depends on an
// event having been observed.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventEmitter is the interface distributor.Program depends on to publish
// events. Both the in-memory EventBus and the durable PubSubEventBus
// satisfy it.
type EventEmitter interface {
	Emit(eventType, source, subject string, data map[string]interface{})
}

// CloudEvent is the CloudEvents 1.0 envelope this module uses for every
// event, identifying the emitting distributor shard as its source.
type CloudEvent struct {
	SpecVersion string                 `json:"specversion"`
	Type        string                 `json:"type"`
	Source      string                 `json:"source"`
	ID          string                 `json:"id"`
	Time        time.Time              `json:"time"`
	Subject     string                 `json:"subject,omitempty"`
	Data        map[string]interface{} `json:"data"`
}

// NewCloudEvent creates a CloudEvents 1.0 compliant event. source
// identifies the emitting distributor, e.g. "distributor/<mint>/42".
func NewCloudEvent(eventType, source, subject string, data map[string]interface{}) *CloudEvent {
	return &CloudEvent{
		SpecVersion: "1.0",
		Type:        eventType,
		Source:      source,
		ID:          uuid.NewString(),
		Time:        time.Now(),
		Subject:     subject,
		Data:        data,
	}
}

// JSON serializes the event.
func (ce *CloudEvent) JSON() ([]byte, error) {
	return json.Marshal(ce)
}

// SSEFormat returns the event in Server-Sent Events format.
func (ce *CloudEvent) SSEFormat() ([]byte, error) {
	data, err := json.Marshal(ce)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\nid: %s\n\n", ce.Type, data, ce.ID)), nil
}

// subscription pairs a delivery channel with an optional subject filter.
// A claimant-scoped subscription (subject set) only ever receives events
// about that one claimant, so a WebSocket connection watching claimant X
// never wakes up for claimant Y's claim — the filtering that matters for
// C7 happens at the bus, not in every connection's read loop.
type subscription struct {
	ch      chan *CloudEvent
	subject string
}

// EventBus is an in-process pub/sub event bus. Subscribers receive
// CloudEvents in real time — used to back the eligibility WebSocket push
// (C7) without waiting on the durable Pub/Sub path.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription // eventType -> subscriptions
	allSubs     []*subscription             // subscriptions to all event types
	logger      *log.Logger
	bufferSize  int
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]*subscription),
		allSubs:     make([]*subscription, 0),
		logger:      log.New(log.Writer(), "[EVENTS] ", log.LstdFlags),
		bufferSize:  100,
	}
}

// Subscribe creates a channel that receives events of specific types,
// regardless of subject. Pass empty eventTypes to receive ALL events.
func (eb *EventBus) Subscribe(eventTypes ...string) chan *CloudEvent {
	return eb.subscribe("", eventTypes...)
}

// SubscribeSubject creates a channel scoped to one subject (typically a
// claimant address) and a set of event types. Use this over Subscribe
// whenever the caller only cares about one claimant — it moves the
// filtering work into Publish's single lock instead of every subscriber's
// read loop.
func (eb *EventBus) SubscribeSubject(subject string, eventTypes ...string) chan *CloudEvent {
	return eb.subscribe(subject, eventTypes...)
}

func (eb *EventBus) subscribe(subject string, eventTypes ...string) chan *CloudEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan *CloudEvent, eb.bufferSize)
	sub := &subscription{ch: ch, subject: subject}

	if len(eventTypes) == 0 {
		eb.allSubs = append(eb.allSubs, sub)
	} else {
		for _, et := range eventTypes {
			eb.subscribers[et] = append(eb.subscribers[et], sub)
		}
	}

	return ch
}

// Unsubscribe removes a subscription channel.
func (eb *EventBus) Unsubscribe(ch chan *CloudEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for et, subs := range eb.subscribers {
		filtered := make([]*subscription, 0, len(subs))
		for _, s := range subs {
			if s.ch != ch {
				filtered = append(filtered, s)
			}
		}
		eb.subscribers[et] = filtered
	}

	filtered := make([]*subscription, 0, len(eb.allSubs))
	for _, s := range eb.allSubs {
		if s.ch != ch {
			filtered = append(filtered, s)
		}
	}
	eb.allSubs = filtered

	close(ch)
}

// Publish sends an event to all matching subscribers, skipping any whose
// subject filter doesn't match. A full subscriber channel is skipped
// rather than allowed to block the emitting call.
func (eb *EventBus) Publish(event *CloudEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	deliver := func(s *subscription) {
		if s.subject != "" && s.subject != event.Subject {
			return
		}
		select {
		case s.ch <- event:
		default:
			eb.logger.Printf("subscriber channel full, dropping event %s (%s)", event.ID, event.Type)
		}
	}

	for _, s := range eb.subscribers[event.Type] {
		deliver(s)
	}
	for _, s := range eb.allSubs {
		deliver(s)
	}
}

// Emit is a convenience method to create and publish an event.
func (eb *EventBus) Emit(eventType, source, subject string, data map[string]interface{}) {
	eb.Publish(NewCloudEvent(eventType, source, subject, data))
}

// SubscriberCount returns the total number of active subscribers.
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	count := len(eb.allSubs)
	for _, subs := range eb.subscribers {
		count += len(subs)
	}
	return count
}
