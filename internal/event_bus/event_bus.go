package event_bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Topic identifies a kind of message.
type Topic string

// Message is the envelope delivered to subscribers. Payload is kept as any so
// different payload types can share one bus.
type Message struct {
	ctx       context.Context
	Topic     Topic
	Timestamp time.Time
	Payload   any
}

func NewMessage(ctx context.Context, topic Topic, payload any) Message {
	return Message{
		ctx:       ctx,
		Topic:     topic,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// Context returns the context the message was published with.
func (m Message) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

// MessageT is a typed envelope used by typed subscribers.
type MessageT[T any] struct {
	ctx       context.Context
	Topic     Topic
	Timestamp time.Time
	Payload   T
}

func (m MessageT[T]) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

type subscriber struct {
	id uint64
	h  func(Message) error
}

// EventBus is a synchronous dispatcher. Subscribers of a topic run in
// registration order inside Publish.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[Topic][]subscriber
	nextID      uint64
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[Topic][]subscriber),
	}
}

// Subscribe registers h for topic and returns a function removing it.
func (eb *EventBus) Subscribe(topic Topic, h func(Message) error) (unsubscribe func()) {
	eb.mu.Lock()
	eb.nextID++
	id := eb.nextID
	eb.subscribers[topic] = append(eb.subscribers[topic], subscriber{id: id, h: h})
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()

		subs := eb.subscribers[topic]
		for i, s := range subs {
			if s.id == id {
				eb.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(eb.subscribers[topic]) == 0 {
			delete(eb.subscribers, topic)
		}
	}
}

// SubscribeTyped registers a handler for payloads of type T. Messages whose
// payload is not a T are skipped. It is a free function because methods
// cannot declare type parameters.
func SubscribeTyped[T any](eb *EventBus, topic Topic, h func(MessageT[T]) error) (unsubscribe func()) {
	wrapper := func(m Message) error {
		payload, ok := m.Payload.(T)
		if !ok {
			log.Debugf("EventBus: payload type mismatch for %s: expected %T, got %T", topic, *new(T), m.Payload)
			return nil
		}
		return h(MessageT[T]{
			ctx:       m.ctx,
			Topic:     m.Topic,
			Timestamp: m.Timestamp,
			Payload:   payload,
		})
	}
	return eb.Subscribe(topic, wrapper)
}

// Publish delivers m to every subscriber of m.Topic. Subscriber errors and
// panics are collected and returned together; remaining subscribers still run
// unless the message context is cancelled.
func (eb *EventBus) Publish(m Message) error {
	if err := m.Context().Err(); err != nil {
		return fmt.Errorf("message %s: context cancelled before publish: %w", m.Topic, err)
	}

	eb.mu.RLock()
	subs := make([]subscriber, len(eb.subscribers[m.Topic]))
	copy(subs, eb.subscribers[m.Topic])
	eb.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := m.Context().Err(); err != nil {
			errs = append(errs, fmt.Errorf("context cancelled during dispatch: %w", err))
			break
		}

		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("subscriber %d panicked on %s: %v", s.id, m.Topic, r)
				}
			}()
			return s.h(m)
		}()

		if err != nil {
			log.Errorf("EventBus: subscriber %d failed on %s: %v", s.id, m.Topic, err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("message %s: %w", m.Topic, errors.Join(errs...))
	}
	return nil
}
