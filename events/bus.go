package events

import (
	"sync"
	"time"
)

// Handler consumes one event
type Handler func(Event)

type subscription struct {
	id      uint64
	name    Name // empty matches every event
	handler Handler
}

// Bus is an in-process publish/subscribe channel. Delivery is synchronous on
// the publishing goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for events named name and returns a function that
// removes the subscription.
func (b *Bus) Subscribe(name Name, h Handler) func() {
	return b.add(name, h)
}

// SubscribeAll registers h for every event
func (b *Bus) SubscribeAll(h Handler) func() {
	return b.add("", h)
}

// Once registers h for the next event named name only
func (b *Bus) Once(name Name, h Handler) {
	var (
		once  sync.Once
		unsub func()
	)
	unsub = b.add(name, func(e Event) {
		once.Do(func() {
			unsub()
			h(e)
		})
	})
}

func (b *Bus) add(name Name, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, name: name, handler: h})
	return func() { b.remove(id) }
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every matching subscriber. Subscriptions added or
// removed by a handler take effect from the next Publish.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.name == "" || s.name == e.Name {
			s.handler(e)
		}
	}
}

// Len returns the number of active subscriptions
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
