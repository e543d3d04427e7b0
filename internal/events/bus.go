// Package events carries streak notifications from the streak core to
// whatever UI layer is listening.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Detail is the plain-data payload of an event. Only the fields listed in
// PayloadFields for the event's type are set.
type Detail struct {
	Milestone     int `json:"milestone,omitempty"`
	CurrentStreak int `json:"currentStreak,omitempty"`
	LongestStreak int `json:"longestStreak,omitempty"`
}

// Event is one published notification.
type Event struct {
	ID     string    `json:"id"`
	Type   Type      `json:"type"`
	Key    string    `json:"key"`
	Time   time.Time `json:"time"`
	Detail Detail    `json:"detail"`
}

// Handler receives published events.
type Handler func(Event)

// Publisher is the side of the bus the streak core depends on.
type Publisher interface {
	Publish(e Event)
}

type subscription struct {
	id      int
	types   map[Type]bool // nil means every type
	handler Handler
}

// Bus is a synchronous in-process observer list. Handlers run on the
// publishing goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for the given types (all types when none are given)
// and returns a function that removes the subscription.
func (b *Bus) Subscribe(h Handler, types ...Type) func() {
	var filter map[Type]bool
	if len(types) > 0 {
		filter = make(map[Type]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, types: filter, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish stamps e with an ID and time if missing and delivers it.
// A handler may subscribe or unsubscribe without deadlocking the bus.
func (b *Bus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.types == nil || s.types[e.Type] {
			s.handler(e)
		}
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
