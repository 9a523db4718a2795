package events

import (
	"sync"

	"github.com/rs/zerolog"
)

type subscription struct {
	ch    chan Event
	types map[EventType]bool
}

func (s *subscription) wants(t EventType) bool {
	return len(s.types) == 0 || s.types[t]
}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	log    zerolog.Logger
}

// NewBus creates an event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
		log:  log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers for the given event types, or all types when none are
// given. The returned function unsubscribes and closes the channel.
func (b *Bus) Subscribe(buffer int, types ...EventType) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &subscription{ch: make(chan Event, buffer), types: make(map[EventType]bool, len(types))}
	for _, t := range types {
		sub.types[t] = true
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Publish delivers event to every interested subscriber.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.log.Warn().Str("event_type", string(event.Type)).Msg("Subscriber buffer full, event dropped")
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
