// Package bus provides the in-process pub/sub channel between the
// watcher and the triage engine. Delivery is synchronous and
// fire-and-forget: events published with no subscriber are dropped.
package bus

import (
	"sync"

	"github.com/codefuturist/mailwatch/internal/model"
)

// Handler consumes one new-message event.
type Handler func(model.NewMessageEvent)

// Bus is a typed publish/subscribe registry for new-message events.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]Handler
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers a handler and returns a token for Unsubscribe.
func (b *Bus) Subscribe(h Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	b.subs[b.next] = h
	return b.next
}

// Unsubscribe removes a previously registered handler. Unknown tokens
// are ignored.
func (b *Bus) Unsubscribe(token int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, token)
}

// Publish delivers the event synchronously to every subscriber, in
// registration order for a single call. If no subscriber is attached
// the event is dropped.
func (b *Bus) Publish(ev model.NewMessageEvent) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs))
	for i := 1; i <= b.next; i++ {
		if h, ok := b.subs[i]; ok {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
