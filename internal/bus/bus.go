package bus

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vrtelolleva/platform/internal/domain"
)

// Handler receives every published notification and is responsible for its
// own role filtering.
type Handler func(domain.Notification)

// Bus is a single-process broadcast channel for notifications. Publish
// invokes all currently registered handlers synchronously, in registration
// order. There is no queueing or replay: a notification published with no
// subscribers is lost.
type Bus struct {
	mu     sync.Mutex
	seq    uint64
	subs   []subscriber
	logger *slog.Logger
}

type subscriber struct {
	id      uint64
	handler Handler
}

func New(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing is idempotent and safe to call from inside a handler
// during a publish round; delivery to the other handlers in that round is
// unaffected.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	id := b.seq
	b.subs = append(b.subs, subscriber{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers n to every handler subscribed at the time of the call.
// A missing id is filled in with a generated one so callers cannot collide.
// A panicking handler does not prevent delivery to the rest.
func (b *Bus) Publish(n domain.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	b.mu.Lock()
	snapshot := make([]subscriber, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		b.deliver(s, n)
	}
}

func (b *Bus) deliver(s subscriber, n domain.Notification) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("notification handler panicked", "panic", r, "notification_id", n.ID, "title", n.Title)
		}
	}()
	s.handler(n)
}
