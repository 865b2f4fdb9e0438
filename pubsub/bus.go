// Package pubsub provides the in-process broadcast channel that carries
// change events from services to live subscribers, plus an optional Redis
// relay for multi-instance deployments.
package pubsub

import (
	"context"
	"sync"
)

// DefaultBuffer is the per-subscriber channel capacity used when no explicit
// size is configured.
const DefaultBuffer = 16

// Topic broadcasts one category of event. Every subscriber owns a buffered
// channel; delivery to a single subscriber preserves publish order. Publish
// never blocks: a subscriber whose buffer is full misses that event, which is
// acceptable because subscriptions are best-effort live notifications, not a
// source of truth.
type Topic[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	buffer int
	mirror func(T)
}

func NewTopic[T any](buffer int) *Topic[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Topic[T]{subs: make(map[chan T]struct{}), buffer: buffer}
}

// SetMirror registers a hook invoked after local delivery of every published
// event. The relay uses it to forward events to other instances.
func (t *Topic[T]) SetMirror(fn func(T)) {
	t.mu.Lock()
	t.mirror = fn
	t.mu.Unlock()
}

// Publish delivers ev to all current subscribers, then mirrors it if a
// mirror is set. The mirror runs outside the lock.
func (t *Topic[T]) Publish(ev T) {
	t.mu.Lock()
	for ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	mirror := t.mirror
	t.mu.Unlock()
	if mirror != nil {
		mirror(ev)
	}
}

// Inject delivers ev locally without mirroring. The relay uses it for events
// that arrived from another instance, so they are not echoed back out.
func (t *Topic[T]) Inject(ev T) {
	t.mu.Lock()
	for ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	t.mu.Unlock()
}

// Subscribe registers a listener whose lifetime is bound to ctx. The returned
// channel is deregistered and closed when ctx is cancelled, so publishes
// never iterate over stale listeners.
func (t *Topic[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, t.buffer)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()
	go func() {
		<-ctx.Done()
		t.mu.Lock()
		delete(t.subs, ch)
		close(ch)
		t.mu.Unlock()
	}()
	return ch
}

// Subscribers reports the number of registered listeners.
func (t *Topic[T]) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Filter forwards events from src for which pred is true. Filtering happens
// after receipt; the topic itself knows nothing about predicates. The
// returned channel closes when src closes or ctx is cancelled.
func Filter[T any](ctx context.Context, src <-chan T, pred func(T) bool) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-src:
				if !ok {
					return
				}
				if !pred(ev) {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
