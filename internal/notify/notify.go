// Package notify defines the change-notification channel carts broadcast on.
//
// The signal deliberately carries only the storage key, never the cart
// contents: observers re-read durable storage themselves, which is what
// keeps the weak cross-context consistency model honest (last write wins,
// readers always see what storage holds, not what a sender remembers).
package notify

import (
	"context"
	"sync"
)

// Notifier broadcasts "the value under key changed, re-read it" to observers
// in other contexts.
type Notifier interface {
	// Publish signals that the value under key changed. Best effort: callers
	// must tolerate and log failures without rolling anything back.
	Publish(ctx context.Context, key string) error
	// Subscribe registers fn to run on every published key. The returned
	// cancel function removes the subscription.
	Subscribe(fn func(key string)) (cancel func())
}

// Local is an in-process Notifier: synchronous fanout to subscribers in the
// same process. Production cross-process notification is provided by the
// redisstore adapter; Local serves tests and same-process observers.
type Local struct {
	mu   sync.Mutex
	subs map[int]func(string)
	next int
}

var _ Notifier = (*Local)(nil)

// NewLocal returns an empty in-process notifier.
func NewLocal() *Local {
	return &Local{subs: make(map[int]func(string))}
}

func (l *Local) Publish(_ context.Context, key string) error {
	l.mu.Lock()
	fns := make([]func(string), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
	return nil
}

func (l *Local) Subscribe(fn func(key string)) (cancel func()) {
	l.mu.Lock()
	id := l.next
	l.next++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}
