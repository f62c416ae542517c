package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/keysforall/cart-service/internal/notify"
	"github.com/keysforall/cart-service/internal/storage"
)

// keyPrefix scopes cart values inside the shared storage namespace.
const keyPrefix = "cart:"

// StorageKey derives the durable storage key for a cart session. Every
// reader and writer of a session's cart must agree on this derivation.
func StorageKey(sessionID string) string {
	return keyPrefix + sessionID
}

// AckKind labels the user-facing acknowledgment emitted after the mutations
// that warrant one (add, remove, clear).
type AckKind string

const (
	AckAdded   AckKind = "added"
	AckRemoved AckKind = "removed"
	AckCleared AckKind = "cleared"
)

// Ack describes one acknowledgment event. Item is zero-valued for AckCleared.
type Ack struct {
	Kind AckKind
	Item LineItem
}

// Store owns one live cart State. All mutations go through the reducer; the
// resulting item list is persisted after every mutation and subscribers are
// notified with the new state. Persistence is best effort: a failed write is
// logged and the cart keeps working in memory for the rest of the session.
type Store struct {
	key      string
	storage  storage.Storage
	notifier notify.Notifier
	lg       *zap.Logger
	onAck    func(Ack)

	mu      sync.Mutex
	state   State
	version uint64
	subs    map[int]func(State)
	next    int

	// pmu serializes writes to storage. persisted tracks the newest version
	// written so a slow write can never clobber a newer one.
	pmu       sync.Mutex
	persisted uint64
}

// Option configures a Store.
type Option func(*Store)

// WithAck installs a best-effort acknowledgment hook (a toast, a metric).
// A panic inside the hook is recovered and logged; it can never fail or
// roll back the state transition that triggered it.
func WithAck(fn func(Ack)) Option {
	return func(s *Store) { s.onAck = fn }
}

// NewStore creates a store bound to one storage key and hydrates it.
// Hydration failure is silent and non-fatal: a missing value starts the
// cart empty, a corrupt value is logged and discarded.
func NewStore(ctx context.Context, key string, st storage.Storage, n notify.Notifier, lg *zap.Logger, opts ...Option) *Store {
	s := &Store{
		key:      key,
		storage:  st,
		notifier: n,
		lg:       lg,
		state:    Empty(),
		subs:     make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) {
	data, err := s.storage.Load(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.lg.Warn("cart hydration failed, starting empty", zap.String("key", s.key), zap.Error(err))
		}
		return
	}
	items, err := DecodeItems(data)
	if err != nil {
		s.lg.Warn("corrupt persisted cart discarded", zap.String("key", s.key), zap.Error(err))
		return
	}
	s.state = Reduce(s.state, LoadItems{Items: items})
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to run after every mutation with the new state.
// The returned cancel function removes the subscription.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// AddItem merges item into the cart (see AddItem action semantics).
func (s *Store) AddItem(ctx context.Context, item LineItem) State {
	st := s.apply(ctx, AddItem{Item: item}, true)
	s.ack(Ack{Kind: AckAdded, Item: item})
	return st
}

// RemoveItem deletes the line for the identity pair; absent pairs are a
// no-op.
func (s *Store) RemoveItem(ctx context.Context, productID int64, variantID string) State {
	st := s.apply(ctx, RemoveItem{ProductID: productID, VariantID: variantID}, true)
	s.ack(Ack{Kind: AckRemoved, Item: LineItem{ProductID: productID, VariantID: variantID}})
	return st
}

// UpdateQuantity sets a line's quantity; values <= 0 remove the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, variantID string, quantity int) State {
	return s.apply(ctx, UpdateQuantity{ProductID: productID, VariantID: variantID, Quantity: quantity}, true)
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) State {
	st := s.apply(ctx, Clear{}, true)
	s.ack(Ack{Kind: AckCleared})
	return st
}

// ToggleCart flips the slide-over flag. UI-only: the flag is never
// persisted, but subscribers still observe the transition.
func (s *Store) ToggleCart(ctx context.Context) State {
	return s.apply(ctx, ToggleOpen{}, false)
}

// OpenCart sets the slide-over flag.
func (s *Store) OpenCart(ctx context.Context) State {
	return s.apply(ctx, Open{}, false)
}

// CloseCart clears the slide-over flag.
func (s *Store) CloseCart(ctx context.Context) State {
	return s.apply(ctx, Close{}, false)
}

// apply runs the reducer, optionally persists the new item list, and fans
// the new state out to subscribers. Mutations on one store are serialized by
// the lock, so callers observe them in invocation order.
func (s *Store) apply(ctx context.Context, a Action, persist bool) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	st := s.state
	if persist {
		s.version++
	}
	v := s.version
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if persist {
		s.persist(ctx, st, v)
	}
	for _, fn := range fns {
		fn(st)
	}
	return st
}

// persist writes the item list and, on success, publishes the cross-context
// change signal. Neither failure propagates to the caller. Writes are
// serialized under pmu and tagged with the mutation's version: when two
// mutations race, the one that reaches storage second either carries the
// newer state or is dropped as stale, so durable storage always converges
// on the newest item list.
func (s *Store) persist(ctx context.Context, st State, v uint64) {
	s.pmu.Lock()
	defer s.pmu.Unlock()

	if v <= s.persisted {
		// A newer mutation already wrote its state.
		return
	}
	if err := s.storage.Save(ctx, s.key, EncodeItems(st.Items)); err != nil {
		s.lg.Warn("cart persist failed, continuing in memory", zap.String("key", s.key), zap.Error(err))
		return
	}
	s.persisted = v
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, s.key); err != nil {
		s.lg.Debug("cart change publish failed", zap.String("key", s.key), zap.Error(err))
	}
}

func (s *Store) ack(a Ack) {
	if s.onAck == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			s.lg.Warn("cart ack hook panicked", zap.Any("panic", rec))
		}
	}()
	s.onAck(a)
}
