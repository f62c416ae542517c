// Package redisstore backs the cart storage and change-notification ports
// with Redis: plain GET/SET for the persisted item lists, pub/sub for the
// cross-context "re-read your key" signal.
package redisstore

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/keysforall/cart-service/internal/notify"
	"github.com/keysforall/cart-service/internal/storage"
)

// changeChannel carries changed storage keys to every subscribed context.
const changeChannel = "cart:changed"

var (
	_ storage.Storage = (*Store)(nil)
	_ notify.Notifier = (*Store)(nil)
)

// Store implements both the Storage and Notifier ports over one Redis
// client. Carts from different sessions share the client but live under
// distinct keys; last write per key wins, there is no cross-writer locking.
type Store struct {
	rdb *redis.Client
	lg  *zap.Logger
}

// New wraps an existing Redis client.
func New(rdb *redis.Client, lg *zap.Logger) *Store {
	return &Store{rdb: rdb, lg: lg}
}

// Open connects to the given Redis URL and pings it.
func Open(ctx context.Context, url string, lg *zap.Logger) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return New(rdb, lg), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping reports connectivity; used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrapf(err, "load %q", key)
	}
	return v, nil
}

func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "save %q", key)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}

// Publish broadcasts the changed key on the shared channel.
func (s *Store) Publish(ctx context.Context, key string) error {
	if err := s.rdb.Publish(ctx, changeChannel, key).Err(); err != nil {
		return errors.Wrap(err, "publish change")
	}
	return nil
}

// Subscribe delivers every changed key to fn until the returned cancel
// function runs. Delivery is at-most-once per message per subscriber;
// observers that miss a signal converge on the next one because they
// re-read storage rather than trusting payloads.
func (s *Store) Subscribe(fn func(key string)) (cancel func()) {
	ctx, stop := context.WithCancel(context.Background())
	ps := s.rdb.Subscribe(ctx, changeChannel)

	go func() {
		for msg := range ps.Channel() {
			fn(msg.Payload)
		}
	}()

	return func() {
		stop()
		if err := ps.Close(); err != nil {
			s.lg.Debug("close subscription", zap.Error(err))
		}
	}
}
