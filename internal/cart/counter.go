package cart

import (
	"context"
	"sync/atomic"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/keysforall/cart-service/internal/notify"
	"github.com/keysforall/cart-service/internal/storage"
)

// Counter mirrors the item count of one persisted cart without sharing the
// owning Store's memory. It re-reads durable storage whenever the change
// channel signals its key, so it can transiently disagree with the writer
// until the signal arrives; that is the accepted consistency model.
//
// It is the badge-in-another-tab of this system: same storage key, fully
// independent read path.
type Counter struct {
	key     string
	storage storage.Storage
	lg      *zap.Logger

	count  atomic.Int64
	cancel func()
}

// NewCounter starts observing the cart under key. Close releases the
// subscription.
func NewCounter(ctx context.Context, key string, st storage.Storage, n notify.Notifier, lg *zap.Logger) *Counter {
	c := &Counter{key: key, storage: st, lg: lg}
	c.cancel = n.Subscribe(func(changed string) {
		if changed == c.key {
			c.refresh(context.Background())
		}
	})
	c.refresh(ctx)
	return c
}

// Count returns the last observed total item count.
func (c *Counter) Count() int {
	return int(c.count.Load())
}

// Close stops observing.
func (c *Counter) Close() {
	c.cancel()
}

func (c *Counter) refresh(ctx context.Context) {
	data, err := c.storage.Load(ctx, c.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.count.Store(0)
			return
		}
		c.lg.Warn("counter re-read failed, keeping last value", zap.String("key", c.key), zap.Error(err))
		return
	}
	items, err := DecodeItems(data)
	if err != nil {
		c.lg.Warn("counter found corrupt cart, keeping last value", zap.String("key", c.key), zap.Error(err))
		return
	}
	n, _ := projectTotals(items)
	c.count.Store(int64(n))
}
