package shipping

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingEstimator parks every Estimate call until the test releases it.
type blockingEstimator struct {
	mu    sync.Mutex
	calls []*estimateCall
}

type estimateCall struct {
	dest    Destination
	ctx     context.Context
	release chan struct{}
	result  Estimate
	err     error
}

func (b *blockingEstimator) Estimate(ctx context.Context, _ []Item, dest Destination) (*Estimate, error) {
	call := &estimateCall{dest: dest, ctx: ctx, release: make(chan struct{})}
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()

	select {
	case <-call.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if call.err != nil {
		return nil, call.err
	}
	est := call.result
	return &est, nil
}

func (b *blockingEstimator) call(t *testing.T, i int) *estimateCall {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		b.mu.Lock()
		if len(b.calls) > i {
			c := b.calls[i]
			b.mu.Unlock()
			return c
		}
		b.mu.Unlock()
		select {
		case <-deadline:
			t.Fatalf("estimate call %d never started", i)
		case <-time.After(time.Millisecond):
		}
	}
}

func testItems() []Item {
	return []Item{{ProductID: 1, VariantID: "tshirt-m", Quantity: 1}}
}

func TestTracker_AppliesResult(t *testing.T) {
	est := &blockingEstimator{}
	tr := NewTracker(est)

	done := tr.Request(context.Background(), testItems(), Destination{Country: "US", PostalCode: "10001"})

	// Unknown while in flight.
	assert.Nil(t, tr.Latest().Minor)

	call := est.call(t, 0)
	call.result = Estimate{Minor: 750}
	close(call.release)
	<-done

	res := tr.Latest()
	require.NotNil(t, res.Minor)
	assert.Equal(t, int64(750), *res.Minor)
	assert.Equal(t, "10001", res.Destination.PostalCode)
}

func TestTracker_ZeroQuoteIsConfirmedNotUnknown(t *testing.T) {
	est := &blockingEstimator{}
	tr := NewTracker(est)

	done := tr.Request(context.Background(), testItems(), Destination{Country: "US", PostalCode: "10001"})
	call := est.call(t, 0)
	call.result = Estimate{Minor: 0}
	close(call.release)
	<-done

	res := tr.Latest()
	require.NotNil(t, res.Minor)
	assert.Equal(t, int64(0), *res.Minor)
}

func TestTracker_StaleResultDiscarded(t *testing.T) {
	est := &blockingEstimator{}
	tr := NewTracker(est)
	ctx := context.Background()

	doneA := tr.Request(ctx, testItems(), Destination{Country: "US", PostalCode: "10001"})
	callA := est.call(t, 0)

	doneB := tr.Request(ctx, testItems(), Destination{Country: "US", PostalCode: "94107"})
	callB := est.call(t, 1)

	// Resolve B first, then let A's slow response arrive late.
	callB.result = Estimate{Minor: 1200}
	close(callB.release)
	<-doneB

	callA.result = Estimate{Minor: 9900}
	close(callA.release)
	<-doneA

	res := tr.Latest()
	require.NotNil(t, res.Minor)
	assert.Equal(t, int64(1200), *res.Minor, "stale response must never overwrite the newer one")
	assert.Equal(t, "94107", res.Destination.PostalCode)
}

func TestTracker_SupersededRequestIsCancelled(t *testing.T) {
	est := &blockingEstimator{}
	tr := NewTracker(est)
	ctx := context.Background()

	tr.Request(ctx, testItems(), Destination{Country: "US", PostalCode: "10001"})
	callA := est.call(t, 0)

	tr.Request(ctx, testItems(), Destination{Country: "US", PostalCode: "94107"})

	select {
	case <-callA.ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("first request's context was not cancelled")
	}
}

func TestTracker_ErrorVisibleOnlyForNewestRequest(t *testing.T) {
	est := &blockingEstimator{}
	tr := NewTracker(est)
	ctx := context.Background()

	done := tr.Request(ctx, testItems(), Destination{Country: "US", PostalCode: "10001"})
	call := est.call(t, 0)
	call.err = errors.New("provider down")
	close(call.release)
	<-done

	res := tr.Latest()
	assert.Nil(t, res.Minor)
	require.Error(t, res.Err)

	// A new request clears the old error while in flight.
	tr.Request(ctx, testItems(), Destination{Country: "US", PostalCode: "94107"})
	assert.NoError(t, tr.Latest().Err)
}

func TestDecodeRate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int64
		wantErr bool
	}{
		{name: "plain", body: `{"currency":"USD","rate":"12.30"}`, want: 1230},
		{name: "free", body: `{"rate":"0"}`, want: 0},
		{name: "missing", body: `{"currency":"USD"}`, wantErr: true},
		{name: "garbage", body: `{"rate":"soon"}`, wantErr: true},
		{name: "negative", body: `{"rate":"-4.00"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeRate([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteKey_OrderInsensitive(t *testing.T) {
	dest := Destination{Country: "US", PostalCode: "10001"}
	a := []Item{{ProductID: 1, VariantID: "a", Quantity: 1}, {ProductID: 2, VariantID: "b", Quantity: 2}}
	b := []Item{{ProductID: 2, VariantID: "b", Quantity: 2}, {ProductID: 1, VariantID: "a", Quantity: 1}}

	assert.Equal(t, quoteKey(a, dest), quoteKey(b, dest))
	assert.NotEqual(t, quoteKey(a, dest), quoteKey(a, Destination{Country: "US", PostalCode: "94107"}))
}
