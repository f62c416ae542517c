package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CancelledCallerDoesNotFailSharedQuote(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		_, _ = w.Write([]byte(`{"currency":"USD","rate":"12.30"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	items := []Item{{ProductID: 1, VariantID: "tshirt-m", Quantity: 2}}
	dest := Destination{Country: "US", PostalCode: "19010"}

	// First caller starts the upstream fetch and stalls inside it.
	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Estimate(ctx, items, dest)
		firstErr <- err
	}()
	<-entered

	// Second caller joins the in-flight quote for the same key.
	var est *Estimate
	var secondErr error
	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		est, secondErr = c.Estimate(context.Background(), items, dest)
	}()
	time.Sleep(10 * time.Millisecond)

	// Cancelling the first caller returns its own error promptly and must
	// not tear down the quote the second caller is waiting on.
	cancel()
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case <-secondDone:
	case <-time.After(time.Second):
		t.Fatal("surviving caller did not return")
	}
	require.NoError(t, secondErr)
	require.NotNil(t, est)
	assert.Equal(t, int64(1230), est.Minor)
	assert.Equal(t, int32(1), calls.Load(), "identical concurrent quotes should share one upstream call")
}

func TestClient_RateDecoding(t *testing.T) {
	minor, err := decodeRate([]byte(`{"currency":"USD","rate":"7.50"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(750), minor)

	_, err = decodeRate([]byte(`{"currency":"USD"}`))
	require.Error(t, err)

	_, err = decodeRate([]byte(`{"rate":"-1.00"}`))
	require.Error(t, err)
}
