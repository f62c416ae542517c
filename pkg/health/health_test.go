package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error {
		return nil
	}
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error {
		return errors.New(msg)
	}
}

func driveToFailure(c *check) {
	ctx := context.Background()
	for range failureThreshold {
		c.run(ctx)
	}
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("check1", time.Second, passingCheck())
	h.AddLivenessCheck("check2", time.Second, passingCheck())

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestLiveEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.AddLivenessCheck("redis", time.Second, failingCheck("connection refused"))

	driveToFailure(h.liveness[0])

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["redis"])
}

func TestFailureThreshold_SingleFailureDoesNotFlip(t *testing.T) {
	h := New()
	h.AddLivenessCheck("flaky", time.Second, failingCheck("timeout"))

	h.liveness[0].run(context.Background())

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery_OneSuccessRestoresHealth(t *testing.T) {
	fail := true
	h := New()
	h.AddLivenessCheck("db", time.Second, func(_ context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	})

	driveToFailure(h.liveness[0])
	require.False(t, h.liveness[0].healthy.Load())

	fail = false
	h.liveness[0].run(context.Background())
	assert.True(t, h.liveness[0].healthy.Load())
}

func TestReadyEndpoint_NotReadyUntilMarked(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passingCheck())

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, h.IsReady())

	h.SetReady(true)

	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, h.IsReady())
}

func TestIsReady_FailingReadinessCheck(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, failingCheck("refused"))
	h.SetReady(true)

	require.True(t, h.IsReady())
	driveToFailure(h.readiness[0])
	assert.False(t, h.IsReady())
}

func TestStartStop(t *testing.T) {
	ran := make(chan struct{}, 1)
	h := New()
	h.AddLivenessCheck("tick", time.Second, func(_ context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	defer h.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("check never ran")
	}
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(_ context.Context) error { return s.err }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck(stubPinger{})(context.Background()))
	assert.Error(t, PingCheck(stubPinger{err: errors.New("down")})(context.Background()))
}

func TestDeadlineCheck(t *testing.T) {
	slow := func(_ context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	}
	assert.Error(t, DeadlineCheck(time.Millisecond, slow)(context.Background()))
	assert.NoError(t, DeadlineCheck(time.Second, passingCheck())(context.Background()))
}
