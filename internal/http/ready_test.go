package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadyCheck_NotStarted_SkipsPing(t *testing.T) {
	t.Parallel()

	var pings atomic.Int32
	ready := ReadyCheck(func() bool { return false }, func(context.Context) error {
		pings.Add(1)
		return nil
	}, time.Hour, time.Second)

	require.False(t, ready())
	require.Zero(t, pings.Load())
}

func TestReadyCheck_CachesPingResult(t *testing.T) {
	t.Parallel()

	var pings atomic.Int32
	ready := ReadyCheck(func() bool { return true }, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		require.True(t, ok)
		pings.Add(1)
		return nil
	}, time.Hour, time.Second)

	require.True(t, ready())
	require.True(t, ready())
	require.Equal(t, int32(1), pings.Load())
}

func TestReadyCheck_PingFailure(t *testing.T) {
	t.Parallel()

	var down atomic.Bool
	down.Store(true)
	ready := ReadyCheck(func() bool { return true }, func(context.Context) error {
		if down.Load() {
			return errors.New("db down")
		}
		return nil
	}, 0, time.Second)

	require.False(t, ready())

	down.Store(false)
	require.True(t, ready())
}

func TestRouter_HealthzReflectsStorePing(t *testing.T) {
	var down atomic.Bool
	c := apiClient{t: t, srv: newTestServer(t, Options{
		Ready: ReadyCheck(func() bool { return true }, func(context.Context) error {
			if down.Load() {
				return errors.New("db down")
			}
			return nil
		}, 0, time.Second),
	})}

	code, _ := c.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)

	down.Store(true)
	code, _ = c.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, code)
}
