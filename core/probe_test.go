package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipWithoutICMP skips the test when this host does not let us open ICMP sockets.
func skipWithoutICMP(t *testing.T) {
	t.Helper()

	tr, err := OpenSocketTransport(loopback4, DefaultSettings())
	if err != nil {
		t.Skipf("ICMP sockets are not available: %s", err)
	}
	tr.Close()
}

// TestFirstSuccessCancelsOthers verifies that the first passing probe cancels the slow ones
func TestFirstSuccessCancelsOthers(t *testing.T) {
	var cancelled int32
	slow := ProbeFunc(func(ctx context.Context) bool {
		<-ctx.Done()
		atomic.AddInt32(&cancelled, 1)
		return false
	})
	fast := ProbeFunc(func(context.Context) bool { return true })

	done := make(chan bool, 1)
	go func() { done <- FirstSuccess(context.Background(), slow, fast, slow) }()

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("FirstSuccess did not return after a probe passed")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&cancelled))
}

// TestFirstSuccessAllFail verifies that false is only returned once every probe returned
func TestFirstSuccessAllFail(t *testing.T) {
	var finished int32
	probe := func(d time.Duration) Probe {
		return ProbeFunc(func(context.Context) bool {
			time.Sleep(d)
			atomic.AddInt32(&finished, 1)
			return false
		})
	}

	ok := FirstSuccess(context.Background(), probe(0), probe(10*time.Millisecond), probe(30*time.Millisecond))
	assert.False(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(&finished))
}

// TestFirstSuccessNoProbes verifies that nothing to probe is not a success
func TestFirstSuccessNoProbes(t *testing.T) {
	assert.False(t, FirstSuccess(context.Background()))
}

// TestFirstSuccessParentCancel verifies that cancelling the caller's context ends every probe
func TestFirstSuccessParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocking := ProbeFunc(func(ctx context.Context) bool {
		<-ctx.Done()
		return false
	})

	done := make(chan bool, 1)
	go func() { done <- FirstSuccess(ctx, blocking, blocking) }()
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("FirstSuccess ignored the cancellation")
	}
}

// TestICMPProbeInvalidSettings verifies that a probe that cannot start does not pass
func TestICMPProbeInvalidSettings(t *testing.T) {
	settings := DefaultSettings()
	settings.TTL = 0

	p := &ICMPProbe{Host: "127.0.0.1", Settings: settings}
	assert.False(t, p.Probe(context.Background()))
}

// TestPingOnceInvalidTimeout verifies that a non-positive timeout is refused
func TestPingOnceInvalidTimeout(t *testing.T) {
	ch, err := PingOnce(context.Background(), "127.0.0.1", 0)
	assert.Error(t, err)
	assert.Nil(t, ch)
}

// TestPingCancelled verifies that Ping reports a cancelled context instead of a result
func TestPingCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Ping(ctx, "127.0.0.1", time.Minute)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled))
}

// TestPingLoopback verifies a real ping of the loopback address
func TestPingLoopback(t *testing.T) {
	skipWithoutICMP(t)

	res, err := Ping(context.Background(), "127.0.0.1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, res.Succeeded(), "ping failed: %v", res.Err)
	assert.Greater(t, res.Latency, time.Duration(0))
}

// TestPingUnroutable verifies that an address nobody answers for is not reported reachable
func TestPingUnroutable(t *testing.T) {
	skipWithoutICMP(t)

	res, err := Ping(context.Background(), "192.0.2.1", 2*time.Second)
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.Error(t, res.Err)
}

// TestICMPProbeLoopback verifies that the loopback address passes a reachability check
func TestICMPProbeLoopback(t *testing.T) {
	skipWithoutICMP(t)

	unreachable := &ICMPProbe{Host: "192.0.2.1"}
	loopback := &ICMPProbe{Host: "127.0.0.1"}
	assert.True(t, FirstSuccess(context.Background(), unreachable, loopback))
}
