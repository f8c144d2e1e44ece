package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(clock *fakeClock) *Registry {
	cfg := DefaultConfig()
	cfg.Now = clock.Now
	return NewRegistryWithConfig(cfg)
}

func TestSingleActiveConnectionPerUser(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)

	res := r.TrackConnection("sock-1", 42)
	require.True(t, res.Allowed)
	assert.Empty(t, res.SocketsToEvict)

	for i := 2; i <= 5; i++ {
		clock.Advance(20 * time.Second) // stay clear of the burst window
		res = r.TrackConnection(fmt.Sprintf("sock-%d", i), 42)
		require.True(t, res.Allowed)
		require.Equal(t, []string{fmt.Sprintf("sock-%d", i-1)}, res.SocketsToEvict)
	}

	var userConns int
	for _, c := range r.GetAllConnections() {
		if c.UserID == 42 {
			userConns++
		}
	}
	assert.Equal(t, 1, userConns)
	assert.Equal(t, 1, r.GetConnectedUsersCount())
}

func TestReconnectionBan(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)

	for i := 1; i <= 6; i++ {
		res := r.TrackConnection(fmt.Sprintf("sock-%d", i), 7)
		require.True(t, res.Allowed, "attempt %d should be allowed", i)
		clock.Advance(time.Second)
	}

	res := r.TrackConnection("sock-7", 7)
	require.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "Too many reconnection attempts")

	banned, until := r.GetUserBanStatus(7)
	assert.True(t, banned)
	assert.True(t, until.After(clock.Now()))

	// still banned on the next attempt
	clock.Advance(time.Second)
	res = r.TrackConnection("sock-8", 7)
	require.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "banned")

	// ban expires, window has drained, user is welcome again
	clock.Advance(5 * time.Minute)
	res = r.TrackConnection("sock-9", 7)
	assert.True(t, res.Allowed)

	banned, _ = r.GetUserBanStatus(7)
	assert.False(t, banned)
}

func TestSlidingWindowPrunes(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)

	for i := 0; i < 4; i++ {
		res := r.TrackConnection(fmt.Sprintf("sock-%d", i), 9)
		require.True(t, res.Allowed)
		clock.Advance(time.Second)
	}
	assert.Len(t, r.GetUserReconnectionHistory(9), 4)

	clock.Advance(61 * time.Second)
	assert.Empty(t, r.GetUserReconnectionHistory(9))

	// a drained window means a fresh burst is tolerated again
	for i := 0; i < 6; i++ {
		res := r.TrackConnection(fmt.Sprintf("fresh-%d", i), 9)
		require.True(t, res.Allowed)
	}
}

func TestGuestExemption(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)

	const n = 20
	for i := 0; i < n; i++ {
		res := r.TrackConnection(fmt.Sprintf("guest-%d", i), 0)
		require.True(t, res.Allowed)
		assert.Empty(t, res.SocketsToEvict)
	}

	assert.Equal(t, n, r.GetConnectedUsersCount())
	assert.Empty(t, r.GetUserReconnectionHistory(0))
}

func TestInactivityEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InactivityThreshold = 40 * time.Millisecond
	cfg.SweepInterval = 10 * time.Millisecond
	r := NewRegistryWithConfig(cfg)

	r.TrackConnection("stale", 0)
	r.TrackConnection("fresh", 0)

	var mu sync.Mutex
	evicted := map[string]int{}
	r.StartInactivityMonitoring(func(socketID string) {
		mu.Lock()
		defer mu.Unlock()
		evicted[socketID]++
	})
	defer r.StopInactivityMonitoring()

	// keep one connection alive past the threshold
	deadline := time.Now().Add(120 * time.Millisecond)
	for time.Now().Before(deadline) {
		r.UpdateLastSeen("fresh")
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, evicted["stale"])
	assert.Zero(t, evicted["fresh"])

	_, ok := r.GetConnection("stale")
	assert.False(t, ok)
	_, ok = r.GetConnection("fresh")
	assert.True(t, ok)
}

func TestMonitoringStartIdempotentStopSafe(t *testing.T) {
	r := NewRegistry()

	// stop before start must not panic
	r.StopInactivityMonitoring()

	r.StartInactivityMonitoring(func(string) {})
	r.StartInactivityMonitoring(func(string) {}) // no-op
	r.StopInactivityMonitoring()
	r.StopInactivityMonitoring()
}

func TestRoomBindingAndLookups(t *testing.T) {
	r := NewRegistry()

	r.TrackConnection("s1", 1)
	r.TrackConnection("s2", 2)
	r.TrackConnection("s3", 0)

	r.UpdateConnectionRoom("s1", "ABC12", 10)
	r.UpdateConnectionRoom("s2", "ABC12", 11)
	r.UpdateConnectionRoom("unknown", "ABC12", 12) // no-op

	assert.ElementsMatch(t, []string{"s1", "s2"}, r.SocketsInRoom("ABC12"))

	socketID, ok := r.SocketForPlayer("ABC12", 11)
	require.True(t, ok)
	assert.Equal(t, "s2", socketID)

	_, ok = r.SocketForPlayer("ABC12", 99)
	assert.False(t, ok)

	// leaving clears the binding
	r.UpdateConnectionRoom("s1", "", 0)
	assert.ElementsMatch(t, []string{"s2"}, r.SocketsInRoom("ABC12"))

	r.HandleDisconnect("s2")
	r.HandleDisconnect("s2") // unknown socket, no error
	assert.Empty(t, r.SocketsInRoom("ABC12"))
}
