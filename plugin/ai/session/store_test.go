package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore()

	s.GetOrCreate("user-1")
	stats := s.Stats()
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, 0, stats.TotalMessages)

	// Existing session is reused, not replaced.
	s.Append("user-1", UserMessage("привет"))
	s.GetOrCreate("user-1")
	assert.Len(t, s.History("user-1"), 1)
}

func TestStoreAppendTrimsHistory(t *testing.T) {
	s := NewStore()

	for i := 0; i < MaxHistoryLength+5; i++ {
		s.Append("user-1", UserMessage(fmt.Sprintf("msg-%d", i)))
		history := s.History("user-1")
		require.LessOrEqual(t, len(history), MaxHistoryLength)
	}

	history := s.History("user-1")
	require.Len(t, history, MaxHistoryLength)
	// The retained window is exactly the most recent entries in send order.
	assert.Equal(t, "msg-5", history[0].Content)
	assert.Equal(t, fmt.Sprintf("msg-%d", MaxHistoryLength+4), history[MaxHistoryLength-1].Content)
}

func TestStoreAppendShiftsWindowByOne(t *testing.T) {
	s := NewStore()

	for i := 0; i < MaxHistoryLength; i++ {
		s.Append("user-1", UserMessage(fmt.Sprintf("msg-%d", i)))
	}
	before := s.History("user-1")
	require.Len(t, before, MaxHistoryLength)

	s.Append("user-1", UserMessage("newest"))
	after := s.History("user-1")
	require.Len(t, after, MaxHistoryLength)
	// entry[0] is what was previously entry[1]
	assert.Equal(t, before[1].Content, after[0].Content)
	assert.Equal(t, "newest", after[MaxHistoryLength-1].Content)
}

func TestStoreIsolationBetweenUsers(t *testing.T) {
	s := NewStore()

	s.Append("a", UserMessage("from a"))
	s.Append("b", UserMessage("from b"))

	for _, msg := range s.History("b") {
		assert.NotEqual(t, "from a", msg.Content)
	}
	require.Len(t, s.History("a"), 1)
	require.Len(t, s.History("b"), 1)
}

func TestStoreHistoryReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append("user-1", UserMessage("original"))

	history := s.History("user-1")
	history[0].Content = "mutated"

	assert.Equal(t, "original", s.History("user-1")[0].Content)
}

func TestStoreResetIdempotence(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("user-1")

	assert.True(t, s.Reset("user-1"))
	assert.False(t, s.Reset("user-1"))
	assert.False(t, s.Reset("never-seen"))
}

func TestStoreSweepExpiredBoundary(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("user-1")

	touched := time.Now()
	s.mu.Lock()
	s.sessions["user-1"].LastActivity = touched
	s.mu.Unlock()

	// One millisecond before the timeout elapses: must not be removed.
	removed := s.SweepExpired(touched.Add(Timeout - time.Millisecond))
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, s.Stats().ActiveSessions)

	// One millisecond after: must be removed.
	removed = s.SweepExpired(touched.Add(Timeout + time.Millisecond))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, s.Stats().ActiveSessions)
}

func TestStoreSweepKeepsActiveSessions(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("stale")
	s.GetOrCreate("fresh")

	now := time.Now()
	s.mu.Lock()
	s.sessions["stale"].LastActivity = now.Add(-2 * Timeout)
	s.sessions["fresh"].LastActivity = now
	s.mu.Unlock()

	removed := s.SweepExpired(now)
	assert.Equal(t, 1, removed)

	stats := s.Stats()
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.True(t, s.Reset("fresh"))
}

func TestStoreStats(t *testing.T) {
	s := NewStore()
	assert.Equal(t, Stats{}, s.Stats())

	s.Append("a", UserMessage("q"))
	s.Append("a", AssistantMessage("r"))
	s.Append("b", UserMessage("q"))

	stats := s.Stats()
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Equal(t, 3, stats.TotalMessages)
}
