package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_JoinLeave(t *testing.T) {
	r := NewRegistry()

	r.Join("conn-1", 1, "Amina")
	r.Join("conn-2", 2, "Brian")
	assert.Equal(t, 2, r.Count())

	e, ok := r.Leave("conn-1")
	require.True(t, ok)
	assert.Equal(t, int64(1), e.AgentID)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_RejoinSameConnectionCountsOnce(t *testing.T) {
	r := NewRegistry()

	first := r.Join("conn-1", 1, "Amina")
	second := r.Join("conn-1", 1, "Amina")
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, first.JoinedAt, second.JoinedAt, "rejoin keeps the original join time")
}

func TestRegistry_SameAgentTwoConnectionsCountsOnce(t *testing.T) {
	r := NewRegistry()

	first := r.Join("conn-a", 7, "Amina")
	second := r.Join("conn-b", 7, "Amina")
	assert.Equal(t, 1, r.Count(), "one agent counts once across connections")
	assert.Equal(t, first.JoinedAt, second.JoinedAt, "rejoin keeps the original join time")

	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "conn-b", list[0].ConnID, "latest connection wins")

	// The superseded connection no longer owns the agent.
	_, ok := r.Get("conn-a")
	assert.False(t, ok)
	_, ok = r.Leave("conn-a")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Count())

	e, ok := r.Leave("conn-b")
	require.True(t, ok)
	assert.Equal(t, int64(7), e.AgentID)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_ConnectionSwitchesAgent(t *testing.T) {
	r := NewRegistry()

	r.Join("conn-1", 1, "Amina")
	r.Join("conn-1", 2, "Brian")
	assert.Equal(t, 1, r.Count(), "old identity is dropped")

	e, ok := r.Get("conn-1")
	require.True(t, ok)
	assert.Equal(t, int64(2), e.AgentID)
}

func TestRegistry_DoubleLeaveIsNoOp(t *testing.T) {
	r := NewRegistry()

	r.Join("conn-1", 1, "Amina")
	_, ok := r.Leave("conn-1")
	require.True(t, ok)

	_, ok = r.Leave("conn-1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_LeaveUnknownConnection(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Leave("never-joined")
	assert.False(t, ok)
}

func TestRegistry_ListOrdering(t *testing.T) {
	r := NewRegistry()

	r.Join("conn-1", 3, "Carol")
	r.Join("conn-2", 1, "Amina")

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, int64(3), list[0].AgentID, "ordered by join time")
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", i)
			r.Join(connID, int64(i), "agent")
			if i%2 == 0 {
				r.Leave(connID)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, r.Count())
}
