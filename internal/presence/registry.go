// Package presence tracks which agents currently hold a live connection.
// It is a process-local, in-memory view: restarting the server empties
// it, and persisted agent status is advisory only.
package presence

import (
	"sort"
	"sync"
	"time"
)

// Entry is one agent's live connection.
type Entry struct {
	AgentID   int64     `json:"agentId"`
	AgentName string    `json:"agentName"`
	ConnID    string    `json:"-"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Registry tracks joined agents keyed by agent id, with a connection
// index for lookups by connection. Safe for concurrent use.
//
// Invariant: conns[connID] == agentID implies agents[agentID].ConnID == connID,
// so every agent is reachable from exactly one connection.
type Registry struct {
	mu     sync.RWMutex
	agents map[int64]Entry
	conns  map[string]int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[int64]Entry),
		conns:  make(map[string]int64),
	}
}

// Join records an agent on a connection. An agent joining again, from
// the same or a different connection, replaces its prior entry and
// keeps the original join time, so an agent counts once no matter how
// many join announcements it sends.
func (r *Registry) Join(connID string, agentID int64, agentName string) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A connection re-announcing as a different agent abandons the
	// identity it held before.
	if prevID, ok := r.conns[connID]; ok && prevID != agentID {
		delete(r.agents, prevID)
	}

	e := Entry{AgentID: agentID, AgentName: agentName, ConnID: connID, JoinedAt: time.Now()}
	if prev, ok := r.agents[agentID]; ok {
		e.JoinedAt = prev.JoinedAt
		if prev.ConnID != connID {
			delete(r.conns, prev.ConnID)
		}
	}
	r.agents[agentID] = e
	r.conns[connID] = agentID
	return e
}

// Leave removes the agent joined on the connection, returning its
// entry. Unknown connections, and connections the agent has since
// superseded by rejoining elsewhere, are a no-op, so a double
// disconnect never drops an agent twice.
func (r *Registry) Leave(connID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agentID, ok := r.conns[connID]
	if !ok {
		return Entry{}, false
	}
	delete(r.conns, connID)

	e := r.agents[agentID]
	delete(r.agents, agentID)
	return e, true
}

// Get returns the entry for the agent joined on a connection, if any.
func (r *Registry) Get(connID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agentID, ok := r.conns[connID]
	if !ok {
		return Entry{}, false
	}
	e, ok := r.agents[agentID]
	return e, ok
}

// Count returns the number of joined agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// List returns all entries ordered by join time, then agent id for
// stability.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.agents))
	for _, e := range r.agents {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].AgentID < out[j].AgentID
	})
	return out
}
