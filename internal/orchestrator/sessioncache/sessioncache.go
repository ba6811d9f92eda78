// Package sessioncache holds per-sessionId conversation history with
// idle-TTL eviction (spec.md §4.9). Adapted from pkg/session/session.go's
// in-memory session service: this package keeps only the orchestrator's
// narrower turn-history + pinned-agent shape rather than the full
// app/user/state/event model the teacher's session package carries.
package sessioncache

import (
	"sync"
	"time"

	"github.com/seiggy/lucia/internal/orchestrator/agentregistry"
)

const DefaultIdleTTL = 30 * time.Minute

// Context is a single session's state, matching spec.md §3's
// SessionContext.
type Context struct {
	SessionID     string
	Turns         []agentregistry.Turn
	CreatedAt     time.Time
	LastTouchedAt time.Time
	PinnedAgentID string
}

type entry struct {
	ctx  Context
	mu   sync.Mutex
}

// Cache is the in-memory session store. Writes occur after each completed
// turn; reads occur before each router/dispatch call (§4.9).
type Cache struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	idleTTL  time.Duration
}

func New(idleTTL time.Duration) *Cache {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Cache{sessions: make(map[string]*entry), idleTTL: idleTTL}
}

// Get lazily creates a session on first use and returns a copy of its
// context (turns and pinned agent id). If the existing session had gone idle
// past the TTL, it is evicted and a fresh one is created and returned in its
// place.
func (c *Cache) Get(sessionID string) Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.sessions[sessionID]
	now := time.Now()
	if ok {
		e.mu.Lock()
		expired := now.Sub(e.ctx.LastTouchedAt) > c.idleTTL
		e.mu.Unlock()
		if expired {
			delete(c.sessions, sessionID)
			ok = false
		}
	}
	if !ok {
		e = &entry{ctx: Context{SessionID: sessionID, CreatedAt: now, LastTouchedAt: now}}
		c.sessions[sessionID] = e
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.ctx
	out.Turns = append([]agentregistry.Turn(nil), e.ctx.Turns...)
	return out
}

// AppendTurn records role/text onto sessionId's history in insertion order
// and refreshes LastTouchedAt, extending the idle window.
func (c *Cache) AppendTurn(sessionID, role, text string) {
	c.mu.Lock()
	e, ok := c.sessions[sessionID]
	if !ok {
		e = &entry{ctx: Context{SessionID: sessionID, CreatedAt: time.Now()}}
		c.sessions[sessionID] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.Turns = append(e.ctx.Turns, agentregistry.Turn{Role: role, Text: text})
	e.ctx.LastTouchedAt = time.Now()
}

// PinAgent sets the sticky-routing agent id for sessionId (spec.md §3
// "optional pinned agent id for sticky routing").
func (c *Cache) PinAgent(sessionID, agentID string) {
	c.mu.Lock()
	e, ok := c.sessions[sessionID]
	if !ok {
		e = &entry{ctx: Context{SessionID: sessionID, CreatedAt: time.Now()}}
		c.sessions[sessionID] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.PinnedAgentID = agentID
	e.ctx.LastTouchedAt = time.Now()
}

// Evict removes every session whose last-touched time is older than the
// idle TTL, returning the count removed. Intended to run on a periodic
// ticker alongside the scheduler's polling loop.
func (c *Cache) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, e := range c.sessions {
		e.mu.Lock()
		idle := now.Sub(e.ctx.LastTouchedAt) > c.idleTTL
		e.mu.Unlock()
		if idle {
			delete(c.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}
