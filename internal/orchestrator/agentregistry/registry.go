// Package agentregistry is the in-memory index of agent cards keyed by id,
// used by the router (to enumerate candidates) and the dispatcher (to
// resolve the local-vs-remote invocation variant). Spec.md §9's "agent
// polymorphism" design note: the registry exposes a single lookup returning
// a tagged variant carrying either a direct callable or a remote endpoint
// descriptor.
package agentregistry

import (
	"context"
	"fmt"

	"github.com/seiggy/lucia/internal/orchestrator/card"
	"github.com/seiggy/lucia/internal/orchestrator/registry"
)

// Invokable is the local, in-process calling surface for an agent; the
// dispatcher calls it directly. Defined here (not in agentbuilder) so the
// registry has no import-cycle dependency on the builder package.
type Invokable interface {
	Invoke(ctx context.Context, prompt string, history []Turn) (string, error)
}

// Turn is one prior message in a session's history, passed into Invoke so a
// local agent can incorporate multi-turn context.
type Turn struct {
	Role string
	Text string
}

// Entry is the tagged variant stored per agent id: exactly one of Local or
// RemoteURL is set, mirroring card.AgentCard.RemoteURL.
type Entry struct {
	Card      card.AgentCard
	Local     Invokable // nil for remote agents
	RemoteURL string    // non-empty for remote agents
}

func (e Entry) IsRemote() bool { return e.RemoteURL != "" }

// Registry indexes Entry by agent id. Swapping an entry (hot reload) is a
// single BaseRegistry.Set call — a pointer-sized map write — so concurrent
// readers always see either the old or new entry, never a partial one
// (spec.md §5 "Registry swap atomicity").
type Registry struct {
	*registry.BaseRegistry[Entry]
}

func New() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Entry]()}
}

// Put registers or atomically replaces the entry for id.
func (r *Registry) Put(id string, e Entry) {
	r.Set(id, e)
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id string) (Entry, error) {
	e, ok := r.Get(id)
	if !ok {
		return Entry{}, fmt.Errorf("agentregistry: agent %q not found", id)
	}
	return e, nil
}

// Cards returns every registered agent's card, in no particular order.
func (r *Registry) Cards() []card.AgentCard {
	entries := r.List()
	out := make([]card.AgentCard, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Card)
	}
	return out
}

// RoutableCards returns cards eligible for the router's catalog: every
// registered non-orchestrator agent, excluding unreachable remote agents when
// isReachable reports false. Entries carry no enabled flag, so none is
// checked here. Matches router.go §4.4 step 1.
func (r *Registry) RoutableCards(isOrchestrator func(id string) bool, isReachable func(e Entry) bool) []card.AgentCard {
	entries := r.List()
	out := make([]card.AgentCard, 0, len(entries))
	for _, e := range entries {
		if isOrchestrator != nil && isOrchestrator(e.Card.Name) {
			continue
		}
		if e.IsRemote() && isReachable != nil && !isReachable(e) {
			continue
		}
		out = append(out, e.Card)
	}
	return out
}
