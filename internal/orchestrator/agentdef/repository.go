package agentdef

import (
	"fmt"
	"sync"

	"github.com/seiggy/lucia/internal/orchestrator/registry"
)

// Store is the CRUD surface a durable backing implementation must satisfy;
// Repository below is the in-memory default, matching spec.md §6's document
// store for the agentDefinitions/toolServers/modelProviders collections.
type Store interface {
	PutAgent(def AgentDefinition) error
	DeleteAgent(id string) error
	PutProvider(p ModelProvider) error
	DeleteProvider(id string) error
	PutToolServer(s ToolServer) error
	DeleteToolServer(id string) error
}

// Repository is the in-memory CRUD surface over agent definitions, model
// providers, and tool servers, following agent/registry.go's
// BaseRegistry-backed pattern. Built-in agent definitions and model
// providers cannot be deleted; writes to them are not blocked.
type Repository struct {
	agents    *registry.BaseRegistry[AgentDefinition]
	providers *registry.BaseRegistry[ModelProvider]
	servers   *registry.BaseRegistry[ToolServer]

	mu      sync.RWMutex
	backing Store // optional durable mirror; nil = pure in-memory
}

func NewRepository() *Repository {
	return &Repository{
		agents:    registry.NewBaseRegistry[AgentDefinition](),
		providers: registry.NewBaseRegistry[ModelProvider](),
		servers:   registry.NewBaseRegistry[ToolServer](),
	}
}

// WithBackingStore attaches a durable mirror; writes succeed in-memory first
// and are then bubbled to the backing store's error, matching spec.md §7
// "durable-store write error bubbled to caller for interactive writes".
func (r *Repository) WithBackingStore(s Store) *Repository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backing = s
	return r
}

// --- agent definitions ---

func (r *Repository) PutAgent(def AgentDefinition) error {
	def.SetDefaults()
	if err := def.Validate(); err != nil {
		return err
	}
	r.agents.Set(def.ID, def)
	return r.mirror(func(s Store) error { return s.PutAgent(def) })
}

func (r *Repository) GetAgent(id string) (AgentDefinition, bool) {
	return r.agents.Get(id)
}

func (r *Repository) ListAgents() []AgentDefinition {
	return r.agents.List()
}

func (r *Repository) DeleteAgent(id string) error {
	def, ok := r.agents.Get(id)
	if !ok {
		return &DefError{Component: "Repository", Action: "DeleteAgent", Message: fmt.Sprintf("agent %q not found", id)}
	}
	if def.IsBuiltIn {
		return &DefError{Component: "Repository", Action: "DeleteAgent", Message: fmt.Sprintf("agent %q is built-in and protected from deletion", id)}
	}
	if err := r.agents.Remove(id); err != nil {
		return err
	}
	return r.mirror(func(s Store) error { return s.DeleteAgent(id) })
}

// --- model providers ---

func (r *Repository) PutProvider(p ModelProvider) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.providers.Set(p.ID, p)
	return r.mirror(func(s Store) error { return s.PutProvider(p) })
}

func (r *Repository) GetProvider(id string) (ModelProvider, bool) {
	return r.providers.Get(id)
}

func (r *Repository) ListProviders() []ModelProvider {
	return r.providers.List()
}

func (r *Repository) DeleteProvider(id string) error {
	p, ok := r.providers.Get(id)
	if !ok {
		return &DefError{Component: "Repository", Action: "DeleteProvider", Message: fmt.Sprintf("provider %q not found", id)}
	}
	if p.IsBuiltIn {
		return &DefError{Component: "Repository", Action: "DeleteProvider", Message: fmt.Sprintf("provider %q is built-in and protected from deletion", id)}
	}
	if err := r.providers.Remove(id); err != nil {
		return err
	}
	return r.mirror(func(s Store) error { return s.DeleteProvider(id) })
}

// --- tool servers ---

func (r *Repository) PutToolServer(s ToolServer) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.servers.Set(s.ID, s)
	return r.mirror(func(store Store) error { return store.PutToolServer(s) })
}

func (r *Repository) GetToolServer(id string) (ToolServer, bool) {
	return r.servers.Get(id)
}

func (r *Repository) ListToolServers() []ToolServer {
	return r.servers.List()
}

func (r *Repository) DeleteToolServer(id string) error {
	if err := r.servers.Remove(id); err != nil {
		return &DefError{Component: "Repository", Action: "DeleteToolServer", Message: fmt.Sprintf("tool server %q not found", id), Err: err}
	}
	return r.mirror(func(store Store) error { return store.DeleteToolServer(id) })
}

func (r *Repository) mirror(fn func(Store) error) error {
	r.mu.RLock()
	backing := r.backing
	r.mu.RUnlock()
	if backing == nil {
		return nil
	}
	return fn(backing)
}
