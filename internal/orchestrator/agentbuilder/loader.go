package agentbuilder

import (
	"context"
	"log/slog"

	"github.com/seiggy/lucia/internal/orchestrator/agentregistry"
)

// Loader is the long-running background service that rebuilds the
// in-memory registry from the agent definition repository on startup and on
// every Notify call (spec.md §4.3). The repository does not call Notify
// itself, so a rebuild after a definition change happens only when a caller
// invokes Notify. Hot reload is safe because each
// rebuilt agent is registered with a single Set call — readers never
// observe a partially-updated entry.
type Loader struct {
	builder  *Builder
	registry *agentregistry.Registry
	reload   chan struct{}
}

func NewLoader(builder *Builder, registry *agentregistry.Registry) *Loader {
	return &Loader{builder: builder, registry: registry, reload: make(chan struct{}, 1)}
}

// Notify wakes the loader to rebuild on its next iteration. Non-blocking:
// if a reload is already pending, this is a no-op.
func (l *Loader) Notify() {
	select {
	case l.reload <- struct{}{}:
	default:
	}
}

// RebuildAll rebuilds every enabled, non-remote-skipping definition once,
// synchronously — used on startup and by Run's loop.
func (l *Loader) RebuildAll(ctx context.Context) {
	for _, def := range l.builder.Repo.ListAgents() {
		if !def.Enabled {
			continue
		}
		entry, err := l.builder.Build(ctx, def)
		if err != nil {
			slog.Error("agentbuilder: rebuild failed, keeping previous registration", "agent", def.ID, "error", err)
			continue
		}
		l.registry.Put(def.ID, entry)
	}
}

// Run blocks, rebuilding on startup and on every Notify, until ctx is
// cancelled.
func (l *Loader) Run(ctx context.Context) {
	l.RebuildAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.reload:
			l.RebuildAll(ctx)
		}
	}
}
