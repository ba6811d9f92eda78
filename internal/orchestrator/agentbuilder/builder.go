// Package agentbuilder composes invokable agent objects from persisted
// agentdef.AgentDefinition records (spec.md §4.3): resolves a chat client,
// resolves tool references, wraps the client with tracing, and produces an
// AgentCard + agentregistry.Entry pair.
package agentbuilder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seiggy/lucia/internal/orchestrator/agentdef"
	"github.com/seiggy/lucia/internal/orchestrator/agentregistry"
	"github.com/seiggy/lucia/internal/orchestrator/card"
	"github.com/seiggy/lucia/internal/orchestrator/modelprovider"
	"github.com/seiggy/lucia/internal/orchestrator/toolserver"
	"github.com/seiggy/lucia/internal/orchestrator/tracing"
)

// Builder constructs one agent instance per call to Build.
type Builder struct {
	Repo      *agentdef.Repository
	Resolver  *modelprovider.Resolver
	ToolMgr   *toolserver.Manager
	TraceStore tracing.Store
}

// BoundTool is one resolved tool reference ready for invocation.
type BoundTool struct {
	ServerID string
	Tool     toolserver.Tool
}

// Build materializes one agent from def. Unresolved tool references are
// skipped and logged, not fatal (spec.md §4.3 step 2). If def.IsRemote, no
// invokable is constructed — only a card pointing at the remote endpoint.
func (b *Builder) Build(ctx context.Context, def agentdef.AgentDefinition) (agentregistry.Entry, error) {
	c := card.AgentCard{
		Name:        def.ID,
		DisplayName: def.DisplayName,
		Description: def.Description,
		Skills:      []card.Skill{{ID: def.ID, Name: def.DisplayName, Description: def.Description}},
		Capabilities: card.Capabilities{
			Streaming:              false,
			PushNotifications:      false,
			StateTransitionHistory: true,
		},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
	}

	if def.IsRemote {
		c.RemoteURL = def.RemoteURL
		return agentregistry.Entry{Card: c, RemoteURL: def.RemoteURL}, nil
	}

	provider, err := b.resolveProvider(def)
	if err != nil {
		return agentregistry.Entry{}, fmt.Errorf("agentbuilder: resolve provider for %q: %w", def.ID, err)
	}

	chatClient, err := b.Resolver.CreateChatClient(provider)
	if err != nil {
		return agentregistry.Entry{}, fmt.Errorf("agentbuilder: create chat client for %q: %w", def.ID, err)
	}

	tools := b.resolveTools(ctx, def)

	traced := tracing.Wrap(chatClient, def.ID, b.TraceStore)

	invokable := &simpleAgent{
		id:          def.ID,
		instruction: def.Instruction,
		chatClient:  traced,
		tools:       tools,
		toolMgr:     b.ToolMgr,
	}

	return agentregistry.Entry{Card: c, Local: invokable}, nil
}

// resolveProvider implements §4.2's fallback: if ModelConnectionName is
// missing or disabled, fall back to the default-chat provider.
func (b *Builder) resolveProvider(def agentdef.AgentDefinition) (agentdef.ModelProvider, error) {
	name := def.ModelConnectionName
	if name != "" {
		if p, ok := b.Repo.GetProvider(name); ok && p.Enabled {
			return p, nil
		}
		slog.Warn("agentbuilder: model connection unavailable, falling back", "agent", def.ID, "requested", name)
	}
	p, ok := b.Repo.GetProvider(agentdef.DefaultChatProviderID)
	if !ok {
		return agentdef.ModelProvider{}, fmt.Errorf("default chat provider %q not configured", agentdef.DefaultChatProviderID)
	}
	return p, nil
}

func (b *Builder) resolveTools(ctx context.Context, def agentdef.AgentDefinition) []BoundTool {
	var bound []BoundTool
	for _, ref := range def.Tools {
		server, ok := b.Repo.GetToolServer(ref.ServerID)
		if !ok || !server.Enabled {
			slog.Warn("agentbuilder: tool server not found or disabled, skipping reference", "agent", def.ID, "server", ref.ServerID)
			continue
		}
		if _, err := b.ToolMgr.Connect(ctx, server); err != nil {
			slog.Warn("agentbuilder: tool server connect failed, skipping reference", "agent", def.ID, "server", ref.ServerID, "error", err)
			continue
		}
		tool, ok := b.ToolMgr.DescribeTool(ref.ServerID, ref.ToolName)
		if !ok {
			slog.Warn("agentbuilder: tool not found on server, skipping reference", "agent", def.ID, "server", ref.ServerID, "tool", ref.ToolName)
			continue
		}
		bound = append(bound, BoundTool{ServerID: ref.ServerID, Tool: tool})
	}
	return bound
}
