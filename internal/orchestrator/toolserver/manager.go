package toolserver

import (
	"context"
	"fmt"

	"github.com/seiggy/lucia/internal/orchestrator/agentdef"
	"github.com/seiggy/lucia/internal/orchestrator/registry"
)

// Manager is the process-wide tool-server connection table (spec.md §5
// "tool-server connection table" singleton), keyed by server id.
type Manager struct {
	conns *registry.BaseRegistry[*Conn]
}

func NewManager() *Manager {
	return &Manager{conns: registry.NewBaseRegistry[*Conn]()}
}

// Connect registers (if new) and connects the server.
func (m *Manager) Connect(ctx context.Context, server agentdef.ToolServer) (*Conn, error) {
	conn, ok := m.conns.Get(server.ID)
	if !ok {
		conn = NewConn(server)
		m.conns.Set(server.ID, conn)
	}
	if err := conn.Connect(ctx); err != nil {
		return conn, err
	}
	return conn, nil
}

// Disconnect tears down a server's connection. The server stays registered,
// so a later ListTools reconnects it lazily.
func (m *Manager) Disconnect(serverID string) error {
	conn, ok := m.conns.Get(serverID)
	if !ok {
		return fmt.Errorf("toolserver: server %q not connected", serverID)
	}
	return conn.Disconnect()
}

// ListTools returns the cached (or lazily connected) tool list for serverID.
func (m *Manager) ListTools(ctx context.Context, serverID string, refresh bool) ([]Tool, error) {
	conn, ok := m.conns.Get(serverID)
	if !ok {
		return nil, fmt.Errorf("toolserver: server %q not connected", serverID)
	}
	return conn.ListTools(ctx, refresh)
}

// CallTool invokes toolName on serverID.
func (m *Manager) CallTool(ctx context.Context, serverID, toolName string, args map[string]any) (map[string]any, error) {
	conn, ok := m.conns.Get(serverID)
	if !ok {
		return nil, &CallError{Code: "not_connected", Message: fmt.Sprintf("tool server %q not connected", serverID)}
	}
	return conn.CallTool(ctx, toolName, args)
}

// DescribeTool returns the metadata for one tool bound to serverID.
func (m *Manager) DescribeTool(serverID, toolName string) (Tool, bool) {
	conn, ok := m.conns.Get(serverID)
	if !ok {
		return Tool{}, false
	}
	return conn.DescribeTool(toolName)
}

// State reports the current connection state for a server, or Disconnected
// if it was never connected.
func (m *Manager) State(serverID string) State {
	conn, ok := m.conns.Get(serverID)
	if !ok {
		return Disconnected
	}
	return conn.State()
}
