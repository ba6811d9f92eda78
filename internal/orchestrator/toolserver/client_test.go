package toolserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seiggy/lucia/internal/orchestrator/agentdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHTTPToolServer(t *testing.T) agentdef.ToolServer {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "initialize":
			_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": map[string]any{}})
		case "tools/list":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": 1,
				"result": map[string]any{
					"tools": []map[string]any{
						{"name": "turn_on", "description": "turns on a light", "inputSchema": map[string]any{"type": "object"}},
					},
				},
			})
		case "tools/call":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": 1,
				"result": map[string]any{"content": []map[string]any{{"type": "text", "text": "ok"}}},
			})
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return agentdef.ToolServer{ID: "srv1", Transport: agentdef.TransportHTTP, URL: srv.URL + "/rpc", Enabled: true}
}

func TestConn_ConnectAndListTools(t *testing.T) {
	conn := NewConn(newHTTPToolServer(t))
	assert.Equal(t, Disconnected, conn.State())

	require.NoError(t, conn.Connect(context.Background()))
	assert.Equal(t, Connected, conn.State())

	tools, err := conn.ListTools(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "turn_on", tools[0].Name)
}

func TestConn_CallTool(t *testing.T) {
	conn := NewConn(newHTTPToolServer(t))
	require.NoError(t, conn.Connect(context.Background()))

	result, err := conn.CallTool(context.Background(), "turn_on", map[string]any{"entity_id": "light.kitchen"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result["result"])
}

func TestConn_CallToolBeforeConnectReturnsStructuredError(t *testing.T) {
	conn := NewConn(newHTTPToolServer(t))
	_, err := conn.CallTool(context.Background(), "turn_on", nil)
	require.Error(t, err)
	var callErr *CallError
	assert.ErrorAs(t, err, &callErr)
}

func TestManager_ConnectAndCallTool(t *testing.T) {
	mgr := NewManager()
	server := newHTTPToolServer(t)

	_, err := mgr.Connect(context.Background(), server)
	require.NoError(t, err)
	assert.Equal(t, Connected, mgr.State(server.ID))

	result, err := mgr.CallTool(context.Background(), server.ID, "turn_on", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result["result"])
}
