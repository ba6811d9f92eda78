// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package toolserver implements the tool-server client (spec.md §4.1):
// connects to external tool sources over stdio or HTTP/SSE, lists their
// tools, and invokes them, with an explicit connection state machine and
// exponential-backoff reconnect.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/seiggy/lucia/internal/orchestrator/agentdef"
	"github.com/seiggy/lucia/pkg/httpclient"
)

// State is the explicit connection state machine spec.md §4.1 requires:
// tools are cached only while Connected.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Tool describes one callable tool published by a server.
type Tool struct {
	Name         string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
}

// CallError is the structured error callTool returns in-band — spec.md §4.1
// says callTool never throws out of the registry.
type CallError struct {
	Code    string
	Message string
}

func (e *CallError) Error() string { return fmt.Sprintf("[%s] %s", e.Code, e.Message) }

const (
	stdioConnectTimeout = 10 * time.Second
	httpConnectTimeout  = 10 * time.Second
	maxBackoff          = 30 * time.Second
)

// Conn is one connection to a single tool server, owning its own state
// machine and tool cache. mu guards the state, client handles, tool cache and
// session id; it is not held while a request is in flight, so concurrent
// calls to one server are not serialized against each other.
type Conn struct {
	server agentdef.ToolServer

	mu        sync.Mutex
	state     State
	tools     []Tool
	mcpClient *client.Client
	httpClnt  *httpclient.Client
	sessionID string
	attempt   int
}

// NewConn constructs a disconnected connection for server; callers invoke
// Connect before first use.
func NewConn(server agentdef.ToolServer) *Conn {
	return &Conn{server: server, state: Disconnected}
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect transitions Disconnected/Failed → Connecting → Connected|Failed.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Connected {
		c.mu.Unlock()
		return nil
	}
	c.state = Connecting
	c.mu.Unlock()

	var err error
	switch c.server.Transport {
	case agentdef.TransportStdio:
		err = c.connectStdio(ctx)
	case agentdef.TransportHTTP, agentdef.TransportSSE:
		err = c.connectHTTP(ctx)
	default:
		err = fmt.Errorf("toolserver: unknown transport %q", c.server.Transport)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = Failed
		c.attempt++
		return err
	}
	c.state = Connected
	c.attempt = 0
	return nil
}

// Disconnect tears down the connection and drops the cached tool list.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.mcpClient != nil {
		err = c.mcpClient.Close()
		c.mcpClient = nil
	}
	c.httpClnt = nil
	c.tools = nil
	c.state = Disconnected
	return err
}

// backoffDelay returns the exponential backoff before the next reconnect
// attempt, capped at maxBackoff — spec.md §4.1 "restart on exit with
// exponential backoff capped at 30s".
func (c *Conn) backoffDelay() time.Duration {
	c.mu.Lock()
	attempt := c.attempt
	c.mu.Unlock()

	d := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Reconnect waits out the current backoff delay and attempts Connect again.
func (c *Conn) Reconnect(ctx context.Context) error {
	delay := c.backoffDelay()
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.Connect(ctx)
}

// ListTools returns the cached tool list, reconnecting lazily if needed.
// refresh forces a live re-query against the server.
func (c *Conn) ListTools(ctx context.Context, refresh bool) ([]Tool, error) {
	c.mu.Lock()
	state := c.state
	cached := c.tools
	c.mu.Unlock()

	if state != Connected {
		if err := c.Connect(ctx); err != nil {
			return nil, fmt.Errorf("toolserver: connect %q: %w", c.server.ID, err)
		}
		c.mu.Lock()
		cached = c.tools
		c.mu.Unlock()
		return cached, nil
	}
	if !refresh {
		return cached, nil
	}

	var tools []Tool
	var err error
	switch c.server.Transport {
	case agentdef.TransportStdio:
		tools, err = c.listToolsStdio(ctx)
	default:
		tools, err = c.listToolsHTTP(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("toolserver: refresh tools %q: %w", c.server.ID, err)
	}

	c.mu.Lock()
	c.tools = tools
	c.mu.Unlock()
	return tools, nil
}

// CallTool invokes toolName on this server and returns the structured
// result, or a *CallError on failure — never a bare transport error, so the
// calling agent can decide on retry.
func (c *Conn) CallTool(ctx context.Context, toolName string, args map[string]any) (map[string]any, error) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != Connected {
		return nil, &CallError{Code: "not_connected", Message: fmt.Sprintf("tool server %q is not connected", c.server.ID)}
	}

	if c.server.Transport == agentdef.TransportStdio {
		return c.callStdio(ctx, toolName, args)
	}
	return c.callHTTP(ctx, toolName, args)
}

// DescribeTool returns one tool's metadata from the cached list.
func (c *Conn) DescribeTool(toolName string) (Tool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tools {
		if t.Name == toolName {
			return t, true
		}
	}
	return Tool{}, false
}

// --- stdio transport ---

func (c *Conn) connectStdio(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, stdioConnectTimeout)
	defer cancel()

	env := make([]string, 0, len(c.server.Env))
	for k, v := range c.server.Env {
		env = append(env, k+"="+v)
	}

	mcpClient, err := client.NewStdioMCPClient(c.server.Command, env, c.server.Args...)
	if err != nil {
		return fmt.Errorf("create stdio client: %w", err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("start stdio client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "lucia-orchestrator", Version: "1.0.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("initialize stdio client: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("list tools: %w", err)
	}

	c.mu.Lock()
	c.mcpClient = mcpClient
	c.tools = convertMCPTools(listResp.Tools)
	c.mu.Unlock()

	slog.Info("tool server connected", "server", c.server.ID, "transport", "stdio", "tools", len(listResp.Tools))
	return nil
}

func (c *Conn) listToolsStdio(ctx context.Context) ([]Tool, error) {
	c.mu.Lock()
	mcpClient := c.mcpClient
	c.mu.Unlock()
	if mcpClient == nil {
		return nil, fmt.Errorf("stdio client not connected")
	}
	resp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	return convertMCPTools(resp.Tools), nil
}

func (c *Conn) callStdio(ctx context.Context, toolName string, args map[string]any) (map[string]any, error) {
	c.mu.Lock()
	mcpClient := c.mcpClient
	c.mu.Unlock()
	if mcpClient == nil {
		return nil, &CallError{Code: "not_connected", Message: "stdio client not connected"}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, &CallError{Code: "call_failed", Message: err.Error()}
	}
	return parseMCPResult(resp), nil
}

func convertMCPTools(in []mcp.Tool) []Tool {
	out := make([]Tool, 0, len(in))
	for _, t := range in {
		out = append(out, Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: toMap(t.InputSchema),
		})
	}
	return out
}

func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func parseMCPResult(resp *mcp.CallToolResult) map[string]any {
	result := make(map[string]any)
	if resp.IsError {
		for _, content := range resp.Content {
			if tc, ok := content.(mcp.TextContent); ok {
				result["error"] = tc.Text
				break
			}
		}
		if result["error"] == nil {
			result["error"] = "unknown error"
		}
		return result
	}
	var texts []string
	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	switch len(texts) {
	case 0:
	case 1:
		result["result"] = texts[0]
	default:
		result["results"] = texts
	}
	return result
}

// --- http/sse transport ---

func (c *Conn) connectHTTP(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, httpConnectTimeout)
	defer cancel()

	httpClnt := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: httpConnectTimeout}),
		httpclient.WithMaxRetries(3),
		httpclient.WithBaseDelay(2*time.Second),
	)

	c.mu.Lock()
	c.httpClnt = httpClnt
	c.mu.Unlock()

	initResp, err := c.rpc(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]any{"name": "lucia-orchestrator", "version": "1.0.0"},
		"capabilities":    map[string]any{},
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if initResp.Error != nil {
		return fmt.Errorf("initialize error: %s", initResp.Error.Message)
	}

	tools, err := c.listToolsHTTP(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.tools = tools
	c.mu.Unlock()

	slog.Info("tool server connected", "server", c.server.ID, "transport", c.server.Transport, "tools", len(tools))
	return nil
}

func (c *Conn) listToolsHTTP(ctx context.Context) ([]Tool, error) {
	resp, err := c.rpc(ctx, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("list tools error: %s", resp.Error.Message)
	}

	resultMap, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected tools/list result shape")
	}
	rawTools, ok := resultMap["tools"].([]any)
	if !ok {
		return nil, fmt.Errorf("missing tools in tools/list response")
	}

	out := make([]Tool, 0, len(rawTools))
	for _, raw := range rawTools {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		desc, _ := m["description"].(string)
		var schema map[string]any
		if s, ok := m["inputSchema"].(map[string]any); ok {
			schema = s
		}
		out = append(out, Tool{Name: name, Description: desc, InputSchema: schema})
	}
	return out, nil
}

func (c *Conn) callHTTP(ctx context.Context, toolName string, args map[string]any) (map[string]any, error) {
	resp, err := c.rpc(ctx, "tools/call", map[string]any{"name": toolName, "arguments": args})
	if err != nil {
		return nil, &CallError{Code: "call_failed", Message: err.Error()}
	}
	if resp.Error != nil {
		return map[string]any{"error": resp.Error.Message}, nil
	}

	result := make(map[string]any)
	resultMap, ok := resp.Result.(map[string]any)
	if !ok {
		result["result"] = resp.Result
		return result, nil
	}
	if isErr, _ := resultMap["isError"].(bool); isErr {
		result["error"] = extractErrorText(resultMap)
		return result, nil
	}
	if content, ok := resultMap["content"].([]any); ok {
		texts := extractTexts(content)
		switch len(texts) {
		case 0:
		case 1:
			result["result"] = texts[0]
		default:
			result["results"] = texts
		}
	}
	return result, nil
}

func extractErrorText(resultMap map[string]any) string {
	if content, ok := resultMap["content"].([]any); ok {
		for _, c := range content {
			if cm, ok := c.(map[string]any); ok {
				if text, ok := cm["text"].(string); ok {
					return text
				}
			}
		}
	}
	return "unknown error"
}

func extractTexts(content []any) []string {
	var texts []string
	for _, c := range content {
		cm, ok := c.(map[string]any)
		if !ok || cm["type"] != "text" {
			continue
		}
		if text, ok := cm["text"].(string); ok {
			texts = append(texts, text)
		}
	}
	return texts
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Conn) rpc(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	body, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server.URL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range c.server.Headers {
		httpReq.Header.Set(k, v)
	}

	c.mu.Lock()
	sessionID := c.sessionID
	httpClnt := c.httpClnt
	c.mu.Unlock()
	if sessionID != "" {
		httpReq.Header.Set("mcp-session-id", sessionID)
	}

	resp, err := httpClnt.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("mcp-session-id"); sid != "" {
		c.mu.Lock()
		c.sessionID = sid
		c.mu.Unlock()
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	var out jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
