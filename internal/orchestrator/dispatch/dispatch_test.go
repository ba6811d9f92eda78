package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seiggy/lucia/internal/orchestrator/agentregistry"
	"github.com/seiggy/lucia/internal/orchestrator/card"
	"github.com/seiggy/lucia/internal/orchestrator/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInvokable struct {
	reply string
	err   error
	delay time.Duration
}

func (s *stubInvokable) Invoke(ctx context.Context, prompt string, history []agentregistry.Turn) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func TestExecutor_RunLocalAgentSuccess(t *testing.T) {
	reg := agentregistry.New()
	reg.Put("light-agent", agentregistry.Entry{Card: card.AgentCard{Name: "light-agent"}, Local: &stubInvokable{reply: "kitchen lights on"}})

	e := New(reg, nil, Options{})
	results := e.Run(context.Background(), router.Decision{AgentID: "light-agent"}, "turn on the lights", nil)

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "kitchen lights on", results[0].Content)
}

func TestExecutor_RunUnknownAgentFails(t *testing.T) {
	reg := agentregistry.New()
	e := New(reg, nil, Options{})
	results := e.Run(context.Background(), router.Decision{AgentID: "missing"}, "hi", nil)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.NotEmpty(t, results[0].Error)
}

func TestExecutor_RunParallelPreservesOrder(t *testing.T) {
	reg := agentregistry.New()
	reg.Put("slow", agentregistry.Entry{Card: card.AgentCard{Name: "slow"}, Local: &stubInvokable{reply: "slow-done", delay: 50 * time.Millisecond}})
	reg.Put("fast", agentregistry.Entry{Card: card.AgentCard{Name: "fast"}, Local: &stubInvokable{reply: "fast-done"}})

	e := New(reg, nil, Options{})
	start := time.Now()
	results := e.Run(context.Background(), router.Decision{AgentID: "slow", AdditionalAgents: []string{"fast"}}, "go", nil)
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	assert.Equal(t, "slow-done", results[0].Content)
	assert.Equal(t, "fast-done", results[1].Content)
	assert.Less(t, elapsed, 100*time.Millisecond)
}

func TestExecutor_RemoteAgentCallsJSONRPC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "message/send", req["method"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req["id"],
			"result": map[string]any{"text": "remote reply"},
		})
	}))
	defer srv.Close()

	reg := agentregistry.New()
	reg.Put("remote-agent", agentregistry.Entry{Card: card.AgentCard{Name: "remote-agent"}, RemoteURL: srv.URL})

	e := New(reg, srv.Client(), Options{})
	results := e.Run(context.Background(), router.Decision{AgentID: "remote-agent"}, "hi", nil)

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "remote reply", results[0].Content)
}

func TestExecutor_RemoteAgent5xxRetriesThenFails(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := agentregistry.New()
	reg.Put("remote-agent", agentregistry.Entry{Card: card.AgentCard{Name: "remote-agent"}, RemoteURL: srv.URL})

	e := New(reg, srv.Client(), Options{MaxRetries: 2, RetryDelay: time.Millisecond})
	results := e.Run(context.Background(), router.Decision{AgentID: "remote-agent"}, "hi", nil)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, 3, calls)
}

func TestExecutor_LocalAgentNonTransientErrorNotRetried(t *testing.T) {
	reg := agentregistry.New()
	inv := &stubInvokable{err: assert.AnError}
	reg.Put("agent", agentregistry.Entry{Card: card.AgentCard{Name: "agent"}, Local: inv})

	calls := 0
	wrapped := &countingInvokable{inv: inv, calls: &calls}
	reg.Put("agent", agentregistry.Entry{Card: card.AgentCard{Name: "agent"}, Local: wrapped})

	e := New(reg, nil, Options{MaxRetries: 2, RetryDelay: time.Millisecond})
	results := e.Run(context.Background(), router.Decision{AgentID: "agent"}, "hi", nil)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, 1, calls)
}

type countingInvokable struct {
	inv   *stubInvokable
	calls *int
}

func (c *countingInvokable) Invoke(ctx context.Context, prompt string, history []agentregistry.Turn) (string, error) {
	*c.calls++
	return c.inv.Invoke(ctx, prompt, history)
}
