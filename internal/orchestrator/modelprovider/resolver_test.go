package modelprovider

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

func fakeDo(t *testing.T, handler http.HandlerFunc) httpDoFunc {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return func(r *http.Request) (*http.Response, error) {
		r.URL.Scheme = "http"
		r.URL.Host = srv.Listener.Addr().String()
		return http.DefaultClient.Do(r)
	}
}

func TestResolver_CreateChatClient_OpenAICompatible(t *testing.T) {
	do := fakeDo(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openAIResponse{
			Choices: []openAIChoice{{Message: openAIMessage{Role: "assistant", Content: "hello"}}},
		})
	})

	r := NewResolver()
	r.httpDo = do

	client, err := r.CreateChatClient(agentdef.ModelProvider{
		ID: "p1", Type: agentdef.ProviderOpenAICompatible, ModelName: "gpt-4o-mini", Enabled: true,
	})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
}

func TestResolver_CachesByProviderID(t *testing.T) {
	r := NewResolver()
	p := agentdef.ModelProvider{ID: "p1", Type: agentdef.ProviderOpenAICompatible, ModelName: "m", Enabled: true}

	c1, err := r.CreateChatClient(p)
	require.NoError(t, err)
	c2, err := r.CreateChatClient(p)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestResolver_InvalidateForcesRebuild(t *testing.T) {
	r := NewResolver()
	p := agentdef.ModelProvider{ID: "p1", Type: agentdef.ProviderOpenAICompatible, ModelName: "m", Enabled: true}

	c1, err := r.CreateChatClient(p)
	require.NoError(t, err)

	r.Invalidate("p1")

	c2, err := r.CreateChatClient(p)
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
}

func TestResolver_RejectsUnknownType(t *testing.T) {
	r := NewResolver()
	_, err := r.CreateChatClient(agentdef.ModelProvider{ID: "p1", Type: "bogus", ModelName: "m"})
	assert.Error(t, err)
}

func TestResolver_AgentProducingRejectedForChat(t *testing.T) {
	r := NewResolver()
	_, err := r.CreateChatClient(agentdef.ModelProvider{ID: "p1", Type: agentdef.ProviderAgent})
	assert.Error(t, err)
}
