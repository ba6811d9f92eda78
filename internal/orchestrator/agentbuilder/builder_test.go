package agentbuilder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seiggy/lucia/internal/orchestrator/agentdef"
	"github.com/seiggy/lucia/internal/orchestrator/modelprovider"
	"github.com/seiggy/lucia/internal/orchestrator/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *agentdef.Repository {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "kitchen lights are on"}}},
		})
	}))
	t.Cleanup(srv.Close)

	repo := agentdef.NewRepository()
	require.NoError(t, repo.PutProvider(agentdef.ModelProvider{
		ID: agentdef.DefaultChatProviderID, Type: agentdef.ProviderOpenAICompatible,
		ModelName: "gpt-4o-mini", EndpointURL: srv.URL, Enabled: true, IsBuiltIn: true,
	}))
	return repo
}

func TestBuilder_BuildLocalAgent(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.PutAgent(agentdef.AgentDefinition{ID: "light-agent", Description: "controls lights", Instruction: "control lights", Enabled: true}))

	b := &Builder{Repo: repo, Resolver: modelprovider.NewResolver(), TraceStore: tracing.NewRingStore(10)}
	entry, err := b.Build(context.Background(), mustGet(t, repo, "light-agent"))
	require.NoError(t, err)

	assert.False(t, entry.IsRemote())
	require.NotNil(t, entry.Local)

	reply, err := entry.Local.Invoke(context.Background(), "turn on the kitchen lights", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "kitchen")
}

func TestBuilder_BuildRemoteAgentSkipsInvokable(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.PutAgent(agentdef.AgentDefinition{ID: "remote-agent", Description: "d", IsRemote: true, RemoteURL: "https://peer/a2a/remote-agent", Enabled: true}))

	b := &Builder{Repo: repo, Resolver: modelprovider.NewResolver()}
	entry, err := b.Build(context.Background(), mustGet(t, repo, "remote-agent"))
	require.NoError(t, err)

	assert.True(t, entry.IsRemote())
	assert.Nil(t, entry.Local)
	assert.Equal(t, "https://peer/a2a/remote-agent", entry.RemoteURL)
}

func TestBuilder_FallsBackToDefaultChatProvider(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.PutAgent(agentdef.AgentDefinition{
		ID: "custom", Description: "d", ModelConnectionName: "does-not-exist", Enabled: true,
	}))

	b := &Builder{Repo: repo, Resolver: modelprovider.NewResolver(), TraceStore: tracing.NewRingStore(10)}
	entry, err := b.Build(context.Background(), mustGet(t, repo, "custom"))
	require.NoError(t, err)
	assert.NotNil(t, entry.Local)
}

func mustGet(t *testing.T, repo *agentdef.Repository, id string) agentdef.AgentDefinition {
	t.Helper()
	def, ok := repo.GetAgent(id)
	require.True(t, ok)
	return def
}
