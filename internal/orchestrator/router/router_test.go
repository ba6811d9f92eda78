package router

import (
	"context"
	"testing"

	"github.com/seiggy/lucia/internal/orchestrator/agentregistry"
	"github.com/seiggy/lucia/internal/orchestrator/card"
	"github.com/seiggy/lucia/internal/orchestrator/modelprovider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	replies []string
	calls   int
}

func (s *stubChat) Generate(ctx context.Context, messages []modelprovider.Message, opts modelprovider.GenerateOptions) (modelprovider.ChatResponse, error) {
	i := s.calls
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	s.calls++
	return modelprovider.ChatResponse{Content: s.replies[i]}, nil
}

func (s *stubChat) ModelName() string { return "stub" }

func newRegistryWithAgents(t *testing.T, ids ...string) *agentregistry.Registry {
	t.Helper()
	reg := agentregistry.New()
	for _, id := range ids {
		reg.Put(id, agentregistry.Entry{Card: card.AgentCard{Name: id, Description: "does " + id}})
	}
	return reg
}

func TestRouter_RejectsEmptyMessage(t *testing.T) {
	reg := newRegistryWithAgents(t, "light-agent")
	r := New(reg, &stubChat{}, nil, Options{})
	_, err := r.Route(context.Background(), "   ")
	assert.Error(t, err)
}

func TestRouter_NoAgentsFallsBack(t *testing.T) {
	reg := agentregistry.New()
	r := New(reg, &stubChat{}, nil, Options{})
	d, err := r.Route(context.Background(), "turn on the lights")
	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackAgentID, d.AgentID)
	assert.Equal(t, "no agents available", d.Reasoning)
}

func TestRouter_HappyPath(t *testing.T) {
	reg := newRegistryWithAgents(t, "light-agent", "music-agent")
	chat := &stubChat{replies: []string{`{"agentId":"light-agent","confidence":0.9,"reasoning":"lights request"}`}}
	r := New(reg, chat, nil, Options{})

	d, err := r.Route(context.Background(), "turn on the kitchen lights")
	require.NoError(t, err)
	assert.Equal(t, "light-agent", d.AgentID)
	assert.Equal(t, 0.9, d.Confidence)
}

func TestRouter_UnknownAgentFallsBack(t *testing.T) {
	reg := newRegistryWithAgents(t, "light-agent")
	chat := &stubChat{replies: []string{`{"agentId":"nonexistent","confidence":0.9}`}}
	r := New(reg, chat, nil, Options{})

	d, err := r.Route(context.Background(), "do something")
	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackAgentID, d.AgentID)
	assert.Equal(t, float64(0), d.Confidence)
	assert.Contains(t, d.Reasoning, "nonexistent")
}

func TestRouter_LowConfidenceTriggersClarification(t *testing.T) {
	reg := newRegistryWithAgents(t, "light-agent")
	chat := &stubChat{replies: []string{`{"agentId":"light-agent","confidence":0.2}`}}
	r := New(reg, chat, nil, Options{ClarificationAgentID: "clarify-agent"})

	d, err := r.Route(context.Background(), "do the thing")
	require.NoError(t, err)
	assert.Equal(t, "clarify-agent", d.AgentID)
}

func TestRouter_RetriesMalformedJSONThenSucceeds(t *testing.T) {
	reg := newRegistryWithAgents(t, "light-agent")
	chat := &stubChat{replies: []string{"not json", `{"agentId":"light-agent","confidence":0.8}`}}
	r := New(reg, chat, nil, Options{})

	d, err := r.Route(context.Background(), "turn on the lights")
	require.NoError(t, err)
	assert.Equal(t, "light-agent", d.AgentID)
	assert.Equal(t, 2, chat.calls)
}

func TestRouter_ExhaustsAttemptsFallsBack(t *testing.T) {
	reg := newRegistryWithAgents(t, "light-agent")
	chat := &stubChat{replies: []string{"not json", "still not json", "nope"}}
	r := New(reg, chat, nil, Options{})

	d, err := r.Route(context.Background(), "turn on the lights")
	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackAgentID, d.AgentID)
	assert.Equal(t, 3, chat.calls)
}

func TestRouter_DeduplicatesAndDropsPrimaryFromAdditional(t *testing.T) {
	reg := newRegistryWithAgents(t, "light-agent", "music-agent", "climate-agent")
	chat := &stubChat{replies: []string{
		`{"agentId":"light-agent","confidence":0.9,"additionalAgents":["light-agent","music-agent","music-agent","unknown-agent"]}`,
	}}
	r := New(reg, chat, nil, Options{})

	d, err := r.Route(context.Background(), "turn on lights and play music")
	require.NoError(t, err)
	assert.Equal(t, []string{"music-agent"}, d.AdditionalAgents)
}

func TestRouter_OrchestratorExcludedFromCatalog(t *testing.T) {
	reg := newRegistryWithAgents(t, "light-agent", "orchestrator")
	chat := &stubChat{replies: []string{`{"agentId":"light-agent","confidence":0.9}`}}
	r := New(reg, chat, func(id string) bool { return id == "orchestrator" }, Options{})

	d, err := r.Route(context.Background(), "turn on the lights")
	require.NoError(t, err)
	assert.Equal(t, "light-agent", d.AgentID)
}
