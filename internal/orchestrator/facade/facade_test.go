package facade

import (
	"context"
	"testing"

	"github.com/seiggy/lucia/internal/orchestrator/agentregistry"
	"github.com/seiggy/lucia/internal/orchestrator/cache"
	"github.com/seiggy/lucia/internal/orchestrator/card"
	"github.com/seiggy/lucia/internal/orchestrator/dispatch"
	"github.com/seiggy/lucia/internal/orchestrator/modelprovider"
	"github.com/seiggy/lucia/internal/orchestrator/router"
	"github.com/seiggy/lucia/internal/orchestrator/sessioncache"
	"github.com/seiggy/lucia/internal/orchestrator/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInvokable struct{ reply string }

func (s *stubInvokable) Invoke(ctx context.Context, prompt string, history []agentregistry.Turn) (string, error) {
	return s.reply, nil
}

type stubChat struct{ reply string }

func (s *stubChat) Generate(ctx context.Context, messages []modelprovider.Message, opts modelprovider.GenerateOptions) (modelprovider.ChatResponse, error) {
	return modelprovider.ChatResponse{Content: s.reply}, nil
}
func (s *stubChat) ModelName() string { return "stub" }

func newFacade(t *testing.T) *Facade {
	t.Helper()
	reg := agentregistry.New()
	reg.Put("light-agent", agentregistry.Entry{
		Card:  card.AgentCard{Name: "light-agent", Description: "controls lights"},
		Local: &stubInvokable{reply: "kitchen lights are on"},
	})

	chat := &stubChat{reply: `{"agentId":"light-agent","confidence":0.9}`}
	r := router.New(reg, chat, nil, router.Options{})
	d := dispatch.New(reg, nil, dispatch.Options{})

	return &Facade{
		Router:     r,
		Dispatcher: d,
		Sessions:   sessioncache.New(0),
		Cache:      cache.New(0),
		TraceStore: tracing.NewRingStore(10),
	}
}

func TestFacade_HandleHappyPath(t *testing.T) {
	f := newFacade(t)
	res, err := f.Handle(context.Background(), Request{SessionID: "s1", Prompt: "turn on the kitchen lights"})
	require.NoError(t, err)
	assert.Contains(t, res.Message, "kitchen")
	assert.Equal(t, "light-agent", res.Decision.AgentID)
}

func TestFacade_RejectsEmptyPrompt(t *testing.T) {
	f := newFacade(t)
	_, err := f.Handle(context.Background(), Request{SessionID: "s1", Prompt: "   "})
	assert.Error(t, err)
}

func TestFacade_PersistsTurnsInSession(t *testing.T) {
	f := newFacade(t)
	_, err := f.Handle(context.Background(), Request{SessionID: "s1", Prompt: "turn on the kitchen lights"})
	require.NoError(t, err)

	ctx := f.Sessions.Get("s1")
	require.Len(t, ctx.Turns, 2)
	assert.Equal(t, "user", ctx.Turns[0].Role)
	assert.Equal(t, "assistant", ctx.Turns[1].Role)
}

func TestFacade_SecondIdenticalRequestHitsRouterCache(t *testing.T) {
	f := newFacade(t)
	_, err := f.Handle(context.Background(), Request{SessionID: "s1", Prompt: "turn on the kitchen lights"})
	require.NoError(t, err)

	stats := f.Cache.Stats(cache.NamespaceRouter)
	assert.Equal(t, 0, int(stats.HitCount))

	_, err = f.Handle(context.Background(), Request{SessionID: "s2", Prompt: "turn on the kitchen lights"})
	require.NoError(t, err)

	stats = f.Cache.Stats(cache.NamespaceRouter)
	assert.Equal(t, int64(1), stats.HitCount)
}

func TestFacade_TargetAgentIDBypassesRouter(t *testing.T) {
	f := newFacade(t)
	res, err := f.Handle(context.Background(), Request{SessionID: "s1", Prompt: "announce bedtime", TargetAgentID: "light-agent"})
	require.NoError(t, err)
	assert.Equal(t, "light-agent", res.Decision.AgentID)
	assert.Contains(t, res.Decision.Reasoning, "bypassed router")
}
