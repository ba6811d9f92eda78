package agentbuilder

import (
	"context"
	"testing"
	"time"

	"github.com/seiggy/lucia/internal/orchestrator/agentdef"
	"github.com/seiggy/lucia/internal/orchestrator/agentregistry"
	"github.com/seiggy/lucia/internal/orchestrator/modelprovider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_RebuildAllRegistersEnabledAgents(t *testing.T) {
	repo := agentdef.NewRepository()
	require.NoError(t, repo.PutAgent(agentdef.AgentDefinition{ID: "remote-agent", Description: "d", IsRemote: true, RemoteURL: "https://peer", Enabled: true}))
	require.NoError(t, repo.PutAgent(agentdef.AgentDefinition{ID: "disabled-agent", Description: "d", Enabled: false}))

	reg := agentregistry.New()
	b := &Builder{Repo: repo, Resolver: modelprovider.NewResolver()}
	loader := NewLoader(b, reg)

	loader.RebuildAll(context.Background())

	_, err := reg.Lookup("remote-agent")
	assert.NoError(t, err)
	_, err = reg.Lookup("disabled-agent")
	assert.Error(t, err)
}

func TestLoader_RunRebuildsOnNotify(t *testing.T) {
	repo := agentdef.NewRepository()
	reg := agentregistry.New()
	b := &Builder{Repo: repo, Resolver: modelprovider.NewResolver()}
	loader := NewLoader(b, reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		loader.Run(ctx)
		close(done)
	}()

	require.NoError(t, repo.PutAgent(agentdef.AgentDefinition{ID: "remote-agent", Description: "d", IsRemote: true, RemoteURL: "https://peer", Enabled: true}))
	loader.Notify()

	require.Eventually(t, func() bool {
		_, err := reg.Lookup("remote-agent")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
