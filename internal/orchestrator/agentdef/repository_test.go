package agentdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_PutAndGetAgent(t *testing.T) {
	repo := NewRepository()

	err := repo.PutAgent(AgentDefinition{ID: "light-agent", Description: "controls lights"})
	require.NoError(t, err)

	got, ok := repo.GetAgent("light-agent")
	require.True(t, ok)
	assert.Equal(t, "controls lights", got.Description)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRepository_PutAgentRejectsInvalid(t *testing.T) {
	repo := NewRepository()
	err := repo.PutAgent(AgentDefinition{Description: "no id"})
	assert.Error(t, err)
}

func TestRepository_DeleteProtectsBuiltIns(t *testing.T) {
	repo := NewRepository()
	require.NoError(t, repo.PutAgent(AgentDefinition{ID: "general-assistant", Description: "d", IsBuiltIn: true}))

	err := repo.DeleteAgent("general-assistant")
	assert.Error(t, err)

	_, ok := repo.GetAgent("general-assistant")
	assert.True(t, ok)
}

func TestRepository_DeleteNonBuiltInSucceeds(t *testing.T) {
	repo := NewRepository()
	require.NoError(t, repo.PutAgent(AgentDefinition{ID: "custom", Description: "d"}))

	require.NoError(t, repo.DeleteAgent("custom"))
	_, ok := repo.GetAgent("custom")
	assert.False(t, ok)
}

func TestSeeder_SeedIsIdempotent(t *testing.T) {
	repo := NewRepository()
	seeder := DefaultSeeder()

	require.NoError(t, seeder.Seed(repo))
	require.NoError(t, seeder.Seed(repo))

	assert.Equal(t, len(seeder.Agents), len(repo.ListAgents()))
	_, ok := repo.GetProvider(DefaultChatProviderID)
	assert.True(t, ok)
}

func TestSeeder_OrchestratorFlagSet(t *testing.T) {
	seeder := DefaultSeeder()
	repo := NewRepository()
	require.NoError(t, seeder.Seed(repo))

	orch, ok := repo.GetAgent("orchestrator")
	require.True(t, ok)
	assert.True(t, orch.IsOrchestrator)
}
