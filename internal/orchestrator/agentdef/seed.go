package agentdef

// Seeder populates a Repository with built-in agents and the default chat
// provider on first start. The built-in set is deliberately configuration,
// not a fixed enum: spec.md §9's open question on divergent built-in sets
// across source snapshots says implementations should accept whatever set
// the seeder provides.
type Seeder struct {
	Agents    []AgentDefinition
	Providers []ModelProvider
}

// DefaultSeeder returns the built-in agent set named in SPEC_FULL.md §6:
// general-assistant, light-agent, climate-agent, music-agent, timer-agent,
// lists-agent, and the orchestrator agent itself (is-orchestrator, excluded
// from routing per router.go step 1).
func DefaultSeeder() Seeder {
	builtins := []struct {
		id, display, desc, instruction string
		orchestrator                   bool
	}{
		{"general-assistant", "General Assistant", "Handles general questions and requests that don't fit a specialized domain.", "You are a helpful general-purpose home assistant.", false},
		{"light-agent", "Lighting", "Controls lights: on/off, brightness, color, scenes.", "You control lighting devices via the available tools.", false},
		{"climate-agent", "Climate", "Controls thermostats, fans, and climate presets.", "You control climate devices via the available tools.", false},
		{"music-agent", "Music", "Controls media players: play, pause, volume, queue.", "You control media playback via the available tools.", false},
		{"timer-agent", "Timers & Alarms", "Creates and manages timers and alarms.", "You create and manage timers and alarms via the available tools.", false},
		{"lists-agent", "Lists", "Manages shopping and to-do lists.", "You manage lists via the available tools.", false},
		{"orchestrator", "Orchestrator", "Internal routing and dispatch coordinator.", "Not directly invoked by end users.", true},
	}

	s := Seeder{}
	for _, b := range builtins {
		s.Agents = append(s.Agents, AgentDefinition{
			ID:             b.id,
			DisplayName:    b.display,
			Description:    b.desc,
			Instruction:    b.instruction,
			IsBuiltIn:      true,
			IsOrchestrator: b.orchestrator,
			Enabled:        true,
		})
	}

	s.Providers = append(s.Providers, ModelProvider{
		ID:        DefaultChatProviderID,
		Type:      ProviderOpenAICompatible,
		Purpose:   PurposeChat,
		ModelName: "gpt-4o-mini",
		IsBuiltIn: true,
		Enabled:   true,
	})

	return s
}

// Seed writes every built-in record into repo, skipping ones already present
// so repeated startups are idempotent.
func (s Seeder) Seed(repo *Repository) error {
	for _, def := range s.Agents {
		if _, exists := repo.GetAgent(def.ID); exists {
			continue
		}
		if err := repo.PutAgent(def); err != nil {
			return err
		}
	}
	for _, p := range s.Providers {
		if _, exists := repo.GetProvider(p.ID); exists {
			continue
		}
		if err := repo.PutProvider(p); err != nil {
			return err
		}
	}
	return nil
}
