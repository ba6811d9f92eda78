// Package card defines the public-facing agent description used for
// discovery and rendered into the router's agent catalog.
package card

// Skill is one declared capability of an agent, surfaced to the router's
// catalog and to external A2A discovery.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// Capabilities advertises protocol-level features an agent supports.
type Capabilities struct {
	Streaming               bool `json:"streaming"`
	PushNotifications       bool `json:"pushNotifications"`
	StateTransitionHistory  bool `json:"stateTransitionHistory"`
}

// AgentCard is the public description of an agent: identity is Name, which
// is stable across restarts and doubles as the AgentDefinition id.
type AgentCard struct {
	Name               string       `json:"name"`
	DisplayName        string       `json:"displayName"`
	Description        string       `json:"description"`
	Version            string       `json:"version,omitempty"`
	Skills             []Skill      `json:"skills"`
	Capabilities       Capabilities `json:"capabilities"`
	DefaultInputModes  []string     `json:"defaultInputModes"`
	DefaultOutputModes []string     `json:"defaultOutputModes"`

	// RemoteURL is set when the agent lives in a satellite process; empty
	// for in-process invokables. Dispatch uses its presence to decide the
	// local-vs-remote variant (see agentregistry).
	RemoteURL string `json:"remoteUrl,omitempty"`
}

// Validate enforces the invariants spec.md §3 names for AgentCard: a stable,
// non-empty name and a non-empty description (the router's catalog renders
// description verbatim, so an empty one would silently starve routing).
func (c AgentCard) Validate() error {
	if c.Name == "" {
		return errCardInvalid("name is required")
	}
	if c.Description == "" {
		return errCardInvalid("description is required")
	}
	return nil
}

type cardError string

func (e cardError) Error() string { return string(e) }

func errCardInvalid(msg string) error { return cardError("card: " + msg) }

// ExampleUtterances flattens up to n example utterances across all declared
// skills, preserving skill order. Used by the router to render a bounded
// catalog entry per agent (spec.md §4.4 step 2).
func (c AgentCard) ExampleUtterances(n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for _, s := range c.Skills {
		for _, ex := range s.Examples {
			out = append(out, ex)
			if len(out) == n {
				return out
			}
		}
	}
	return out
}
