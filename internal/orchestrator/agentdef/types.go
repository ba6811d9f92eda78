// Package agentdef holds the persisted records the agent builder (§4.3)
// consumes: agent definitions, model providers, and tool servers.
package agentdef

import "time"

// ToolRef binds one tool, by name, on one tool server.
type ToolRef struct {
	ServerID string `json:"serverId" yaml:"serverId"`
	ToolName string `json:"toolName" yaml:"toolName"`
}

// AgentDefinition is the durable record used to materialize an agent.
// Identity is ID, which doubles as the resulting AgentCard's name.
type AgentDefinition struct {
	ID                  string    `json:"id" yaml:"id"`
	DisplayName         string    `json:"displayName" yaml:"displayName"`
	Description         string    `json:"description" yaml:"description"`
	Instruction         string    `json:"instruction" yaml:"instruction"`
	ModelConnectionName string    `json:"modelConnectionName,omitempty" yaml:"modelConnectionName,omitempty"`
	EmbeddingProvider   string    `json:"embeddingProvider,omitempty" yaml:"embeddingProvider,omitempty"`
	Tools               []ToolRef `json:"tools,omitempty" yaml:"tools,omitempty"`
	IsBuiltIn           bool      `json:"isBuiltIn" yaml:"isBuiltIn"`
	IsRemote            bool      `json:"isRemote" yaml:"isRemote"`
	IsOrchestrator      bool      `json:"isOrchestrator" yaml:"isOrchestrator"`
	RemoteURL           string    `json:"remoteUrl,omitempty" yaml:"remoteUrl,omitempty"`
	Enabled             bool      `json:"enabled" yaml:"enabled"`
	CreatedAt           time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// SetDefaults fills fields a caller may have left zero, following the
// SetDefaults/Validate idiom used across the config package.
func (d *AgentDefinition) SetDefaults() {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.UpdatedAt = time.Now().UTC()
}

func (d *AgentDefinition) Validate() error {
	if d.ID == "" {
		return &DefError{Component: "AgentDefinition", Action: "Validate", Message: "id is required"}
	}
	if d.Description == "" {
		return &DefError{Component: "AgentDefinition", Action: "Validate", Message: "description is required"}
	}
	if d.IsRemote && d.RemoteURL == "" {
		return &DefError{Component: "AgentDefinition", Action: "Validate", Message: "remote agent requires remoteUrl"}
	}
	return nil
}

// ProviderType enumerates the model-connection backends the resolver knows
// how to construct a client for.
type ProviderType string

const (
	ProviderOpenAICompatible ProviderType = "openai-compatible"
	ProviderAzureOpenAI      ProviderType = "azure-openai"
	ProviderAzureAIInference ProviderType = "azure-ai-inference"
	ProviderOllama           ProviderType = "ollama"
	ProviderAgent            ProviderType = "agent-producing"
)

// Purpose distinguishes chat providers from embedding providers. It is
// recorded on the provider but not checked when a definition's
// ModelConnectionName is resolved to a chat client.
type Purpose string

const (
	PurposeChat      Purpose = "chat"
	PurposeEmbedding Purpose = "embedding"
)

// Auth carries either a bare API key or a request to use ambient/default
// credentials (used for Azure's managed-identity flow).
type Auth struct {
	APIKey                string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	UseDefaultCredentials bool   `json:"useDefaultCredentials,omitempty" yaml:"useDefaultCredentials,omitempty"`
}

// ModelProvider is the persisted record the resolver (§4.2) dispatches on.
type ModelProvider struct {
	ID          string       `json:"id" yaml:"id"`
	Type        ProviderType `json:"type" yaml:"type"`
	Purpose     Purpose      `json:"purpose" yaml:"purpose"`
	EndpointURL string       `json:"endpointUrl,omitempty" yaml:"endpointUrl,omitempty"`
	ModelName   string       `json:"modelName" yaml:"modelName"`
	Auth        Auth         `json:"auth,omitempty" yaml:"auth,omitempty"`
	Enabled     bool         `json:"enabled" yaml:"enabled"`
	IsBuiltIn   bool         `json:"isBuiltIn" yaml:"isBuiltIn"`
}

// DefaultChatProviderID is the well-known id that agents without an
// explicit ModelConnectionName implicitly fall back to.
const DefaultChatProviderID = "default-chat"

func (p *ModelProvider) Validate() error {
	if p.ID == "" {
		return &DefError{Component: "ModelProvider", Action: "Validate", Message: "id is required"}
	}
	if p.ModelName == "" && p.Type != ProviderAgent {
		return &DefError{Component: "ModelProvider", Action: "Validate", Message: "modelName is required"}
	}
	switch p.Type {
	case ProviderOpenAICompatible, ProviderAzureOpenAI, ProviderAzureAIInference, ProviderOllama, ProviderAgent:
	default:
		return &DefError{Component: "ModelProvider", Action: "Validate", Message: "unknown provider type: " + string(p.Type)}
	}
	return nil
}

// Transport enumerates how the tool-server client reaches a ToolServer.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
	TransportSSE   Transport = "sse"
)

// ToolServer is the persisted record describing one external tool source.
type ToolServer struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Transport Transport         `json:"transport" yaml:"transport"`
	URL       string            `json:"url,omitempty" yaml:"url,omitempty"`
	Command   string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args      []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Enabled   bool              `json:"enabled" yaml:"enabled"`
}

func (s *ToolServer) Validate() error {
	if s.ID == "" {
		return &DefError{Component: "ToolServer", Action: "Validate", Message: "id is required"}
	}
	switch s.Transport {
	case TransportStdio:
		if s.Command == "" {
			return &DefError{Component: "ToolServer", Action: "Validate", Message: "stdio transport requires command"}
		}
	case TransportHTTP, TransportSSE:
		if s.URL == "" {
			return &DefError{Component: "ToolServer", Action: "Validate", Message: "http/sse transport requires url"}
		}
	default:
		return &DefError{Component: "ToolServer", Action: "Validate", Message: "unknown transport: " + string(s.Transport)}
	}
	return nil
}

// DefError is the shared typed error for this package, following the
// {Component, Action, Message, Err} convention used by the teacher's
// AgentRegistryError/TaskError.
type DefError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *DefError) Error() string {
	if e.Err != nil {
		return e.Component + ":" + e.Action + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Component + ":" + e.Action + ": " + e.Message
}

func (e *DefError) Unwrap() error { return e.Err }
