// Package modelprovider resolves an agentdef.ModelProvider record into a
// typed, ready-to-call chat or embedding client (spec.md §4.2).
package modelprovider

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/seiggy/lucia/internal/orchestrator/agentdef"
)

// Message is one turn in a chat exchange, mirroring the role/content shape
// every provider branch below converts to its own wire format.
type Message struct {
	Role    string
	Content string
}

// ChatResponse is the provider-agnostic result of one chat completion call.
type ChatResponse struct {
	Content string
	ToolCalls []ToolCall
}

// ToolCall is a single tool invocation the model requested.
type ToolCall struct {
	Name string
	Args string // raw JSON
}

// GenerateOptions carries per-call sampling/response-shape knobs that most
// callers leave zero-valued (in which case each provider branch falls back
// to its own default). The router (§4.4 step 4) is the one caller that sets
// both fields, to get a low-temperature, schema-constrained routing decision.
type GenerateOptions struct {
	// Temperature overrides the provider's default sampling temperature.
	// Zero means "use the provider's default."
	Temperature float64

	// ResponseSchema, when set, asks the provider to constrain its output to
	// this JSON schema (OpenAI-compatible: response_format; Ollama: format).
	ResponseSchema *jsonschema.Schema

	// SchemaName labels ResponseSchema in providers that require a name
	// (OpenAI's response_format.json_schema.name).
	SchemaName string
}

// ChatClient is the interface every resolved provider branch implements.
type ChatClient interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (ChatResponse, error)
	ModelName() string
}

// EmbeddingGenerator produces a vector embedding for a piece of text.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// AgentProducer describes the special "agent-producing" provider branch,
// which hands back a pre-built agent object instead of a chat client.
// Nothing in this module implements or consults it: CreateChatClient
// rejects agent-producing providers with an error, and the agent builder
// has no separate path for them.
type AgentProducer interface {
	ProduceAgent(ctx context.Context) (any, error)
}

// Resolver constructs and memoizes chat/embedding clients keyed by
// provider.id — mirrors llms.LLMRegistry's dispatch-by-type idiom, but keyed
// and cached per provider id rather than per provider name. A cached client
// is dropped only by an explicit Invalidate call; updating a provider record
// in the repository does not invalidate it.
type Resolver struct {
	mu       sync.RWMutex
	chatByID map[string]ChatClient
	embByID  map[string]EmbeddingGenerator
	httpDo   func(*http.Request) (*http.Response, error)
}

func NewResolver() *Resolver {
	return &Resolver{
		chatByID: make(map[string]ChatClient),
		embByID:  make(map[string]EmbeddingGenerator),
		httpDo:   (&http.Client{Timeout: DefaultHTTPTimeout}).Do,
	}
}

// Invalidate drops any cached client for provider id, forcing the next
// CreateChatClient/CreateEmbeddingClient call to rebuild it.
func (r *Resolver) Invalidate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chatByID, id)
	delete(r.embByID, id)
}

// CreateChatClient resolves p into a ChatClient, dispatching on p.Type.
func (r *Resolver) CreateChatClient(p agentdef.ModelProvider) (ChatClient, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	if c, ok := r.chatByID[p.ID]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	var client ChatClient
	var err error

	switch p.Type {
	case agentdef.ProviderOpenAICompatible:
		client, err = newOpenAICompatibleClient(p, r.httpDo)
	case agentdef.ProviderAzureOpenAI:
		client, err = newAzureOpenAIClient(p, r.httpDo)
	case agentdef.ProviderAzureAIInference:
		client, err = newAzureAIInferenceClient(p, r.httpDo)
	case agentdef.ProviderOllama:
		client, err = newOllamaClient(p, r.httpDo)
	case agentdef.ProviderAgent:
		return nil, fmt.Errorf("modelprovider: provider %q is agent-producing and has no chat client", p.ID)
	default:
		return nil, fmt.Errorf("modelprovider: unsupported provider type %q", p.Type)
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.chatByID[p.ID] = client
	r.mu.Unlock()
	return client, nil
}

// CreateEmbeddingClient resolves p into an EmbeddingGenerator. Only the
// OpenAI-compatible and Ollama branches support embeddings in this module;
// the rest return a typed error (see agentdef provider type-enum — the
// corpus has no Azure SDK to ground an Azure embeddings path on).
func (r *Resolver) CreateEmbeddingClient(p agentdef.ModelProvider) (EmbeddingGenerator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	if c, ok := r.embByID[p.ID]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	var client EmbeddingGenerator
	var err error

	switch p.Type {
	case agentdef.ProviderOpenAICompatible:
		client, err = newOpenAICompatibleEmbedder(p, r.httpDo)
	case agentdef.ProviderOllama:
		client, err = newOllamaEmbedder(p, r.httpDo)
	default:
		return nil, fmt.Errorf("modelprovider: provider type %q does not support embeddings", p.Type)
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.embByID[p.ID] = client
	r.mu.Unlock()
	return client, nil
}

// DefaultHTTPTimeout bounds every provider HTTP call made by this package.
const DefaultHTTPTimeout = 30 * time.Second
