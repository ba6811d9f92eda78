package modelprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/seiggy/lucia/internal/orchestrator/agentdef"
)

// ollamaClient is a bare net/http client rooted at the provider's endpoint,
// tagged with the model name — matching llms.OllamaProvider's construction
// idiom (NewOllamaProviderFromConfig calling SetDefaults/Validate) without
// vendoring the teacher's dedicated ollama SDK dependency, since this
// resolver keeps every branch on the same minimal net/http surface.
type ollamaClient struct {
	baseURL   string
	modelName string
	do        httpDoFunc
}

func newOllamaClient(p agentdef.ModelProvider, do httpDoFunc) (*ollamaClient, error) {
	base := strings.TrimSuffix(p.EndpointURL, "/")
	if base == "" {
		base = "http://localhost:11434"
	}
	return &ollamaClient{baseURL: base, modelName: p.ModelName, do: do}, nil
}

func (c *ollamaClient) ModelName() string { return c.modelName }

type ollamaChatRequest struct {
	Model    string             `json:"model"`
	Messages []openAIMessage    `json:"messages"`
	Stream   bool               `json:"stream"`
	Options  *ollamaOptions     `json:"options,omitempty"`
	Format   *jsonschema.Schema `json:"format,omitempty"`
}

// ollamaOptions mirrors the subset of Ollama's /api/chat "options" object
// this resolver exercises.
type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message openAIMessage `json:"message"`
}

func (c *ollamaClient) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (ChatResponse, error) {
	reqBody := ollamaChatRequest{Model: c.modelName, Stream: false}
	if opts.Temperature != 0 {
		reqBody.Options = &ollamaOptions{Temperature: opts.Temperature}
	}
	if opts.ResponseSchema != nil {
		reqBody.Format = opts.ResponseSchema
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	buf, err := json.Marshal(reqBody)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("modelprovider: marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(buf))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("modelprovider: build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.do(httpReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("modelprovider: ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ChatResponse{}, fmt.Errorf("modelprovider: decode ollama response: %w", err)
	}
	return ChatResponse{Content: out.Message.Content}, nil
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaEmbedder struct {
	baseURL   string
	modelName string
	do        httpDoFunc
}

func newOllamaEmbedder(p agentdef.ModelProvider, do httpDoFunc) (*ollamaEmbedder, error) {
	base := strings.TrimSuffix(p.EndpointURL, "/")
	if base == "" {
		base = "http://localhost:11434"
	}
	return &ollamaEmbedder{baseURL: base, modelName: p.ModelName, do: do}, nil
}

func (e *ollamaEmbedder) ModelName() string { return e.modelName }

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	buf, err := json.Marshal(ollamaEmbedRequest{Model: e.modelName, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("modelprovider: marshal ollama embed request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("modelprovider: build ollama embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("modelprovider: ollama embed request failed: %w", err)
	}
	defer resp.Body.Close()

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("modelprovider: decode ollama embed response: %w", err)
	}
	return out.Embedding, nil
}
