package modelprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/invopop/jsonschema"

	"github.com/seiggy/lucia/internal/orchestrator/agentdef"
)

// openAIRequest/openAIResponse mirror the teacher's OpenAIRequest/Response
// shape, trimmed to the fields this resolver needs (no streaming, no
// function-calling wiring — tool execution happens inside the agent
// builder's tool layer, not here).
type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

// openAIResponseFormat requests schema-constrained output, per the
// OpenAI-compatible response_format convention.
type openAIResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema openAIJSONSchema `json:"json_schema"`
}

type openAIJSONSchema struct {
	Name   string             `json:"name"`
	Strict bool               `json:"strict"`
	Schema *jsonschema.Schema `json:"schema"`
}

const defaultChatTemperature = 0.7

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type httpDoFunc func(*http.Request) (*http.Response, error)

// openAICompatibleClient talks to any endpoint implementing the OpenAI
// chat-completions wire format: the generic provider, and (with a different
// base URL/header set) Azure OpenAI.
type openAICompatibleClient struct {
	endpoint  string
	modelName string
	apiKey    string
	authHdr   func(*http.Request, string)
	do        httpDoFunc
}

func newOpenAICompatibleClient(p agentdef.ModelProvider, do httpDoFunc) (*openAICompatibleClient, error) {
	endpoint := p.EndpointURL
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}
	return &openAICompatibleClient{
		endpoint:  endpoint,
		modelName: p.ModelName,
		apiKey:    p.Auth.APIKey,
		authHdr: func(r *http.Request, key string) {
			r.Header.Set("Authorization", "Bearer "+key)
		},
		do: do,
	}, nil
}

func newAzureOpenAIClient(p agentdef.ModelProvider, do httpDoFunc) (*openAICompatibleClient, error) {
	if p.EndpointURL == "" {
		return nil, fmt.Errorf("modelprovider: azure-openai provider %q requires endpointUrl", p.ID)
	}
	c := &openAICompatibleClient{
		endpoint:  p.EndpointURL,
		modelName: p.ModelName,
		apiKey:    p.Auth.APIKey,
		do:        do,
	}
	if p.Auth.UseDefaultCredentials {
		// Ambient-identity token acquisition is an external concern (no
		// Azure SDK is present in the example corpus to ground a concrete
		// implementation on); requests are sent unauthenticated and the
		// caller is expected to front this client with a transport that
		// injects the ambient token.
		c.authHdr = func(*http.Request, string) {}
	} else {
		c.authHdr = func(r *http.Request, key string) {
			r.Header.Set("api-key", key)
		}
	}
	return c, nil
}

func (c *openAICompatibleClient) ModelName() string { return c.modelName }

func (c *openAICompatibleClient) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (ChatResponse, error) {
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = defaultChatTemperature
	}

	reqBody := openAIRequest{Model: c.modelName, Temperature: temperature}
	if opts.ResponseSchema != nil {
		name := opts.SchemaName
		if name == "" {
			name = "Response"
		}
		reqBody.ResponseFormat = &openAIResponseFormat{
			Type: "json_schema",
			JSONSchema: openAIJSONSchema{
				Name:   name,
				Strict: true,
				Schema: opts.ResponseSchema,
			},
		}
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	buf, err := json.Marshal(reqBody)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("modelprovider: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("modelprovider: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authHdr != nil {
		c.authHdr(httpReq, c.apiKey)
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("modelprovider: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("modelprovider: read response: %w", err)
	}

	var out openAIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return ChatResponse{}, fmt.Errorf("modelprovider: decode response: %w", err)
	}
	if out.Error != nil {
		return ChatResponse{}, fmt.Errorf("modelprovider: provider error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("modelprovider: empty choices in response")
	}

	return ChatResponse{Content: out.Choices[0].Message.Content}, nil
}

// --- embeddings ---

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type openAICompatibleEmbedder struct {
	endpoint  string
	modelName string
	apiKey    string
	do        httpDoFunc
}

func newOpenAICompatibleEmbedder(p agentdef.ModelProvider, do httpDoFunc) (*openAICompatibleEmbedder, error) {
	endpoint := p.EndpointURL
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/embeddings"
	}
	return &openAICompatibleEmbedder{endpoint: endpoint, modelName: p.ModelName, apiKey: p.Auth.APIKey, do: do}, nil
}

func (e *openAICompatibleEmbedder) ModelName() string { return e.modelName }

func (e *openAICompatibleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	buf, err := json.Marshal(openAIEmbedRequest{Model: e.modelName, Input: text})
	if err != nil {
		return nil, fmt.Errorf("modelprovider: marshal embed request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("modelprovider: build embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("modelprovider: embed request failed: %w", err)
	}
	defer resp.Body.Close()

	var out openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("modelprovider: decode embed response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("modelprovider: empty embedding data")
	}
	return out.Data[0].Embedding, nil
}

// azureAIInferenceClient talks to the raw Azure AI Inference chat API,
// which uses the same request/response shape as OpenAI-compatible but a
// distinct auth header name ("api-key") and no implicit default endpoint.
type azureAIInferenceClient struct {
	*openAICompatibleClient
}

func newAzureAIInferenceClient(p agentdef.ModelProvider, do httpDoFunc) (*azureAIInferenceClient, error) {
	if p.EndpointURL == "" {
		return nil, fmt.Errorf("modelprovider: azure-ai-inference provider %q requires endpointUrl", p.ID)
	}
	base := &openAICompatibleClient{
		endpoint:  p.EndpointURL,
		modelName: p.ModelName,
		apiKey:    p.Auth.APIKey,
		do:        do,
	}
	base.authHdr = func(r *http.Request, key string) {
		r.Header.Set("api-key", key)
	}
	return &azureAIInferenceClient{openAICompatibleClient: base}, nil
}
