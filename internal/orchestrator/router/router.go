package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seiggy/lucia/internal/orchestrator/agentregistry"
	"github.com/seiggy/lucia/internal/orchestrator/card"
	"github.com/seiggy/lucia/internal/orchestrator/modelprovider"
)

const (
	DefaultTemperature         = 0.3
	DefaultMaxAttempts         = 3
	DefaultConfidenceThreshold = 0.7
	DefaultTimeout             = 5 * time.Second
	DefaultFallbackAgentID     = "general-assistant"
	DefaultClarificationAgentID = "general-assistant"
	DefaultMaxExamplesPerAgent = 3
)

// Options configures Router, all with spec.md §4.4 defaults.
type Options struct {
	Temperature          float64
	MaxAttempts          int
	ConfidenceThreshold  float64
	Timeout              time.Duration
	FallbackAgentID      string
	ClarificationAgentID string
	MaxExamplesPerAgent  int
}

func (o Options) withDefaults() Options {
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.ConfidenceThreshold == 0 {
		o.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.FallbackAgentID == "" {
		o.FallbackAgentID = DefaultFallbackAgentID
	}
	if o.ClarificationAgentID == "" {
		o.ClarificationAgentID = DefaultClarificationAgentID
	}
	if o.MaxExamplesPerAgent == 0 {
		o.MaxExamplesPerAgent = DefaultMaxExamplesPerAgent
	}
	return o
}

// Router performs the one-shot routing LLM call.
type Router struct {
	Registry     *agentregistry.Registry
	ChatClient   modelprovider.ChatClient
	Orchestrator func(agentID string) bool // identifies the orchestrator agent, excluded from the catalog
	Reachable    func(e agentregistry.Entry) bool
	Options      Options
}

// New constructs a Router with defaulted options.
func New(reg *agentregistry.Registry, chat modelprovider.ChatClient, isOrchestrator func(string) bool, opts Options) *Router {
	return &Router{Registry: reg, ChatClient: chat, Orchestrator: isOrchestrator, Options: opts.withDefaults()}
}

var errEmptyMessage = errors.New("router: message must not be empty")

// Route implements spec.md §4.4's full protocol.
func (r *Router) Route(ctx context.Context, message string) (Decision, error) {
	if strings.TrimSpace(message) == "" {
		return Decision{}, errEmptyMessage
	}

	cards := r.Registry.RoutableCards(r.Orchestrator, r.Reachable)
	if len(cards) == 0 {
		return Decision{AgentID: r.Options.FallbackAgentID, Confidence: 0, Reasoning: "no agents available"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.Options.Timeout)
	defer cancel()

	decision, err := r.callWithRetry(ctx, message, cards)
	if err != nil {
		return Decision{AgentID: r.Options.FallbackAgentID, Confidence: 0, Reasoning: "router call failed: " + err.Error()}, nil
	}

	decision = r.validate(decision, cards)
	decision = r.gateConfidence(decision)
	return decision, nil
}

func (r *Router) callWithRetry(ctx context.Context, message string, cards []card.AgentCard) (Decision, error) {
	prompt := buildPrompt(message, cards, r.Options.MaxExamplesPerAgent)

	var lastErr error
	for attempt := 0; attempt < r.Options.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return Decision{}, ctx.Err()
		}

		resp, err := r.ChatClient.Generate(ctx, []modelprovider.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		}, modelprovider.GenerateOptions{
			Temperature:    r.Options.Temperature,
			ResponseSchema: Schema(),
			SchemaName:     "RoutingDecision",
		})
		if err != nil {
			lastErr = err
			continue
		}

		decision, err := parseDecision(resp.Content)
		if err != nil {
			lastErr = err
			continue
		}
		return decision, nil
	}
	return Decision{}, fmt.Errorf("router: exhausted %d attempts: %w", r.Options.MaxAttempts, lastErr)
}

func parseDecision(raw string) (Decision, error) {
	raw = extractJSONObject(raw)
	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Decision{}, fmt.Errorf("router: malformed decision JSON: %w", err)
	}
	if d.AgentID == "" {
		return Decision{}, errors.New("router: decision missing agentId")
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return Decision{}, errors.New("router: confidence out of range")
	}
	return d, nil
}

// extractJSONObject tolerates a chat client wrapping the JSON payload in
// prose or a markdown fence by taking the outermost {...} span.
func extractJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

// validate enforces step 6: unknown primary agentId falls back; unknown or
// duplicate/self-referential additionalAgents are dropped.
func (r *Router) validate(d Decision, cards []card.AgentCard) Decision {
	known := make(map[string]bool, len(cards))
	for _, c := range cards {
		known[c.Name] = true
	}

	if !known[d.AgentID] {
		unknown := d.AgentID
		d.AgentID = r.Options.FallbackAgentID
		d.Confidence = 0
		d.Reasoning = fmt.Sprintf("unknown agent %q returned by router, falling back", unknown)
		d.AdditionalAgents = nil
		return d
	}

	if len(d.AdditionalAgents) > 0 {
		seen := map[string]bool{d.AgentID: true}
		cleaned := make([]string, 0, len(d.AdditionalAgents))
		for _, a := range d.AdditionalAgents {
			if a == "" || seen[a] || !known[a] {
				continue
			}
			seen[a] = true
			cleaned = append(cleaned, a)
		}
		d.AdditionalAgents = cleaned
	}
	return d
}

// gateConfidence implements step 7.
func (r *Router) gateConfidence(d Decision) Decision {
	if d.Confidence < r.Options.ConfidenceThreshold {
		d.AgentID = r.Options.ClarificationAgentID
	}
	return d
}

const systemPrompt = `You are a routing assistant. Given a user request and a catalog of ` +
	`available agents, choose exactly one primary agent to handle it. Respond with a ` +
	`single JSON object matching this shape: {"agentId": string, "confidence": number ` +
	`between 0 and 1, "reasoning": string, "additionalAgents": [string]}. Do not include ` +
	`any text outside the JSON object.`

func buildPrompt(message string, cards []card.AgentCard, maxExamples int) string {
	var b strings.Builder
	b.WriteString("Catalog:\n")
	for _, c := range cards {
		fmt.Fprintf(&b, "- id: %s\n  description: %s\n", c.Name, c.Description)
		if examples := c.ExampleUtterances(maxExamples); len(examples) > 0 {
			fmt.Fprintf(&b, "  examples: %s\n", strings.Join(examples, "; "))
		}
	}
	b.WriteString("\nRequest: ")
	b.WriteString(message)
	return b.String()
}
