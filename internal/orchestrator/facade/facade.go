// Package facade implements the orchestrator façade (spec.md §4.7): the
// single entry point that normalizes a request, consults the routing
// cache, calls the router and dispatcher, aggregates the result, and
// persists the turn — used identically by live chat requests and by
// deferred scheduled-task firings (§4.10).
package facade

import (
	"context"
	"fmt"
	"time"

	"github.com/seiggy/lucia/internal/orchestrator/aggregator"
	"github.com/seiggy/lucia/internal/orchestrator/cache"
	"github.com/seiggy/lucia/internal/orchestrator/dispatch"
	"github.com/seiggy/lucia/internal/orchestrator/router"
	"github.com/seiggy/lucia/internal/orchestrator/sessioncache"
	"github.com/seiggy/lucia/internal/orchestrator/tracing"
)

// Request is one incoming chat request.
type Request struct {
	SessionID string
	Prompt    string

	// TargetAgentID bypasses the router entirely when set (used by
	// scheduled AgentTasks that name a fixed agent, §4.10.3).
	TargetAgentID string
}

// Result is what the façade returns to its caller.
type Result struct {
	Message  string
	Decision router.Decision
}

// Facade wires together the router, dispatcher, aggregator, session cache,
// routing cache, and the pipeline-level trace store.
type Facade struct {
	Router          *router.Router
	Dispatcher      *dispatch.Executor
	Sessions        *sessioncache.Cache
	Cache           *cache.Cache
	TraceStore      tracing.Store
	FallbackMessage string
	RoutingModelID  string
	RouterCacheTTL  time.Duration
}

// Handle implements the seven-step pipeline in spec.md §4.7.
func (f *Facade) Handle(ctx context.Context, req Request) (Result, error) {
	prompt := cache.NormalizePrompt(req.Prompt)
	if prompt == "" {
		return Result{}, fmt.Errorf("facade: prompt must not be empty")
	}

	start := time.Now()
	session := f.Sessions.Get(req.SessionID)

	decision, err := f.decide(ctx, prompt, session.PinnedAgentID, req.TargetAgentID)
	if err != nil {
		return Result{}, err
	}

	responses := f.Dispatcher.Run(ctx, decision, prompt, session.Turns)
	message := aggregator.Aggregate(responses, f.FallbackMessage)

	f.Sessions.AppendTurn(req.SessionID, "user", prompt)
	f.Sessions.AppendTurn(req.SessionID, "assistant", message)

	if f.TraceStore != nil {
		f.TraceStore.Append(tracing.TraceRecord{
			AgentID:   decision.AgentID,
			Timestamp: start,
			Prompt:    prompt,
			Response:  message,
			Duration:  time.Since(start),
			Success:   anySucceeded(responses),
		})
	}

	return Result{Message: message, Decision: decision}, nil
}

func (f *Facade) decide(ctx context.Context, prompt, pinnedAgentID, targetAgentID string) (router.Decision, error) {
	if targetAgentID != "" {
		// Scheduled AgentTask with a fixed target bypasses the router
		// entirely (§4.10, "If targetAgentId is set, bypass the router").
		return router.Decision{AgentID: targetAgentID, Confidence: 1, Reasoning: "bypassed router: fixed target agent"}, nil
	}

	fingerprint := cache.Fingerprint(prompt, pinnedAgentID, cache.RouterSalt(f.RoutingModelID))
	if f.Cache != nil {
		if cached, ok := f.Cache.Get(cache.NamespaceRouter, fingerprint); ok {
			if d, ok := cached.(router.Decision); ok {
				return d, nil
			}
		}
	}

	decision, err := f.Router.Route(ctx, prompt)
	if err != nil {
		return router.Decision{}, err
	}

	if pinnedAgentID != "" && decision.Confidence > 0 {
		decision.AgentID = pinnedAgentID
	}

	if f.Cache != nil {
		f.Cache.Put(cache.NamespaceRouter, fingerprint, decision, f.RouterCacheTTL)
	}
	return decision, nil
}

func anySucceeded(responses []dispatch.Response) bool {
	for _, r := range responses {
		if r.Success {
			return true
		}
	}
	return false
}
