// Package dispatch implements the dispatch executor (spec.md §4.5): given a
// routing decision, invoke each named agent — locally in-process or
// remotely via JSON-RPC 2.0 — in parallel, with per-call timeout, bounded
// retry for transient errors, and an OpenTelemetry span per invocation.
// Grounded on a2a/client.go's ExecuteTaskRequest HTTP plumbing for the
// remote variant.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/seiggy/lucia/internal/orchestrator/agentregistry"
	"github.com/seiggy/lucia/internal/orchestrator/router"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryDelay   = 1 * time.Second
)

// Response is one agent's outcome, matching spec.md §3's AgentResponse.
type Response struct {
	AgentID    string
	Content    string
	Success    bool
	Error      string
	DurationMS int64
	ToolCalls  []string
}

// Options configures the executor, all with spec.md §4.5 defaults.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

// Executor runs a routing decision's primary plus additional agents.
type Executor struct {
	Registry   *agentregistry.Registry
	HTTPClient *http.Client
	Options    Options
}

func New(reg *agentregistry.Registry, httpClient *http.Client, opts Options) *Executor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Executor{Registry: reg, HTTPClient: httpClient, Options: opts.withDefaults()}
}

var tracer = otel.Tracer("lucia/orchestrator/dispatch")

// Run dispatches prompt to every agent named by d.AgentID plus
// d.AdditionalAgents, in declaration order, in parallel; history supplies
// prior turns for local agents keyed by session id (may be nil).
func (e *Executor) Run(ctx context.Context, d router.Decision, prompt string, history []agentregistry.Turn) []Response {
	ids := append([]string{d.AgentID}, d.AdditionalAgents...)
	results := make([]Response, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = e.invoke(gctx, id, prompt, history)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Executor) invoke(ctx context.Context, agentID, prompt string, history []agentregistry.Turn) Response {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "dispatch.invoke")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", agentID))

	entry, err := e.Registry.Lookup(agentID)
	if err != nil {
		span.SetAttributes(attribute.Bool("agent.success", false))
		span.SetStatus(codes.Error, err.Error())
		return Response{AgentID: agentID, Success: false, Error: err.Error(), DurationMS: sinceMS(start)}
	}

	span.SetAttributes(attribute.Bool("dispatch.remote", entry.IsRemote()))

	callCtx, cancel := context.WithTimeout(ctx, e.Options.Timeout)
	defer cancel()

	var content string
	if entry.IsRemote() {
		content, err = e.callRemoteWithRetry(callCtx, entry.RemoteURL, prompt)
	} else {
		content, err = e.callLocalWithRetry(callCtx, entry, prompt, history)
	}

	resp := Response{AgentID: agentID, DurationMS: sinceMS(start)}
	if err != nil {
		resp.Success = false
		resp.Error = err.Error()
		span.SetAttributes(attribute.Bool("agent.success", false))
		span.SetStatus(codes.Error, err.Error())
		return resp
	}
	resp.Success = true
	resp.Content = content
	span.SetAttributes(attribute.Bool("agent.success", true), attribute.Int64("agent.duration_ms", resp.DurationMS))
	return resp
}

func (e *Executor) callLocalWithRetry(ctx context.Context, entry agentregistry.Entry, prompt string, history []agentregistry.Turn) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.Options.MaxRetries; attempt++ {
		content, err := entry.Local.Invoke(ctx, prompt, history)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", err
		}
		if attempt < e.Options.MaxRetries {
			if !sleepOrDone(ctx, e.Options.RetryDelay) {
				return "", ctx.Err()
			}
		}
	}
	return "", lastErr
}

func (e *Executor) callRemoteWithRetry(ctx context.Context, url, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.Options.MaxRetries; attempt++ {
		content, err := e.callRemote(ctx, url, prompt)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", err
		}
		if attempt < e.Options.MaxRetries {
			if !sleepOrDone(ctx, e.Options.RetryDelay) {
				return "", ctx.Err()
			}
		}
	}
	return "", lastErr
}

type messageSendRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	Params  messageSendParams `json:"params"`
}

type messageSendParams struct {
	Message a2aMessage `json:"message"`
}

type a2aMessage struct {
	Kind      string    `json:"kind"`
	Role      string    `json:"role"`
	Parts     []a2aPart `json:"parts"`
	MessageID string    `json:"messageId"`
}

type a2aPart struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type messageSendResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type messageResult struct {
	Text string `json:"text"`
}

// callRemote opens a JSON-RPC 2.0 message/send call against the agent
// card's URL, per spec.md §4.5's remote-agent variant.
func (e *Executor) callRemote(ctx context.Context, url, prompt string) (string, error) {
	reqBody := messageSendRequest{
		JSONRPC: "2.0",
		ID:      uuid.New().String(),
		Method:  "message/send",
		Params: messageSendParams{Message: a2aMessage{
			Kind:      "message",
			Role:      "user",
			Parts:     []a2aPart{{Kind: "text", Text: prompt}},
			MessageID: uuid.New().String(),
		}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("dispatch: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("dispatch: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(httpReq)
	if err != nil {
		return "", &transientError{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", &transientError{fmt.Errorf("dispatch: remote agent returned %s", resp.Status)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dispatch: remote agent returned %s", resp.Status)
	}

	var rpcResp messageSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return "", fmt.Errorf("dispatch: decode remote response: %w", err)
	}
	if rpcResp.Error != nil {
		return "", fmt.Errorf("dispatch: remote agent error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	var result messageResult
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return "", fmt.Errorf("dispatch: decode remote result: %w", err)
	}
	return result.Text, nil
}

// transientError marks network-layer failures (connection reset, timeout,
// 5xx) as retryable; tool-execution errors surfaced by an agent's own
// pipeline are never wrapped this way and so are never retried (§4.5, §7).
type transientError struct{ err error }

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func sinceMS(start time.Time) int64 { return time.Since(start).Milliseconds() }
