// Package tracing implements the tracing chat-client wrapper (spec.md
// §4.12): it decorates every chat client used by agents, capturing a
// TraceRecord per call and emitting a single OpenTelemetry span with stable
// tag names, without altering the semantic output.
package tracing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/seiggy/lucia/internal/orchestrator/modelprovider"
)

// TraceRecord is captured per call, as spec.md §3 names it.
type TraceRecord struct {
	TraceID   string
	AgentID   string
	Timestamp time.Time
	Prompt    string
	Response  string
	ToolCalls []modelprovider.ToolCall
	Duration  time.Duration
	Success   bool
	Label     string
}

// Store retains trace records for export and dashboard inspection.
type Store interface {
	Append(r TraceRecord)
	Export(ctx context.Context, since time.Time) ([]TraceRecord, error)
}

// RingStore is a bounded in-memory ring buffer, consistent with the
// single-instance/no-distributed-consensus non-goal — there is no
// cross-replica trace aggregation here.
type RingStore struct {
	mu      sync.Mutex
	records []TraceRecord
	cap     int
	next    int
	full    bool
}

func NewRingStore(capacity int) *RingStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &RingStore{records: make([]TraceRecord, capacity), cap: capacity}
}

func (s *RingStore) Append(r TraceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[s.next] = r
	s.next = (s.next + 1) % s.cap
	if s.next == 0 {
		s.full = true
	}
}

func (s *RingStore) Export(ctx context.Context, since time.Time) ([]TraceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.next
	if s.full {
		n = s.cap
	}
	out := make([]TraceRecord, 0, n)
	for i := 0; i < n; i++ {
		r := s.records[i]
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

var (
	callsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lucia_agent_calls_total",
		Help: "Total chat-client calls observed by the tracing wrapper, by agent id and success.",
	}, []string{"agent_id", "success"})

	callDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lucia_agent_call_duration_ms",
		Help:    "Chat-client call duration in milliseconds, by agent id.",
		Buckets: prometheus.ExponentialBuckets(10, 2, 12),
	}, []string{"agent_id"})
)

// RegisterMetrics registers this package's counters with reg. Call once at
// startup; tests that don't care about metrics can skip it.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(callsTotal, callDuration)
}

// Wrapper decorates a modelprovider.ChatClient, recording a TraceRecord and
// emitting one OTel span per Generate call.
type Wrapper struct {
	inner   modelprovider.ChatClient
	agentID string
	store   Store
	tracer  trace.Tracer
}

// Wrap returns a ChatClient with identical semantics to inner, plus tracing.
func Wrap(inner modelprovider.ChatClient, agentID string, store Store) *Wrapper {
	return &Wrapper{inner: inner, agentID: agentID, store: store, tracer: otel.Tracer("lucia/orchestrator")}
}

func (w *Wrapper) ModelName() string { return w.inner.ModelName() }

func (w *Wrapper) Generate(ctx context.Context, messages []modelprovider.Message, opts modelprovider.GenerateOptions) (modelprovider.ChatResponse, error) {
	ctx, span := w.tracer.Start(ctx, "agent.generate")
	defer span.End()

	start := time.Now()
	resp, err := w.inner.Generate(ctx, messages, opts)
	duration := time.Since(start)
	success := err == nil

	span.SetAttributes(
		attribute.String("agent.id", w.agentID),
		attribute.Bool("agent.success", success),
		attribute.Int64("agent.duration_ms", duration.Milliseconds()),
	)

	callsTotal.WithLabelValues(w.agentID, boolLabel(success)).Inc()
	callDuration.WithLabelValues(w.agentID).Observe(float64(duration.Milliseconds()))

	if w.store != nil {
		var prompt string
		if len(messages) > 0 {
			prompt = messages[len(messages)-1].Content
		}
		w.store.Append(TraceRecord{
			TraceID:   uuid.NewString(),
			AgentID:   w.agentID,
			Timestamp: start,
			Prompt:    prompt,
			Response:  resp.Content,
			ToolCalls: resp.ToolCalls,
			Duration:  duration,
			Success:   success,
		})
	}

	return resp, err
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
