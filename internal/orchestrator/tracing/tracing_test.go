package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seiggy/lucia/internal/orchestrator/modelprovider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatClient struct {
	resp modelprovider.ChatResponse
	err  error
}

func (s stubChatClient) ModelName() string { return "stub" }
func (s stubChatClient) Generate(ctx context.Context, messages []modelprovider.Message, opts modelprovider.GenerateOptions) (modelprovider.ChatResponse, error) {
	return s.resp, s.err
}

func TestRingStore_AppendAndExport(t *testing.T) {
	store := NewRingStore(2)
	now := time.Now()

	store.Append(TraceRecord{TraceID: "1", Timestamp: now.Add(-time.Hour)})
	store.Append(TraceRecord{TraceID: "2", Timestamp: now})

	out, err := store.Export(context.Background(), now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2", out[0].TraceID)
}

func TestRingStore_WrapsAroundCapacity(t *testing.T) {
	store := NewRingStore(2)
	store.Append(TraceRecord{TraceID: "1", Timestamp: time.Now()})
	store.Append(TraceRecord{TraceID: "2", Timestamp: time.Now()})
	store.Append(TraceRecord{TraceID: "3", Timestamp: time.Now()})

	out, err := store.Export(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestWrapper_RecordsSuccessfulCall(t *testing.T) {
	store := NewRingStore(10)
	w := Wrap(stubChatClient{resp: modelprovider.ChatResponse{Content: "hi"}}, "light-agent", store)

	resp, err := w.Generate(context.Background(), []modelprovider.Message{{Role: "user", Content: "turn on"}}, modelprovider.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)

	records, err := store.Export(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
	assert.Equal(t, "light-agent", records[0].AgentID)
	assert.Equal(t, "turn on", records[0].Prompt)
}

func TestWrapper_RecordsFailedCall(t *testing.T) {
	store := NewRingStore(10)
	w := Wrap(stubChatClient{err: errors.New("boom")}, "light-agent", store)

	_, err := w.Generate(context.Background(), []modelprovider.Message{{Role: "user", Content: "x"}}, modelprovider.GenerateOptions{})
	assert.Error(t, err)

	records, _ := store.Export(context.Background(), time.Time{})
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
}
