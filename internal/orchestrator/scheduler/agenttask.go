package scheduler

import (
	"context"

	"github.com/seiggy/lucia/internal/orchestrator/facade"
)

// FacadeCaller is the subset of facade.Facade an AgentTask fire needs.
type FacadeCaller interface {
	Handle(ctx context.Context, req facade.Request) (facade.Result, error)
}

// FireAgentTask implements spec.md §4.10.3: build a prompt from the
// optional entity-context prefix plus the stored prompt, then call the
// orchestrator façade. A non-empty TargetAgentID bypasses the router.
func FireAgentTask(f FacadeCaller, sessionID string) Fire {
	return func(ctx context.Context, t *Task) error {
		prompt := t.AgentTask.Prompt
		if t.AgentTask.EntityContext != "" {
			prompt = t.AgentTask.EntityContext + "\n" + prompt
		}
		_, err := f.Handle(ctx, facade.Request{
			SessionID:     sessionID,
			Prompt:        prompt,
			TargetAgentID: t.AgentTask.TargetAgentID,
		})
		return err
	}
}
