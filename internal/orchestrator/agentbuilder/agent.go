package agentbuilder

import (
	"context"
	"fmt"
	"strings"

	"github.com/seiggy/lucia/internal/orchestrator/agentregistry"
	"github.com/seiggy/lucia/internal/orchestrator/modelprovider"
	"github.com/seiggy/lucia/internal/orchestrator/toolserver"
)

// simpleAgent is the in-process invokable produced by Builder.Build: a
// fixed instruction, a resolved (traced) chat client, and a fixed tool set.
type simpleAgent struct {
	id          string
	instruction string
	chatClient  modelprovider.ChatClient
	tools       []BoundTool
	toolMgr     *toolserver.Manager
}

// Invoke renders instruction + history + prompt into a message list and
// calls the chat client once. Tool calls the model requests are executed
// against the bound tool servers, but their results are not sent back to the
// model: the returned text is the content of that single chat response, and
// failed tool calls are skipped.
func (a *simpleAgent) Invoke(ctx context.Context, prompt string, history []agentregistry.Turn) (string, error) {
	messages := make([]modelprovider.Message, 0, len(history)+2)
	if a.instruction != "" {
		messages = append(messages, modelprovider.Message{Role: "system", Content: a.instruction})
	}
	for _, h := range history {
		messages = append(messages, modelprovider.Message{Role: h.Role, Content: h.Text})
	}
	messages = append(messages, modelprovider.Message{Role: "user", Content: prompt})

	resp, err := a.chatClient.Generate(ctx, messages, modelprovider.GenerateOptions{})
	if err != nil {
		return "", fmt.Errorf("agentbuilder: agent %q generate: %w", a.id, err)
	}

	for _, tc := range resp.ToolCalls {
		if _, err := a.callTool(ctx, tc); err != nil {
			// Tool-call failures stay in-band: the agent's own response
			// already reflects what it could determine; dispatch never
			// sees a bare transport error from tool execution (§4.1/§7).
			continue
		}
	}

	return strings.TrimSpace(resp.Content), nil
}

func (a *simpleAgent) callTool(ctx context.Context, tc modelprovider.ToolCall) (map[string]any, error) {
	for _, bt := range a.tools {
		if bt.Tool.Name == tc.Name {
			return a.toolMgr.CallTool(ctx, bt.ServerID, tc.Name, nil)
		}
	}
	return nil, fmt.Errorf("agentbuilder: tool %q not bound", tc.Name)
}
