// Package assistant implements the language-locked general assistants. Each
// instance always replies in its own language regardless of the language the
// user writes in; triage decides which instance handles the turn.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/amontero/dialogo/agent/contract"
	llmx "github.com/amontero/dialogo/agent/llm"
	toolx "github.com/amontero/dialogo/agent/tool"
)

const transcriptWindow = 12

type Agent struct {
	name             contractx.AgentName
	structuredRunner compose.Runnable[map[string]any, llmOutput]
	toolRunner       compose.Runnable[map[string]any, *schema.Message]
	allowedTools     map[string]struct{}
}

type llmOutput struct {
	Message      string                 `json:"message"`
	StateUpdates contractx.StateUpdates `json:"state_updates,omitempty"`
}

// New builds one assistant. name must be AgentSpanish or AgentEnglish and the
// prompt must be the matching language-locked system prompt.
func New(
	ctx context.Context,
	name contractx.AgentName,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
) (*Agent, error) {
	if name != contractx.AgentSpanish && name != contractx.AgentEnglish {
		return nil, fmt.Errorf("%w: %s is not an assistant", contractx.ErrValidation, name)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: assistant system prompt for %s", contractx.ErrPromptMissing, name)
	}

	structuredRunner, err := llmx.NewStructuredRunner[llmOutput](ctx, chatModel, systemPrompt, "agent."+string(name)+".finalize")
	if err != nil {
		return nil, fmt.Errorf("%w: compile finalize graph for %s: %v", contractx.ErrModelInvoke, name, err)
	}

	tools := toolx.InfosFor(name)
	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for %s: %v", contractx.ErrModelInvoke, name, err)
	}
	toolRunner, err := llmx.NewMessageRunner(ctx, toolModel, systemPrompt, "agent."+string(name)+".plan")
	if err != nil {
		return nil, fmt.Errorf("%w: compile plan graph for %s: %v", contractx.ErrModelInvoke, name, err)
	}

	allowed := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t != nil && strings.TrimSpace(t.Name) != "" {
			allowed[t.Name] = struct{}{}
		}
	}

	return &Agent{
		name:             name,
		structuredRunner: structuredRunner,
		toolRunner:       toolRunner,
		allowedTools:     allowed,
	}, nil
}

func (a *Agent) Name() contractx.AgentName {
	return a.name
}

// Assistants are terminal: they never transfer control.
func (a *Agent) Handoffs() []contractx.AgentName {
	return nil
}

func (a *Agent) Respond(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	if req.Session == nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: session is required", contractx.ErrValidation)
	}
	if len(req.ToolResults) > 0 {
		return a.finalize(ctx, req)
	}
	return a.plan(ctx, req)
}

// plan asks the tool-bound model whether the turn needs tools. No tool calls
// means the model can answer directly, which goes through finalize so the
// reply carries structured state updates.
func (a *Agent) plan(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	input, err := a.payload("plan", req)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	msg, err := a.toolRunner.Invoke(ctx, map[string]any{"input": input})
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: %s plan invoke: %v", contractx.ErrModelInvoke, a.name, err)
	}
	if msg == nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: %s plan returned nil message", contractx.ErrSchemaViolation, a.name)
	}

	toolRequests, err := ToToolRequests(msg.ToolCalls)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if len(toolRequests) == 0 {
		return a.finalize(ctx, req)
	}

	for _, tr := range toolRequests {
		if _, ok := a.allowedTools[tr.Tool]; !ok {
			return contractx.AgentResponse{}, fmt.Errorf("%w: tool=%s is not allowed for agent=%s", contractx.ErrSchemaViolation, tr.Tool, a.name)
		}
	}
	return contractx.AgentResponse{ToolRequests: toolRequests}, nil
}

func (a *Agent) finalize(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	input, err := a.payload("finalize", req)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	out, err := a.structuredRunner.Invoke(ctx, map[string]any{"input": input})
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: %s finalize invoke: %v", contractx.ErrModelInvoke, a.name, err)
	}

	message := strings.TrimSpace(out.Message)
	if message == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: %s returned an empty message", contractx.ErrSchemaViolation, a.name)
	}
	return contractx.AgentResponse{
		Message:      message,
		StateUpdates: out.StateUpdates,
	}, nil
}

func (a *Agent) payload(mode string, req contractx.AgentRequest) (string, error) {
	payload := map[string]any{
		"mode":           mode,
		"user_message":   req.UserMessage,
		"memory_summary": req.MemorySummary,
		"transcript":     req.Session.TranscriptText(transcriptWindow),
	}
	if len(req.ToolResults) > 0 {
		payload["tool_results"] = req.ToolResults
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal %s payload: %v", contractx.ErrValidation, a.name, err)
	}
	return string(input), nil
}

// ToToolRequests converts model tool calls into gateway requests. Shared with
// the tutor, which plans tools the same way.
func ToToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}
		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid args for tool=%s: %v", contractx.ErrSchemaViolation, name, err)
			}
		}
		reqs = append(reqs, contractx.ToolRequest{Tool: name, Args: args})
	}
	return reqs, nil
}
