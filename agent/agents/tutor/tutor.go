// Package tutor implements the math tutoring pair: a deterministic
// diagnostic agent that collects topic and knowledge level, and a
// model-backed tutor that explains at the calibrated level.
package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/amontero/dialogo/agent/agents/assistant"
	contractx "github.com/amontero/dialogo/agent/contract"
	"github.com/amontero/dialogo/agent/language"
	llmx "github.com/amontero/dialogo/agent/llm"
	statex "github.com/amontero/dialogo/agent/state"
	toolx "github.com/amontero/dialogo/agent/tool"
)

const transcriptWindow = 16

type Tutor struct {
	structuredRunner compose.Runnable[map[string]any, llmOutput]
	toolRunner       compose.Runnable[map[string]any, *schema.Message]
	allowedTools     map[string]struct{}
}

type llmOutput struct {
	Message      string                 `json:"message"`
	StateUpdates contractx.StateUpdates `json:"state_updates,omitempty"`
}

func New(ctx context.Context, chatModel einomodel.ToolCallingChatModel, systemPrompt string) (*Tutor, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: tutor system prompt", contractx.ErrPromptMissing)
	}

	structuredRunner, err := llmx.NewStructuredRunner[llmOutput](ctx, chatModel, systemPrompt, "agent.tutor.finalize")
	if err != nil {
		return nil, fmt.Errorf("%w: compile tutor finalize graph: %v", contractx.ErrModelInvoke, err)
	}

	tools := toolx.InfosFor(contractx.AgentTutor)
	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tutor tools: %v", contractx.ErrModelInvoke, err)
	}
	toolRunner, err := llmx.NewMessageRunner(ctx, toolModel, systemPrompt, "agent.tutor.plan")
	if err != nil {
		return nil, fmt.Errorf("%w: compile tutor plan graph: %v", contractx.ErrModelInvoke, err)
	}

	allowed := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t != nil && strings.TrimSpace(t.Name) != "" {
			allowed[t.Name] = struct{}{}
		}
	}

	return &Tutor{
		structuredRunner: structuredRunner,
		toolRunner:       toolRunner,
		allowedTools:     allowed,
	}, nil
}

func (t *Tutor) Name() contractx.AgentName {
	return contractx.AgentTutor
}

func (t *Tutor) Handoffs() []contractx.AgentName {
	return []contractx.AgentName{contractx.AgentDiagnostic}
}

func (t *Tutor) Respond(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	if req.Session == nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: session is required", contractx.ErrValidation)
	}
	st := req.Session

	if st.Ended || st.Phase == statex.PhaseFinal {
		return contractx.AgentResponse{Message: closing(language.ParseLang(st.Language) == language.English)}, nil
	}

	switch st.Phase {
	case statex.PhaseTopic, statex.PhaseDiagnostic:
		return contractx.AgentResponse{Handoff: contractx.AgentDiagnostic}, nil

	case statex.PhaseCalibration:
		resp, err := t.respondWithModel(ctx, req, "introduce")
		if err != nil {
			return contractx.AgentResponse{}, err
		}
		if resp.Message != "" {
			resp.StateUpdates = resp.StateUpdates.Merge(contractx.StateUpdates{
				AdvancePhase: string(statex.PhaseScaffolding),
			})
		}
		return resp, nil

	case statex.PhaseScaffolding:
		return t.respondWithModel(ctx, req, "explain")

	default:
		return contractx.AgentResponse{}, fmt.Errorf("%w: tutor invoked in phase %s", contractx.ErrValidation, st.Phase)
	}
}

// respondWithModel plans tools first; turns without tool calls finalize
// through the structured graph so state updates come back typed.
func (t *Tutor) respondWithModel(ctx context.Context, req contractx.AgentRequest, mode string) (contractx.AgentResponse, error) {
	if len(req.ToolResults) > 0 {
		return t.finalize(ctx, req, mode)
	}

	input, err := t.payload(mode, req)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	msg, err := t.toolRunner.Invoke(ctx, map[string]any{"input": input})
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: tutor plan invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: tutor plan returned nil message", contractx.ErrSchemaViolation)
	}

	toolRequests, err := assistant.ToToolRequests(msg.ToolCalls)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if len(toolRequests) == 0 {
		return t.finalize(ctx, req, mode)
	}
	for _, tr := range toolRequests {
		if _, ok := t.allowedTools[tr.Tool]; !ok {
			return contractx.AgentResponse{}, fmt.Errorf("%w: tool=%s is not allowed for the tutor", contractx.ErrSchemaViolation, tr.Tool)
		}
	}
	return contractx.AgentResponse{ToolRequests: toolRequests}, nil
}

func (t *Tutor) finalize(ctx context.Context, req contractx.AgentRequest, mode string) (contractx.AgentResponse, error) {
	input, err := t.payload(mode, req)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	out, err := t.structuredRunner.Invoke(ctx, map[string]any{"input": input})
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: tutor finalize invoke: %v", contractx.ErrModelInvoke, err)
	}
	message := strings.TrimSpace(out.Message)
	if message == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: tutor returned an empty message", contractx.ErrSchemaViolation)
	}
	return contractx.AgentResponse{
		Message:      message,
		StateUpdates: out.StateUpdates,
	}, nil
}

func (t *Tutor) payload(mode string, req contractx.AgentRequest) (string, error) {
	st := req.Session
	payload := map[string]any{
		"mode":            mode,
		"user_message":    req.UserMessage,
		"memory_summary":  req.MemorySummary,
		"topic":           st.Topic,
		"knowledge_level": string(st.KnowledgeLevel),
		"language":        st.Language,
		"transcript":      st.TranscriptText(transcriptWindow),
	}
	if len(req.ToolResults) > 0 {
		payload["tool_results"] = req.ToolResults
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal tutor payload: %v", contractx.ErrValidation, err)
	}
	return string(input), nil
}

func closing(english bool) string {
	if english {
		return "This session is finished. Start a new one whenever you want to keep learning!"
	}
	return "Esta sesión ha terminado. ¡Empieza una nueva cuando quieras seguir aprendiendo!"
}
