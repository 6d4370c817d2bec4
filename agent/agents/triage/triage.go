// Package triage routes each message to the Spanish or English assistant.
// Routing is deterministic whenever the detector is confident; the model is
// only consulted as a fallback.
package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/amontero/dialogo/agent/contract"
	"github.com/amontero/dialogo/agent/language"
	llmx "github.com/amontero/dialogo/agent/llm"
)

type Agent struct {
	runner    compose.Runnable[map[string]any, llmOutput]
	threshold float64
}

type llmOutput struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

type Option func(*Agent)

// WithThreshold overrides the confidence at which the detector short-circuits
// the model fallback.
func WithThreshold(t float64) Option {
	return func(a *Agent) {
		if t > 0 && t <= 1 {
			a.threshold = t
		}
	}
}

func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, opts ...Option) (*Agent, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: triage system prompt", contractx.ErrPromptMissing)
	}
	runner, err := llmx.NewStructuredRunner[llmOutput](ctx, chatModel, systemPrompt, "agent.triage")
	if err != nil {
		return nil, fmt.Errorf("%w: compile triage graph: %v", contractx.ErrModelInvoke, err)
	}
	a := &Agent{
		runner:    runner,
		threshold: language.DefaultThreshold,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

func (a *Agent) Name() contractx.AgentName {
	return contractx.AgentTriage
}

func (a *Agent) Handoffs() []contractx.AgentName {
	return []contractx.AgentName{contractx.AgentSpanish, contractx.AgentEnglish}
}

func (a *Agent) Respond(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	if req.Session == nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: session is required", contractx.ErrValidation)
	}

	det := language.Resolve(req.UserMessage, language.ParseLang(req.Session.Language))
	if det.Confidence >= a.threshold && det.Language != language.Unknown {
		return route(det.Language), nil
	}

	lang, err := a.classify(ctx, req.UserMessage)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	return route(lang), nil
}

func (a *Agent) classify(ctx context.Context, userMessage string) (language.Lang, error) {
	payload := map[string]any{"user_message": userMessage}
	input, err := json.Marshal(payload)
	if err != nil {
		return language.Unknown, fmt.Errorf("%w: marshal triage payload: %v", contractx.ErrValidation, err)
	}

	out, err := a.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return language.Unknown, fmt.Errorf("%w: triage invoke: %v", contractx.ErrModelInvoke, err)
	}

	lang := language.ParseLang(out.Language)
	if lang == language.Unknown {
		// The prompt pins the output to es/en; anything else defaults to
		// Spanish, matching the detector's tie rule.
		lang = language.Spanish
	}
	return lang, nil
}

func route(lang language.Lang) contractx.AgentResponse {
	target := contractx.AgentSpanish
	if lang == language.English {
		target = contractx.AgentEnglish
	}
	return contractx.AgentResponse{
		Handoff:      target,
		StateUpdates: contractx.StateUpdates{SetLanguage: string(lang)},
	}
}
