package runtime

import (
	"context"

	"github.com/rs/zerolog"

	contractx "github.com/amontero/dialogo/agent/contract"
)

// Hooks observe runner execution. All methods are optional side channels:
// they must not mutate the request/response and their panics are not
// recovered, so keep them trivial.
type Hooks interface {
	OnAgentStart(ctx context.Context, agent contractx.AgentName, req contractx.AgentRequest)
	OnAgentEnd(ctx context.Context, agent contractx.AgentName, resp contractx.AgentResponse)
	OnHandoff(ctx context.Context, from, to contractx.AgentName)
	OnToolStart(ctx context.Context, agent contractx.AgentName, req contractx.ToolRequest)
	OnToolEnd(ctx context.Context, agent contractx.AgentName, res contractx.ToolResult)
}

// NopHooks is the default.
type NopHooks struct{}

func (NopHooks) OnAgentStart(context.Context, contractx.AgentName, contractx.AgentRequest) {}
func (NopHooks) OnAgentEnd(context.Context, contractx.AgentName, contractx.AgentResponse)  {}
func (NopHooks) OnHandoff(context.Context, contractx.AgentName, contractx.AgentName)       {}
func (NopHooks) OnToolStart(context.Context, contractx.AgentName, contractx.ToolRequest)   {}
func (NopHooks) OnToolEnd(context.Context, contractx.AgentName, contractx.ToolResult)      {}

// LogHooks emits one debug line per runner event.
type LogHooks struct {
	Logger zerolog.Logger
}

func (h LogHooks) OnAgentStart(_ context.Context, agent contractx.AgentName, req contractx.AgentRequest) {
	h.Logger.Debug().
		Str("agent", string(agent)).
		Int("transcript_len", len(req.Session.Transcript)).
		Msg("agent start")
}

func (h LogHooks) OnAgentEnd(_ context.Context, agent contractx.AgentName, resp contractx.AgentResponse) {
	h.Logger.Debug().
		Str("agent", string(agent)).
		Bool("has_message", resp.Message != "").
		Int("tool_requests", len(resp.ToolRequests)).
		Str("handoff", string(resp.Handoff)).
		Msg("agent end")
}

func (h LogHooks) OnHandoff(_ context.Context, from, to contractx.AgentName) {
	h.Logger.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("handoff")
}

func (h LogHooks) OnToolStart(_ context.Context, agent contractx.AgentName, req contractx.ToolRequest) {
	h.Logger.Debug().
		Str("agent", string(agent)).
		Str("tool", req.Tool).
		Msg("tool start")
}

func (h LogHooks) OnToolEnd(_ context.Context, agent contractx.AgentName, res contractx.ToolResult) {
	h.Logger.Debug().
		Str("agent", string(agent)).
		Str("tool", res.Tool).
		Bool("errored", res.Error != "").
		Msg("tool end")
}

type multiHooks []Hooks

// CombineHooks fans events out to several hook sets in order.
func CombineHooks(hooks ...Hooks) Hooks {
	flat := make(multiHooks, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			flat = append(flat, h)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return flat
}

func (m multiHooks) OnAgentStart(ctx context.Context, agent contractx.AgentName, req contractx.AgentRequest) {
	for _, h := range m {
		h.OnAgentStart(ctx, agent, req)
	}
}

func (m multiHooks) OnAgentEnd(ctx context.Context, agent contractx.AgentName, resp contractx.AgentResponse) {
	for _, h := range m {
		h.OnAgentEnd(ctx, agent, resp)
	}
}

func (m multiHooks) OnHandoff(ctx context.Context, from, to contractx.AgentName) {
	for _, h := range m {
		h.OnHandoff(ctx, from, to)
	}
}

func (m multiHooks) OnToolStart(ctx context.Context, agent contractx.AgentName, req contractx.ToolRequest) {
	for _, h := range m {
		h.OnToolStart(ctx, agent, req)
	}
}

func (m multiHooks) OnToolEnd(ctx context.Context, agent contractx.AgentName, res contractx.ToolResult) {
	for _, h := range m {
		h.OnToolEnd(ctx, agent, res)
	}
}
