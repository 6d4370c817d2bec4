package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/amontero/dialogo/agent/contract"
)

const (
	defaultMaxHandoffs   = 4
	defaultMaxToolRounds = 3
)

// Runner executes one conversation turn against a root agent: it follows
// structured handoffs across the declared graph, dispatches tool requests,
// and accumulates state updates. Control transfer is always the typed
// Handoff field on the response; free text never carries control.
type Runner struct {
	registry      contractx.Registry
	tools         contractx.ToolGateway
	hooks         Hooks
	filters       map[filterKey]InputFilter
	maxHandoffs   int
	maxToolRounds int
	now           func() time.Time
}

type Option func(*Runner)

func WithHooks(h Hooks) Option {
	return func(r *Runner) {
		if h != nil {
			r.hooks = h
		}
	}
}

func WithMaxHandoffs(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxHandoffs = n
		}
	}
}

func WithMaxToolRounds(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxToolRounds = n
		}
	}
}

// WithInputFilter installs a filter applied to the request when control
// moves from one agent to another.
func WithInputFilter(from, to contractx.AgentName, filter InputFilter) Option {
	return func(r *Runner) {
		if filter != nil {
			r.filters[filterKey{from: from, to: to}] = filter
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRunner(registry contractx.Registry, tools contractx.ToolGateway, opts ...Option) (*Runner, error) {
	if registry == nil {
		return nil, errors.New("agent registry is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	r := &Runner{
		registry:      registry,
		tools:         tools,
		hooks:         NopHooks{},
		filters:       make(map[filterKey]InputFilter),
		maxHandoffs:   defaultMaxHandoffs,
		maxToolRounds: defaultMaxToolRounds,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// TurnResult is the outcome of one executed turn.
type TurnResult struct {
	Message string
	Agent   contractx.AgentName // agent that produced the final message
	Updates contractx.StateUpdates
	Path    []contractx.AgentName // agents visited, in order
	Trace   *Trace
}

// RunTurn drives the agent loop until a plain message comes back.
func (r *Runner) RunTurn(ctx context.Context, root contractx.AgentName, req contractx.AgentRequest) (TurnResult, error) {
	if req.Session == nil {
		return TurnResult{}, fmt.Errorf("%w: session is required", contractx.ErrValidation)
	}
	if req.Now.IsZero() {
		req.Now = r.now().UTC()
	}

	trace := NewTrace("turn", req.Session.SessionID, req.Now)
	result := TurnResult{Trace: trace}

	current := root
	handoffs := 0
	toolRounds := 0

	for {
		agent, ok := r.registry.Lookup(current)
		if !ok {
			return TurnResult{}, fmt.Errorf("%w: %s", contractx.ErrUnknownAgent, current)
		}
		result.Path = append(result.Path, current)

		r.hooks.OnAgentStart(ctx, current, req)
		started := r.now()
		resp, err := agent.Respond(ctx, req)
		trace.record(SpanAgent, current, "respond", started, r.now(), err)
		if err != nil {
			return TurnResult{}, fmt.Errorf("agent %s: %w", current, err)
		}
		r.hooks.OnAgentEnd(ctx, current, resp)

		result.Updates = result.Updates.Merge(resp.StateUpdates)

		switch {
		case len(resp.ToolRequests) > 0:
			toolRounds++
			if toolRounds > r.maxToolRounds {
				return TurnResult{}, fmt.Errorf("%w: agent=%s rounds=%d", contractx.ErrMaxToolRounds, current, toolRounds)
			}
			results, err := r.dispatchTools(ctx, current, resp.ToolRequests, trace)
			if err != nil {
				return TurnResult{}, err
			}
			req.ToolResults = results
			// Same agent runs again with the results.

		case resp.Handoff != "":
			handoffs++
			if handoffs > r.maxHandoffs {
				return TurnResult{}, fmt.Errorf("%w: %d handoffs from root=%s", contractx.ErrMaxHandoffs, handoffs, root)
			}
			if !handoffAllowed(agent, resp.Handoff) {
				return TurnResult{}, fmt.Errorf("%w: %s -> %s", contractx.ErrHandoffDenied, current, resp.Handoff)
			}
			r.hooks.OnHandoff(ctx, current, resp.Handoff)
			trace.record(SpanHandoff, current, string(resp.Handoff), r.now(), r.now(), nil)

			req = r.filterRequest(current, resp.Handoff, req)
			current = resp.Handoff
			toolRounds = 0

		case resp.Message != "":
			result.Message = resp.Message
			result.Agent = current
			return result, nil

		default:
			return TurnResult{}, fmt.Errorf("%w: agent=%s returned neither message, tools, nor handoff", contractx.ErrSchemaViolation, current)
		}
	}
}

func (r *Runner) dispatchTools(ctx context.Context, agent contractx.AgentName, reqs []contractx.ToolRequest, trace *Trace) ([]contractx.ToolResult, error) {
	for _, tr := range reqs {
		r.hooks.OnToolStart(ctx, agent, tr)
	}
	started := r.now()
	results, err := r.tools.Execute(ctx, agent, reqs)
	trace.record(SpanTool, agent, toolSpanName(reqs), started, r.now(), err)
	if err != nil {
		return nil, fmt.Errorf("tool dispatch for agent %s: %w", agent, err)
	}
	for _, res := range results {
		r.hooks.OnToolEnd(ctx, agent, res)
	}
	return results, nil
}

func (r *Runner) filterRequest(from, to contractx.AgentName, req contractx.AgentRequest) contractx.AgentRequest {
	filter, ok := r.filters[filterKey{from: from, to: to}]
	if !ok {
		filter = PassThrough
	}
	session := req.Session
	out := filter(req)
	// The unified session must survive every handoff.
	out.Session = session
	return out
}

func handoffAllowed(agent contractx.ChatAgent, target contractx.AgentName) bool {
	for _, allowed := range agent.Handoffs() {
		if allowed == target {
			return true
		}
	}
	return false
}

func toolSpanName(reqs []contractx.ToolRequest) string {
	if len(reqs) == 1 {
		return reqs[0].Tool
	}
	return fmt.Sprintf("%d tools", len(reqs))
}
