package runtime

import (
	"time"

	"github.com/google/uuid"

	contractx "github.com/amontero/dialogo/agent/contract"
)

type SpanKind string

const (
	SpanAgent   SpanKind = "agent"
	SpanTool    SpanKind = "tool"
	SpanHandoff SpanKind = "handoff"
)

// Span is one recorded step of a turn.
type Span struct {
	Kind      SpanKind            `json:"kind"`
	Name      string              `json:"name"`
	Agent     contractx.AgentName `json:"agent,omitempty"`
	StartedAt time.Time           `json:"started_at"`
	EndedAt   time.Time           `json:"ended_at"`
	Err       string              `json:"err,omitempty"`
}

func (s Span) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Trace records every agent invocation, tool call, and handoff of one turn.
type Trace struct {
	TraceID   string    `json:"trace_id"`
	Workflow  string    `json:"workflow"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	Spans     []Span    `json:"spans,omitempty"`
}

func NewTrace(workflow, sessionID string, now time.Time) *Trace {
	return &Trace{
		TraceID:   uuid.NewString(),
		Workflow:  workflow,
		SessionID: sessionID,
		StartedAt: now.UTC(),
	}
}

func (t *Trace) record(kind SpanKind, agent contractx.AgentName, name string, start, end time.Time, err error) {
	if t == nil {
		return
	}
	span := Span{
		Kind:      kind,
		Name:      name,
		Agent:     agent,
		StartedAt: start.UTC(),
		EndedAt:   end.UTC(),
	}
	if err != nil {
		span.Err = err.Error()
	}
	t.Spans = append(t.Spans, span)
}
