package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/amontero/dialogo/agent/contract"
	"github.com/amontero/dialogo/agent/prompt"
	statex "github.com/amontero/dialogo/agent/state"
)

// intakeTutor exercises the deterministic branches only; any path that
// reaches a model graph would panic on the nil runners.
func intakeTutor() *Tutor {
	return &Tutor{}
}

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
}

func (f *fakeToolCallingModel) Generate(context.Context, []*schema.Message, ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools([]*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

// modelTutor compiles the real shipped prompt against a fake model, covering
// the full template, plan and finalize path.
func modelTutor(t *testing.T, fake *fakeToolCallingModel) *Tutor {
	t.Helper()
	tu, err := New(context.Background(), fake, prompt.LoadPromptSet().Tutor)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tu
}

func calibratedSession(phase statex.Phase) *statex.SessionState {
	st := newSession(phase)
	st.Topic = "fracciones"
	st.KnowledgeLevel = statex.LevelBeginner
	return st
}

func TestTutorDelegatesIntakeToDiagnostic(t *testing.T) {
	t.Parallel()

	for _, phase := range []statex.Phase{statex.PhaseTopic, statex.PhaseDiagnostic} {
		st := newSession(phase)
		if phase != statex.PhaseTopic {
			st.Topic = "fracciones"
		}
		resp, err := intakeTutor().Respond(context.Background(), contractx.AgentRequest{
			UserMessage: "hola",
			Session:     st,
			Now:         testNow,
		})
		if err != nil {
			t.Fatalf("Respond() in %s error = %v", phase, err)
		}
		if resp.Handoff != contractx.AgentDiagnostic {
			t.Fatalf("phase %s: handoff = %s, want diagnostic", phase, resp.Handoff)
		}
	}
}

func TestTutorClosesEndedSession(t *testing.T) {
	t.Parallel()

	st := newSession(statex.PhaseFinal)
	st.Ended = true

	resp, err := intakeTutor().Respond(context.Background(), contractx.AgentRequest{
		UserMessage: "¿hola?",
		Session:     st,
		Now:         testNow,
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !strings.Contains(resp.Message, "terminado") {
		t.Fatalf("expected Spanish closing, got %q", resp.Message)
	}
	if resp.Handoff != "" || len(resp.ToolRequests) != 0 {
		t.Fatalf("closing must be a plain message: %+v", resp)
	}

	st.Language = "en"
	resp, err = intakeTutor().Respond(context.Background(), contractx.AgentRequest{
		UserMessage: "hello?",
		Session:     st,
		Now:         testNow,
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !strings.Contains(resp.Message, "finished") {
		t.Fatalf("expected English closing, got %q", resp.Message)
	}
}

func TestTutorIntroducesAfterCalibration(t *testing.T) {
	t.Parallel()

	// First call plans (no tool calls come back), second call finalizes.
	tu := modelTutor(t, &fakeToolCallingModel{
		responses: []*schema.Message{
			{Role: schema.Assistant, Content: "no tools needed"},
			{Content: `{"message":"Las fracciones representan partes de un todo."}`},
		},
	})

	resp, err := tu.Respond(context.Background(), contractx.AgentRequest{
		UserMessage: "poco",
		Session:     calibratedSession(statex.PhaseCalibration),
		Now:         testNow,
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !strings.Contains(resp.Message, "fracciones") {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if resp.StateUpdates.AdvancePhase != string(statex.PhaseScaffolding) {
		t.Fatalf("first explanation must advance to scaffolding: %+v", resp.StateUpdates)
	}
}

func TestTutorPlansMathTool(t *testing.T) {
	t.Parallel()

	tu := modelTutor(t, &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{Function: schema.FunctionCall{Name: "math.evaluate", Arguments: `{"expression":"3/4 + 1/4"}`}},
				},
			},
		},
	})

	resp, err := tu.Respond(context.Background(), contractx.AgentRequest{
		UserMessage: "¿cuánto es 3/4 + 1/4?",
		Session:     calibratedSession(statex.PhaseScaffolding),
		Now:         testNow,
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if len(resp.ToolRequests) != 1 || resp.ToolRequests[0].Tool != "math.evaluate" {
		t.Fatalf("unexpected tool requests: %+v", resp.ToolRequests)
	}
	if resp.StateUpdates.AdvancePhase != "" {
		t.Fatalf("tool planning must not advance the phase: %+v", resp.StateUpdates)
	}
}

func TestTutorExplainsWithToolResults(t *testing.T) {
	t.Parallel()

	tu := modelTutor(t, &fakeToolCallingModel{
		responses: []*schema.Message{
			{Content: `{"message":"3/4 + 1/4 = 1, un entero completo."}`},
		},
	})

	resp, err := tu.Respond(context.Background(), contractx.AgentRequest{
		UserMessage: "¿cuánto es 3/4 + 1/4?",
		Session:     calibratedSession(statex.PhaseScaffolding),
		ToolResults: []contractx.ToolResult{{Tool: "math.evaluate", Result: 1.0}},
		Now:         testNow,
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !strings.Contains(resp.Message, "entero") {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if resp.StateUpdates.AdvancePhase != "" {
		t.Fatalf("scaffolding turns must not advance the phase: %+v", resp.StateUpdates)
	}
}

func TestTutorEndsSessionFromModel(t *testing.T) {
	t.Parallel()

	tu := modelTutor(t, &fakeToolCallingModel{
		responses: []*schema.Message{
			{Role: schema.Assistant, Content: "no tools needed"},
			{Content: `{"message":"¡Buen trabajo hoy! Hasta la próxima.","state_updates":{"end_session":true}}`},
		},
	})

	resp, err := tu.Respond(context.Background(), contractx.AgentRequest{
		UserMessage: "gracias, eso es todo por hoy",
		Session:     calibratedSession(statex.PhaseScaffolding),
		Now:         testNow,
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !resp.StateUpdates.EndSession {
		t.Fatalf("expected end_session to pass through: %+v", resp.StateUpdates)
	}
}

func TestTutorRejectsWeatherTool(t *testing.T) {
	t.Parallel()

	tu := modelTutor(t, &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{Function: schema.FunctionCall{Name: "weather.lookup", Arguments: `{"city":"Madrid"}`}},
				},
			},
		},
	})

	_, err := tu.Respond(context.Background(), contractx.AgentRequest{
		UserMessage: "¿qué tiempo hace?",
		Session:     calibratedSession(statex.PhaseScaffolding),
		Now:         testNow,
	})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestTutorDeclaresDiagnosticHandoff(t *testing.T) {
	t.Parallel()

	tu := intakeTutor()
	if tu.Name() != contractx.AgentTutor {
		t.Fatalf("unexpected name %s", tu.Name())
	}
	targets := tu.Handoffs()
	if len(targets) != 1 || targets[0] != contractx.AgentDiagnostic {
		t.Fatalf("unexpected handoffs: %v", targets)
	}
}

func TestTutorRequiresSession(t *testing.T) {
	t.Parallel()

	if _, err := intakeTutor().Respond(context.Background(), contractx.AgentRequest{UserMessage: "hola"}); err == nil {
		t.Fatal("expected error without session")
	}
}
