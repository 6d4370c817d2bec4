package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/amontero/dialogo/agent/prompt"
)

type fakeChatModel struct {
	response *schema.Message
	err      error
	received [][]*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.received = append(f.received, input)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

type echoOutput struct {
	Message string `json:"message"`
}

// Every shipped system prompt contains literal JSON examples. The runner must
// deliver them to the model byte for byte, braces included.
func TestStructuredRunnerAcceptsEmbeddedPrompts(t *testing.T) {
	t.Parallel()

	prompts := prompt.LoadPromptSet()
	cases := map[string]string{
		"triage":            prompts.Triage,
		"spanish_assistant": prompts.SpanishAssistant,
		"english_assistant": prompts.EnglishAssistant,
		"tutor":             prompts.Tutor,
	}

	const input = `{"user_message":"hola","transcript":""}`

	for name, sys := range cases {
		if !strings.Contains(sys, "{") {
			t.Fatalf("%s: prompt lost its JSON example", name)
		}

		fake := &fakeChatModel{response: &schema.Message{Content: `{"message":"ok"}`}}
		runner, err := NewStructuredRunner[echoOutput](context.Background(), fake, sys, "test."+name)
		if err != nil {
			t.Fatalf("%s: NewStructuredRunner() error = %v", name, err)
		}

		out, err := runner.Invoke(context.Background(), map[string]any{"input": input})
		if err != nil {
			t.Fatalf("%s: Invoke() error = %v", name, err)
		}
		if out.Message != "ok" {
			t.Fatalf("%s: unexpected output %+v", name, out)
		}

		if len(fake.received) != 1 || len(fake.received[0]) != 2 {
			t.Fatalf("%s: model input = %#v, want one call with system+user", name, fake.received)
		}
		if got := fake.received[0][0].Content; got != sys {
			t.Fatalf("%s: system prompt was altered by formatting:\n%s", name, got)
		}
		if got := fake.received[0][1].Content; got != input {
			t.Fatalf("%s: user payload was altered by formatting: %s", name, got)
		}
	}
}

func TestMessageRunnerKeepsPromptBracesIntact(t *testing.T) {
	t.Parallel()

	const sys = `Respond as JSON: {"message": "<text>"}`

	fake := &fakeChatModel{response: &schema.Message{Role: schema.Assistant, Content: "hi"}}
	runner, err := NewMessageRunner(context.Background(), fake, sys, "test.message")
	if err != nil {
		t.Fatalf("NewMessageRunner() error = %v", err)
	}

	msg, err := runner.Invoke(context.Background(), map[string]any{"input": `{"q":"2+2"}`})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if msg == nil || msg.Content != "hi" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	if len(fake.received) != 1 || len(fake.received[0]) != 2 {
		t.Fatalf("model input = %#v, want one call with system+user", fake.received)
	}
	if got := fake.received[0][0].Content; got != sys {
		t.Fatalf("system prompt was altered by formatting: %s", got)
	}
}

func TestStructuredRunnerWrapsModelError(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: errors.New("upstream down")}
	runner, err := NewStructuredRunner[echoOutput](context.Background(), fake, "plain prompt", "test.err")
	if err != nil {
		t.Fatalf("NewStructuredRunner() error = %v", err)
	}

	if _, err := runner.Invoke(context.Background(), map[string]any{"input": "x"}); err == nil {
		t.Fatal("expected model error to surface")
	}
}
