package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// systemPromptKey is the template variable carrying the system prompt.
// Prompts contain literal JSON examples, and FString treats a bare "{" in
// template text as a field, so the prompt must enter the template as a
// substitution value, never as template text.
const systemPromptKey = "system_prompt"

func promptTemplate() einoprompt.ChatTemplate {
	return einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{"+systemPromptKey+"}"),
		schema.UserMessage("{input}"),
	)
}

// injectSystemPrompt copies the caller's variables and adds the system
// prompt so the template sees it as a value.
func injectSystemPrompt(systemPrompt string) *compose.Lambda {
	return compose.InvokableLambda(func(_ context.Context, in map[string]any) (map[string]any, error) {
		vars := make(map[string]any, len(in)+1)
		for k, v := range in {
			vars[k] = v
		}
		vars[systemPromptKey] = systemPrompt
		return vars, nil
	})
}

// NewStructuredRunner compiles a prompt -> model -> JSON-parse graph that
// returns a typed T decoded from the model's content. Every agent that needs
// structured output shares this shape.
func NewStructuredRunner[T any](
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, T], error) {
	parser := schema.NewMessageJSONParser[T](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, T]()
	if err := graph.AddLambdaNode("inject_prompt", injectSystemPrompt(systemPrompt)); err != nil {
		return nil, fmt.Errorf("add structured inject node: %w", err)
	}
	if err := graph.AddChatTemplateNode("prompt", promptTemplate()); err != nil {
		return nil, fmt.Errorf("add structured prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add structured model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add structured parser node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "inject_prompt"},
		{"inject_prompt", "prompt"},
		{"prompt", "model"},
		{"model", "parse_json"},
		{"parse_json", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add structured edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile structured graph %s: %w", graphName, err)
	}
	return runner, nil
}

// NewMessageRunner compiles a prompt -> model graph returning the raw
// message, used where tool calls must be read off the response.
func NewMessageRunner(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddLambdaNode("inject_prompt", injectSystemPrompt(systemPrompt)); err != nil {
		return nil, fmt.Errorf("add message inject node: %w", err)
	}
	if err := graph.AddChatTemplateNode("prompt", promptTemplate()); err != nil {
		return nil, fmt.Errorf("add message prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add message model node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "inject_prompt"},
		{"inject_prompt", "prompt"},
		{"prompt", "model"},
		{"model", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add message edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile message graph %s: %w", graphName, err)
	}
	return runner, nil
}
