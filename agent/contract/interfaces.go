package contract

import "context"

// ChatAgent is one named participant in the handoff graph.
type ChatAgent interface {
	Name() AgentName
	// Handoffs returns the agents this agent may transfer control to.
	Handoffs() []AgentName
	Respond(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

type Registry interface {
	Lookup(name AgentName) (ChatAgent, bool)
	All() []ChatAgent
}

type ToolGateway interface {
	Execute(ctx context.Context, agent AgentName, reqs []ToolRequest) ([]ToolResult, error)
}

type MemoryStore interface {
	ReadSummary(ctx context.Context, userID string) (string, error)
	WriteSummary(ctx context.Context, userID string, update string) error
}
