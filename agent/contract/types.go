package contract

import (
	"time"

	statex "github.com/amontero/dialogo/agent/state"
)

type AgentName string

const (
	AgentTriage     AgentName = "triage"
	AgentSpanish    AgentName = "spanish_assistant"
	AgentEnglish    AgentName = "english_assistant"
	AgentTutor      AgentName = "tutor"
	AgentDiagnostic AgentName = "diagnostic"
)

// AgentRequest is the single input shape every agent receives. The session
// pointer is shared across handoffs within a turn, so agents always see the
// same transcript and tutoring state.
type AgentRequest struct {
	UserMessage   string               `json:"user_message"`
	MemorySummary string               `json:"memory_summary"`
	Session       *statex.SessionState `json:"session"`
	ToolResults   []ToolResult         `json:"tool_results,omitempty"`
	Now           time.Time            `json:"now"`
}

// AgentResponse is what an agent returns for one invocation. Exactly one of
// Message / ToolRequests / Handoff drives the runner's next step; StateUpdates
// may accompany any of them.
type AgentResponse struct {
	Message      string        `json:"message,omitempty"`
	ToolRequests []ToolRequest `json:"tool_requests,omitempty"`
	Handoff      AgentName     `json:"handoff,omitempty"`
	StateUpdates StateUpdates  `json:"state_updates,omitempty"`
}

// StateUpdates is the structured channel through which agents mutate session
// state. Control and state changes never travel inside message text.
type StateUpdates struct {
	SetTopic          string `json:"set_topic,omitempty"`
	SetKnowledgeLevel string `json:"set_knowledge_level,omitempty"`
	AdvancePhase      string `json:"advance_phase,omitempty"`
	SetLanguage       string `json:"set_language,omitempty"`
	MemoryUpdate      string `json:"memory_update,omitempty"`
	EndSession        bool   `json:"end_session,omitempty"`
}

func (u StateUpdates) IsZero() bool {
	return u == StateUpdates{}
}

// Merge overlays next on top of u. Non-empty fields win; EndSession is sticky.
func (u StateUpdates) Merge(next StateUpdates) StateUpdates {
	out := u
	if next.SetTopic != "" {
		out.SetTopic = next.SetTopic
	}
	if next.SetKnowledgeLevel != "" {
		out.SetKnowledgeLevel = next.SetKnowledgeLevel
	}
	if next.AdvancePhase != "" {
		out.AdvancePhase = next.AdvancePhase
	}
	if next.SetLanguage != "" {
		out.SetLanguage = next.SetLanguage
	}
	if next.MemoryUpdate != "" {
		out.MemoryUpdate = next.MemoryUpdate
	}
	if next.EndSession {
		out.EndSession = true
	}
	return out
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
