package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionState is the persistent source-of-truth for one conversation.
// It is loaded once per turn, shared by pointer across every agent the
// runner invokes (including handoff targets), and saved at turn end.
type SessionState struct {
	// Identity
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	ChannelType string `json:"channel_type"`

	// Conversation
	Transcript []Turn `json:"transcript,omitempty"`

	// Tutoring state machine
	Phase          Phase          `json:"phase"`
	Topic          string         `json:"topic,omitempty"`
	KnowledgeLevel KnowledgeLevel `json:"knowledge_level,omitempty"`

	// Language routing
	Language       string `json:"language,omitempty"` // last detected, "es" | "en"
	SpanishReplies int    `json:"spanish_replies,omitempty"`
	EnglishReplies int    `json:"english_replies,omitempty"`

	Ended     bool      `json:"ended,omitempty"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one transcript entry. Agent is set on assistant turns so the
// transcript records who actually replied after handoffs.
type Turn struct {
	Role    Role      `json:"role"`
	Agent   string    `json:"agent,omitempty"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

var (
	ErrInvalidSessionID = errors.New("session id is empty")
	ErrInvalidTurn      = errors.New("transcript turn is invalid")
)

func NewSessionState(sessionID, userID, channelType string, now time.Time) *SessionState {
	return &SessionState{
		SessionID:   sessionID,
		UserID:      userID,
		ChannelType: channelType,
		Phase:       PhaseTopic,
		Version:     1,
		UpdatedAt:   now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *SessionState) AppendTurn(role Role, agent, content string, now time.Time) error {
	if s == nil {
		return errors.New("nil session state")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidTurn)
	}
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: role=%q", ErrInvalidTurn, role)
	}
	s.Transcript = append(s.Transcript, Turn{
		Role:    role,
		Agent:   agent,
		Content: content,
		At:      now.UTC(),
	})
	s.Touch(now)
	return nil
}

// Window returns the most recent n transcript turns.
func (s *SessionState) Window(n int) []Turn {
	if s == nil || n <= 0 || len(s.Transcript) == 0 {
		return nil
	}
	if n >= len(s.Transcript) {
		return s.Transcript
	}
	return s.Transcript[len(s.Transcript)-n:]
}

// TranscriptText renders the last n turns as "role: content" lines for
// inclusion in model prompts.
func (s *SessionState) TranscriptText(n int) string {
	turns := s.Window(n)
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		who := string(t.Role)
		if t.Agent != "" {
			who = who + "(" + t.Agent + ")"
		}
		b.WriteString(who)
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	return b.String()
}

// LastAssistantTurn returns the most recent assistant entry, if any.
func (s *SessionState) LastAssistantTurn() (Turn, bool) {
	if s == nil {
		return Turn{}, false
	}
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Role == RoleAssistant {
			return s.Transcript[i], true
		}
	}
	return Turn{}, false
}

func (s *SessionState) CountReply(language string) {
	switch language {
	case "es":
		s.SpanishReplies++
	case "en":
		s.EnglishReplies++
	}
}

// Validate checks the structural invariants a stored session must satisfy.
func (s *SessionState) Validate() error {
	if s == nil {
		return errors.New("nil session state")
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSessionID
	}
	if !s.Phase.Known() {
		return fmt.Errorf("%w: phase=%q", ErrUnknownPhase, s.Phase)
	}
	// Final is reachable from any phase, so its entry data may be missing.
	if s.Phase != PhaseFinal {
		if s.Phase.AtLeast(PhaseCalibration) && strings.TrimSpace(s.Topic) == "" {
			return fmt.Errorf("%w: phase %s requires a topic", ErrPhaseInvariant, s.Phase)
		}
		if s.Phase.AtLeast(PhaseScaffolding) && s.KnowledgeLevel == "" {
			return fmt.Errorf("%w: phase %s requires a knowledge level", ErrPhaseInvariant, s.Phase)
		}
	}
	for i, t := range s.Transcript {
		if strings.TrimSpace(t.Content) == "" || (t.Role != RoleUser && t.Role != RoleAssistant) {
			return fmt.Errorf("%w: index=%d", ErrInvalidTurn, i)
		}
	}
	return nil
}
