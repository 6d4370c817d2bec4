package state

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestNewSessionStateDefaults(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "cli", testNow)
	if st.Phase != PhaseTopic {
		t.Fatalf("expected initial phase %s, got %s", PhaseTopic, st.Phase)
	}
	if st.Version != 1 {
		t.Fatalf("expected version 1, got %d", st.Version)
	}
	if st.Ended {
		t.Fatal("new session must not be ended")
	}
	if err := st.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestAppendTurnRejectsInvalid(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "cli", testNow)

	if err := st.AppendTurn(RoleUser, "", "   ", testNow); !errors.Is(err, ErrInvalidTurn) {
		t.Fatalf("expected ErrInvalidTurn for empty content, got %v", err)
	}
	if err := st.AppendTurn(Role("system"), "", "hi", testNow); !errors.Is(err, ErrInvalidTurn) {
		t.Fatalf("expected ErrInvalidTurn for bad role, got %v", err)
	}
	if err := st.AppendTurn(RoleUser, "", "hola", testNow); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if len(st.Transcript) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(st.Transcript))
	}
}

func TestWindowAndTranscriptText(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "cli", testNow)
	for i, content := range []string{"uno", "dos", "tres"} {
		role := RoleUser
		agent := ""
		if i%2 == 1 {
			role = RoleAssistant
			agent = "spanish_assistant"
		}
		if err := st.AppendTurn(role, agent, content, testNow); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	if got := len(st.Window(2)); got != 2 {
		t.Fatalf("Window(2) returned %d turns", got)
	}
	if got := len(st.Window(10)); got != 3 {
		t.Fatalf("Window(10) returned %d turns", got)
	}
	if st.Window(0) != nil {
		t.Fatal("Window(0) must be nil")
	}

	text := st.TranscriptText(3)
	if !strings.Contains(text, "assistant(spanish_assistant): dos") {
		t.Fatalf("transcript text missing attributed turn: %q", text)
	}
	if !strings.HasPrefix(text, "user: uno") {
		t.Fatalf("unexpected transcript text start: %q", text)
	}
}

func TestLastAssistantTurn(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "cli", testNow)
	if _, ok := st.LastAssistantTurn(); ok {
		t.Fatal("empty transcript must have no assistant turn")
	}

	_ = st.AppendTurn(RoleUser, "", "hola", testNow)
	_ = st.AppendTurn(RoleAssistant, "tutor", "buenas", testNow)
	_ = st.AppendTurn(RoleUser, "", "algebra", testNow)

	turn, ok := st.LastAssistantTurn()
	if !ok || turn.Content != "buenas" {
		t.Fatalf("unexpected last assistant turn: %+v ok=%v", turn, ok)
	}
}

func TestCountReply(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "cli", testNow)
	st.CountReply("es")
	st.CountReply("es")
	st.CountReply("en")
	st.CountReply("")

	if st.SpanishReplies != 2 || st.EnglishReplies != 1 {
		t.Fatalf("unexpected counters: es=%d en=%d", st.SpanishReplies, st.EnglishReplies)
	}
}

func TestValidatePhaseInvariants(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "cli", testNow)

	st.Phase = PhaseCalibration
	if err := st.Validate(); !errors.Is(err, ErrPhaseInvariant) {
		t.Fatalf("expected topic invariant violation, got %v", err)
	}

	st.Topic = "fracciones"
	if err := st.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	st.Phase = PhaseScaffolding
	if err := st.Validate(); !errors.Is(err, ErrPhaseInvariant) {
		t.Fatalf("expected knowledge level invariant violation, got %v", err)
	}

	st.KnowledgeLevel = LevelBeginner
	if err := st.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	st.Phase = Phase("bogus")
	if err := st.Validate(); !errors.Is(err, ErrUnknownPhase) {
		t.Fatalf("expected unknown phase, got %v", err)
	}

	st.Phase = PhaseTopic
	st.SessionID = " "
	if err := st.Validate(); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("expected invalid session id, got %v", err)
	}
}
