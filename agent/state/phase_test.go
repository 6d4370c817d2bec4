package state

import (
	"errors"
	"testing"
)

func TestCanAdvanceTo(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseTopic, PhaseDiagnostic, true},
		{PhaseDiagnostic, PhaseCalibration, true},
		{PhaseCalibration, PhaseScaffolding, true},
		{PhaseScaffolding, PhaseScaffolding, true},
		{PhaseTopic, PhaseFinal, true},
		{PhaseScaffolding, PhaseFinal, true},
		{PhaseTopic, PhaseCalibration, false},
		{PhaseCalibration, PhaseTopic, false},
		{PhaseFinal, PhaseScaffolding, false},
		{Phase("bogus"), PhaseDiagnostic, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanAdvanceTo(tc.to); got != tc.want {
			t.Errorf("CanAdvanceTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestAdvancePhaseHappyPath(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "cli", testNow)
	st.Topic = "derivadas"
	st.KnowledgeLevel = LevelIntermediate

	for _, next := range []Phase{PhaseDiagnostic, PhaseCalibration, PhaseScaffolding, PhaseScaffolding} {
		if err := st.AdvancePhase(next, testNow); err != nil {
			t.Fatalf("AdvancePhase(%s) error = %v", next, err)
		}
	}
	if err := st.AdvancePhase(PhaseFinal, testNow); err != nil {
		t.Fatalf("AdvancePhase(final) error = %v", err)
	}
	if !st.Ended {
		t.Fatal("final phase must end the session")
	}
}

func TestAdvancePhaseRejectsSkips(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "cli", testNow)
	if err := st.AdvancePhase(PhaseScaffolding, testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if st.Phase != PhaseTopic {
		t.Fatalf("failed transition must not change phase, got %s", st.Phase)
	}
}

func TestAdvancePhaseEntryConditions(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", "u1", "cli", testNow)
	if err := st.AdvancePhase(PhaseDiagnostic, testNow); err != nil {
		t.Fatalf("AdvancePhase(diagnostic) error = %v", err)
	}

	// Calibration needs a topic.
	if err := st.AdvancePhase(PhaseCalibration, testNow); !errors.Is(err, ErrPhaseInvariant) {
		t.Fatalf("expected ErrPhaseInvariant without topic, got %v", err)
	}
	st.Topic = "fracciones"
	if err := st.AdvancePhase(PhaseCalibration, testNow); err != nil {
		t.Fatalf("AdvancePhase(calibration) error = %v", err)
	}

	// Scaffolding needs a knowledge level.
	if err := st.AdvancePhase(PhaseScaffolding, testNow); !errors.Is(err, ErrPhaseInvariant) {
		t.Fatalf("expected ErrPhaseInvariant without level, got %v", err)
	}
	st.KnowledgeLevel = LevelAdvanced
	if err := st.AdvancePhase(PhaseScaffolding, testNow); err != nil {
		t.Fatalf("AdvancePhase(scaffolding) error = %v", err)
	}

	// Final is reachable regardless of entry conditions elsewhere.
	empty := NewSessionState("s2", "u1", "cli", testNow)
	if err := empty.AdvancePhase(PhaseFinal, testNow); err != nil {
		t.Fatalf("AdvancePhase(final) error = %v", err)
	}
}

func TestParsePhase(t *testing.T) {
	t.Parallel()

	if p, err := ParsePhase("  Scaffolding "); err != nil || p != PhaseScaffolding {
		t.Fatalf("ParsePhase = %s, %v", p, err)
	}
	if _, err := ParsePhase("intro"); !errors.Is(err, ErrUnknownPhase) {
		t.Fatalf("expected ErrUnknownPhase, got %v", err)
	}
}

func TestParseKnowledgeLevel(t *testing.T) {
	t.Parallel()

	if lvl, err := ParseKnowledgeLevel(" ADVANCED "); err != nil || lvl != LevelAdvanced {
		t.Fatalf("ParseKnowledgeLevel = %s, %v", lvl, err)
	}
	if _, err := ParseKnowledgeLevel("expert"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestCalibrateKnowledgeLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		answer string
		want   KnowledgeLevel
	}{
		{"nada de nada", LevelBeginner},
		{"I know nothing about it", LevelBeginner},
		{"ni idea", LevelBeginner},
		{"sé bastante", LevelAdvanced},
		{"quite a bit actually", LevelAdvanced},
		{"un poco", LevelIntermediate},
		{"a little", LevelIntermediate},
		{"hmm", LevelIntermediate},
	}
	for _, tc := range cases {
		if got := CalibrateKnowledgeLevel(tc.answer); got != tc.want {
			t.Errorf("CalibrateKnowledgeLevel(%q) = %s, want %s", tc.answer, got, tc.want)
		}
	}
}
