package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Phase is the tutoring conversation phase. The machine is strictly forward:
//
//	topic -> diagnostic -> calibration -> scaffolding -> final
//
// scaffolding loops on itself while the tutor keeps explaining, and any
// phase may jump to final when the session ends.
type Phase string

const (
	PhaseTopic       Phase = "topic"
	PhaseDiagnostic  Phase = "diagnostic"
	PhaseCalibration Phase = "calibration"
	PhaseScaffolding Phase = "scaffolding"
	PhaseFinal       Phase = "final"
)

var (
	ErrUnknownPhase      = errors.New("unknown phase")
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrPhaseInvariant    = errors.New("phase invariant violated")
)

var phaseRank = map[Phase]int{
	PhaseTopic:       0,
	PhaseDiagnostic:  1,
	PhaseCalibration: 2,
	PhaseScaffolding: 3,
	PhaseFinal:       4,
}

var phaseNext = map[Phase]Phase{
	PhaseTopic:       PhaseDiagnostic,
	PhaseDiagnostic:  PhaseCalibration,
	PhaseCalibration: PhaseScaffolding,
	PhaseScaffolding: PhaseScaffolding,
}

func (p Phase) Known() bool {
	_, ok := phaseRank[p]
	return ok
}

// AtLeast reports whether p is at or past other in the phase order.
func (p Phase) AtLeast(other Phase) bool {
	pr, ok := phaseRank[p]
	or, ok2 := phaseRank[other]
	return ok && ok2 && pr >= or
}

// CanAdvanceTo reports whether next is a legal successor of p.
func (p Phase) CanAdvanceTo(next Phase) bool {
	if !p.Known() || !next.Known() {
		return false
	}
	if next == PhaseFinal {
		return true
	}
	return phaseNext[p] == next
}

func ParsePhase(raw string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, raw)
	}
	return p, nil
}

// AdvancePhase moves the session to next, enforcing the transition table and
// the entry conditions of the target phase.
func (s *SessionState) AdvancePhase(next Phase, now time.Time) error {
	if s == nil {
		return errors.New("nil session state")
	}
	if !next.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownPhase, next)
	}
	if !s.Phase.CanAdvanceTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, next)
	}
	if next.AtLeast(PhaseCalibration) && strings.TrimSpace(s.Topic) == "" && next != PhaseFinal {
		return fmt.Errorf("%w: cannot enter %s without a topic", ErrPhaseInvariant, next)
	}
	if next.AtLeast(PhaseScaffolding) && s.KnowledgeLevel == "" && next != PhaseFinal {
		return fmt.Errorf("%w: cannot enter %s without a knowledge level", ErrPhaseInvariant, next)
	}
	s.Phase = next
	if next == PhaseFinal {
		s.Ended = true
	}
	s.Touch(now)
	return nil
}

// KnowledgeLevel is the calibrated self-assessment of the learner.
type KnowledgeLevel string

const (
	LevelBeginner     KnowledgeLevel = "beginner"
	LevelIntermediate KnowledgeLevel = "intermediate"
	LevelAdvanced     KnowledgeLevel = "advanced"
)

func ParseKnowledgeLevel(raw string) (KnowledgeLevel, error) {
	switch KnowledgeLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case LevelBeginner:
		return LevelBeginner, nil
	case LevelIntermediate:
		return LevelIntermediate, nil
	case LevelAdvanced:
		return LevelAdvanced, nil
	}
	return "", fmt.Errorf("%w: knowledge level %q", ErrPhaseInvariant, raw)
}

// CalibrateKnowledgeLevel maps a free-text self-assessment to a level.
// Keyword evidence in Spanish and English; intermediate when inconclusive.
func CalibrateKnowledgeLevel(answer string) KnowledgeLevel {
	text := strings.ToLower(answer)
	switch {
	case containsAny(text, "nada", "nothing", "cero", "no sé", "no se", "ni idea"):
		return LevelBeginner
	case containsAny(text, "mucho", "bastante", "a lot", "quite a bit", "avanzado", "advanced"):
		return LevelAdvanced
	case containsAny(text, "poco", "algo", "a little", "a bit", "some"):
		return LevelIntermediate
	default:
		return LevelIntermediate
	}
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
