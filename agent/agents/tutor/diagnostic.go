package tutor

import (
	"context"
	"fmt"

	contractx "github.com/amontero/dialogo/agent/contract"
	"github.com/amontero/dialogo/agent/language"
	statex "github.com/amontero/dialogo/agent/state"
)

// Diagnostic runs the intake phases of a tutoring session without a model:
// it collects the topic, then calibrates the knowledge level from the
// learner's self-assessment.
type Diagnostic struct{}

func NewDiagnostic() *Diagnostic {
	return &Diagnostic{}
}

func (d *Diagnostic) Name() contractx.AgentName {
	return contractx.AgentDiagnostic
}

// Diagnostic replies directly; the tutor takes over once calibration is done.
func (d *Diagnostic) Handoffs() []contractx.AgentName {
	return nil
}

func (d *Diagnostic) Respond(_ context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	if req.Session == nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: session is required", contractx.ErrValidation)
	}
	st := req.Session
	english := language.ParseLang(st.Language) == language.English

	switch st.Phase {
	case statex.PhaseTopic:
		if _, asked := st.LastAssistantTurn(); !asked {
			return contractx.AgentResponse{Message: askTopic(english)}, nil
		}
		// The previous assistant turn asked for the topic, so this message
		// names it.
		topic := req.UserMessage
		return contractx.AgentResponse{
			Message: askKnowledge(english, topic),
			StateUpdates: contractx.StateUpdates{
				SetTopic:     topic,
				AdvancePhase: string(statex.PhaseDiagnostic),
			},
		}, nil

	case statex.PhaseDiagnostic:
		level := statex.CalibrateKnowledgeLevel(req.UserMessage)
		return contractx.AgentResponse{
			Message: announceLevel(english, st.Topic, level),
			StateUpdates: contractx.StateUpdates{
				SetKnowledgeLevel: string(level),
				AdvancePhase:      string(statex.PhaseCalibration),
			},
		}, nil

	default:
		return contractx.AgentResponse{}, fmt.Errorf("%w: diagnostic invoked in phase %s", contractx.ErrValidation, st.Phase)
	}
}

func askTopic(english bool) string {
	if english {
		return "Welcome! What math topic would you like to work on today?"
	}
	return "¡Bienvenido! ¿Qué tema de matemáticas te gustaría estudiar hoy?"
}

func askKnowledge(english bool, topic string) string {
	if english {
		return fmt.Sprintf("Great, %s it is. How much do you already know about it? (nothing / a little / a lot)", topic)
	}
	return fmt.Sprintf("Perfecto, trabajaremos %s. ¿Cuánto sabes ya sobre el tema? (nada / poco / mucho)", topic)
}

func announceLevel(english bool, topic string, level statex.KnowledgeLevel) string {
	if english {
		return fmt.Sprintf("Thanks! We'll approach %s at a %s level. Ready when you are.", topic, level)
	}
	levelES := map[statex.KnowledgeLevel]string{
		statex.LevelBeginner:     "principiante",
		statex.LevelIntermediate: "intermedio",
		statex.LevelAdvanced:     "avanzado",
	}[level]
	return fmt.Sprintf("¡Gracias! Trabajaremos %s a nivel %s. Empezamos cuando quieras.", topic, levelES)
}
