package llm

import (
	"errors"
	"testing"

	contractx "github.com/amontero/dialogo/agent/contract"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{APIKey: "k", Model: "m"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if err := (Config{Model: "m"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation without api key, got %v", err)
	}
	if err := (Config{APIKey: "k"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation without model, got %v", err)
	}
}

func TestOpenRouterForDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:               "k",
		Model:                "default-model",
		Temperature:          0.5,
		MaxCompletionToken:   1000,
		TriageTemperature:    -1,
		AssistantTemperature: -1,
		TutorTemperature:     -1,
	}

	or := cfg.OpenRouterFor(contractx.AgentSpanish)
	if or.Model != "default-model" || or.Temperature != 0.5 {
		t.Fatalf("unexpected defaults: %+v", or)
	}
	if or.MaxCompletionToken == nil || *or.MaxCompletionToken != 1000 {
		t.Fatalf("max tokens not carried: %+v", or.MaxCompletionToken)
	}
}

func TestOpenRouterForOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:               "k",
		Model:                "default-model",
		Temperature:          0.5,
		TriageModel:          "cheap-model",
		TriageTemperature:    0,
		TutorModel:           "strong-model",
		TutorTemperature:     0.8,
		AssistantTemperature: -1,
	}

	triage := cfg.OpenRouterFor(contractx.AgentTriage)
	if triage.Model != "cheap-model" || triage.Temperature != 0 {
		t.Fatalf("triage override not applied: %+v", triage)
	}

	tutor := cfg.OpenRouterFor(contractx.AgentTutor)
	if tutor.Model != "strong-model" || tutor.Temperature != 0.8 {
		t.Fatalf("tutor override not applied: %+v", tutor)
	}
	diagnostic := cfg.OpenRouterFor(contractx.AgentDiagnostic)
	if diagnostic.Model != "strong-model" {
		t.Fatalf("diagnostic must share the tutor model: %+v", diagnostic)
	}

	assistant := cfg.OpenRouterFor(contractx.AgentEnglish)
	if assistant.Model != "default-model" || assistant.Temperature != 0.5 {
		t.Fatalf("assistant must fall back to defaults: %+v", assistant)
	}
}
