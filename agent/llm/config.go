package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/amontero/dialogo/agent/contract"
	openrouterx "github.com/amontero/dialogo/pkg/openrouter"
)

// Config selects a model per agent, with a shared default. Triage gets a
// cheap low-temperature model; the tutor benefits from a stronger one.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	TriageModel          string  `envconfig:"TRIAGE_MODEL" split_words:"true"`
	AssistantModel       string  `envconfig:"ASSISTANT_MODEL" split_words:"true"`
	TutorModel           string  `envconfig:"TUTOR_MODEL" split_words:"true"`
	TriageTemperature    float32 `envconfig:"TRIAGE_TEMPERATURE" split_words:"true" default:"-1"`
	AssistantTemperature float32 `envconfig:"ASSISTANT_TEMPERATURE" split_words:"true" default:"-1"`
	TutorTemperature     float32 `envconfig:"TUTOR_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the model configuration for one agent.
func (c Config) OpenRouterFor(agent contractx.AgentName) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch agent {
	case contractx.AgentTriage:
		if v := strings.TrimSpace(c.TriageModel); v != "" {
			modelName = v
		}
		if c.TriageTemperature >= 0 {
			temp = c.TriageTemperature
		}
	case contractx.AgentSpanish, contractx.AgentEnglish:
		if v := strings.TrimSpace(c.AssistantModel); v != "" {
			modelName = v
		}
		if c.AssistantTemperature >= 0 {
			temp = c.AssistantTemperature
		}
	case contractx.AgentTutor, contractx.AgentDiagnostic:
		if v := strings.TrimSpace(c.TutorModel); v != "" {
			modelName = v
		}
		if c.TutorTemperature >= 0 {
			temp = c.TutorTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
