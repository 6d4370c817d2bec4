package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/triage.txt
	triageRaw string

	//go:embed template/assistant_es.txt
	assistantESRaw string

	//go:embed template/assistant_en.txt
	assistantENRaw string

	//go:embed template/tutor.txt
	tutorRaw string
)

// PromptSet holds the system prompts for every model-backed agent.
type PromptSet struct {
	Triage           string
	SpanishAssistant string
	EnglishAssistant string
	Tutor            string
}

// LoadPromptSet returns the embedded prompts, trimmed. Safe to call
// concurrently; the embed is compile-time.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Triage:           strings.TrimSpace(triageRaw),
		SpanishAssistant: strings.TrimSpace(assistantESRaw),
		EnglishAssistant: strings.TrimSpace(assistantENRaw),
		Tutor:            strings.TrimSpace(tutorRaw),
	}
}
