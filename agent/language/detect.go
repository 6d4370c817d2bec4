// Package language implements the deterministic fast path for routing
// between the Spanish and English assistants. The triage agent only calls
// the model when this detector is inconclusive.
package language

import (
	"strings"
	"unicode"
)

type Lang string

const (
	Spanish Lang = "es"
	English Lang = "en"
	Unknown Lang = ""
)

// Detection carries the detected language and a confidence in [0,1].
type Detection struct {
	Language   Lang
	Confidence float64
}

// DefaultThreshold is the confidence at or above which callers may skip the
// model fallback entirely.
const DefaultThreshold = 0.7

// Spanish orthography is decisive on its own: these runes do not occur in
// English text.
var spanishMarkers = map[rune]struct{}{
	'á': {}, 'é': {}, 'í': {}, 'ó': {}, 'ú': {}, 'ñ': {}, '¿': {}, '¡': {},
	'Á': {}, 'É': {}, 'Í': {}, 'Ó': {}, 'Ú': {}, 'Ñ': {},
}

var spanishStopwords = toSet(
	"hola", "como", "que", "por", "para", "gracias", "ayuda", "necesito",
	"quiero", "donde", "cuando", "tema", "clima", "tiempo", "cuanto",
	"buenos", "buenas", "dias", "tardes", "noches", "esta", "estas",
	"puedes", "sobre", "mucho", "poco", "nada", "con", "una", "del",
)

var englishStopwords = toSet(
	"hello", "hi", "hey", "the", "what", "how", "are", "you", "is",
	"weather", "help", "need", "want", "please", "thanks", "thank",
	"where", "when", "about", "with", "can", "could", "would", "know",
	"much", "little", "nothing", "good", "morning", "evening",
)

// Detect scores the input against both languages. An orthographic marker
// yields full-confidence Spanish; otherwise confidence is the share of
// stopword evidence won by the leading language.
func Detect(input string) Detection {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Detection{Language: Unknown, Confidence: 0}
	}

	for _, r := range trimmed {
		if _, ok := spanishMarkers[r]; ok {
			return Detection{Language: Spanish, Confidence: 1}
		}
	}

	var es, en int
	for _, word := range tokenize(trimmed) {
		if _, ok := spanishStopwords[word]; ok {
			es++
		}
		if _, ok := englishStopwords[word]; ok {
			en++
		}
	}

	total := es + en
	if total == 0 {
		return Detection{Language: Unknown, Confidence: 0}
	}
	if es == en {
		// Tied evidence: the original routing rule prefers Spanish but
		// with no real confidence behind it.
		return Detection{Language: Spanish, Confidence: 0.5}
	}
	if es > en {
		return Detection{Language: Spanish, Confidence: float64(es) / float64(total)}
	}
	return Detection{Language: English, Confidence: float64(en) / float64(total)}
}

// Resolve combines a fresh detection with the session's cached language.
// Low-confidence inputs in an established conversation keep the previous
// language instead of flapping.
func Resolve(input string, cached Lang) Detection {
	det := Detect(input)
	if det.Confidence >= DefaultThreshold {
		return det
	}
	if cached == Spanish || cached == English {
		return Detection{Language: cached, Confidence: DefaultThreshold}
	}
	return det
}

func ParseLang(raw string) Lang {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "es", "spanish", "español", "espanol":
		return Spanish
	case "en", "english", "inglés", "ingles":
		return English
	}
	return Unknown
}

func tokenize(input string) []string {
	lowered := strings.ToLower(input)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
