package domain

import "strings"

// PartOfSpeech is the closed vocabulary of grammatical categories a Sense may
// carry. Anything outside it is discarded during normalization.
type PartOfSpeech string

const (
	PartOfSpeechNoun      PartOfSpeech = "noun"
	PartOfSpeechVerb      PartOfSpeech = "verb"
	PartOfSpeechAdjective PartOfSpeech = "adjective"
	PartOfSpeechAdverb    PartOfSpeech = "adverb"
)

// PartsOfSpeech lists the accepted values in prompt order.
var PartsOfSpeech = []PartOfSpeech{
	PartOfSpeechNoun,
	PartOfSpeechVerb,
	PartOfSpeechAdjective,
	PartOfSpeechAdverb,
}

// ParsePartOfSpeech trims and case-folds s and reports whether the result is
// in the closed vocabulary.
func ParsePartOfSpeech(s string) (PartOfSpeech, bool) {
	pos := PartOfSpeech(strings.ToLower(strings.TrimSpace(s)))
	switch pos {
	case PartOfSpeechNoun, PartOfSpeechVerb, PartOfSpeechAdjective, PartOfSpeechAdverb:
		return pos, true
	default:
		return "", false
	}
}

// Sense is one meaning of a word: its part of speech, a translation and an
// example sentence.
type Sense struct {
	PartOfSpeech PartOfSpeech `json:"part_of_speech"`
	Translation  string       `json:"translation"`
	Example      string       `json:"example"`
}

// EnrichmentEntry is the structured description of a word learned from a
// model reply. Transcription is empty when the model gave none.
type EnrichmentEntry struct {
	Word          string  `json:"word,omitempty"`
	Transcription string  `json:"transcription,omitempty"`
	Senses        []Sense `json:"senses"`
}

// IsEmpty reports whether the entry carries no information. Empty entries are
// what the parser returns for unrecoverable replies.
func (e EnrichmentEntry) IsEmpty() bool {
	return e.Transcription == "" && len(e.Senses) == 0
}

// PrimaryTranslation returns the translation of the first sense, if any.
func (e EnrichmentEntry) PrimaryTranslation() string {
	if len(e.Senses) == 0 {
		return ""
	}
	return e.Senses[0].Translation
}

// PrimaryExample returns the example of the first sense, if any.
func (e EnrichmentEntry) PrimaryExample() string {
	if len(e.Senses) == 0 {
		return ""
	}
	return e.Senses[0].Example
}

// PrimaryPartOfSpeech returns the part of speech of the first sense, if any.
func (e EnrichmentEntry) PrimaryPartOfSpeech() PartOfSpeech {
	if len(e.Senses) == 0 {
		return ""
	}
	return e.Senses[0].PartOfSpeech
}

// WordSuggestion is one line of a generated vocabulary list.
type WordSuggestion struct {
	Word          string `json:"word"`
	Translation   string `json:"translation"`
	Example       string `json:"example"`
	Transcription string `json:"transcription"`
}
