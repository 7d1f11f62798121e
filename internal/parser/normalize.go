package parser

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lexicard/lexicard-api/internal/domain"
)

// looseString accepts any JSON scalar. Objects and arrays decode to "".
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = looseString(t)
	case float64:
		*s = looseString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*s = looseString(strconv.FormatBool(t))
	default:
		*s = ""
	}
	return nil
}

func (s looseString) trimmed() string {
	return strings.TrimSpace(string(s))
}

type rawSense struct {
	PartOfSpeech looseString `json:"part_of_speech"`
	POS          looseString `json:"pos"`
	Translation  looseString `json:"translation"`
	Example      looseString `json:"example"`
}

func (s rawSense) partOfSpeech() string {
	if p := s.PartOfSpeech.trimmed(); p != "" {
		return p
	}
	return s.POS.trimmed()
}

// rawSenses decodes either an array of senses or a lone sense object.
type rawSenses []rawSense

func (rs *rawSenses) UnmarshalJSON(b []byte) error {
	var many []rawSense
	if err := json.Unmarshal(b, &many); err == nil {
		*rs = many
		return nil
	}
	var one rawSense
	if err := json.Unmarshal(b, &one); err == nil {
		*rs = rawSenses{one}
		return nil
	}
	*rs = nil
	return nil
}

type rawEntry struct {
	Word          looseString `json:"word"`
	Transcription looseString `json:"transcription"`
	Senses        rawSenses   `json:"senses"`
	// Older prompts asked for a single flat translation and example.
	Translation looseString `json:"translation"`
	Example     looseString `json:"example"`
}

// normalize trims every field, keeps only senses whose part of speech is in
// the closed vocabulary, and turns a legacy flat translation/example pair
// into a noun sense when no valid sense remains.
func (r rawEntry) normalize() domain.EnrichmentEntry {
	entry := domain.EnrichmentEntry{
		Word:          r.Word.trimmed(),
		Transcription: CleanTranscription(string(r.Transcription)),
	}

	for _, s := range r.Senses {
		pos, ok := domain.ParsePartOfSpeech(s.partOfSpeech())
		if !ok {
			continue
		}
		entry.Senses = append(entry.Senses, domain.Sense{
			PartOfSpeech: pos,
			Translation:  s.Translation.trimmed(),
			Example:      s.Example.trimmed(),
		})
	}

	if len(entry.Senses) == 0 {
		translation, example := r.Translation.trimmed(), r.Example.trimmed()
		if translation != "" || example != "" {
			entry.Senses = []domain.Sense{{
				PartOfSpeech: domain.PartOfSpeechNoun,
				Translation:  translation,
				Example:      example,
			}}
		}
	}

	return entry
}

// CleanTranscription trims whitespace and surrounding square brackets.
func CleanTranscription(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "[]"))
}
