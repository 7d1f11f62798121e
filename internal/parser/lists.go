package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/lexicard/lexicard-api/internal/domain"
)

// Leading list decorations: "1.", "2)", "-", "*", "•".
var listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// ParseStringList extracts a list of short strings, such as synonyms, from a
// reply. A JSON array of strings is preferred; otherwise the reply is split on
// newlines and commas. Items are trimmed of quotes and list markers and
// de-duplicated case-insensitively, keeping the first spelling. limit <= 0
// means no limit.
func ParseStringList(text string, limit int) []string {
	body := stripFences(text)

	var items []string
	if span, ok := topLevelArray(body); ok {
		var decoded []looseString
		if err := json.Unmarshal([]byte(removeTrailingCommas(span)), &decoded); err == nil {
			for _, d := range decoded {
				items = append(items, string(d))
			}
		}
	}
	if items == nil {
		items = strings.FieldsFunc(body, func(r rune) bool {
			return r == '\n' || r == ','
		})
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = cleanListItem(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func cleanListItem(s string) string {
	s = listMarker.ReplaceAllString(s, "")
	s = strings.Trim(strings.TrimSpace(s), `"'`+"`")
	return strings.TrimSpace(s)
}

type rawSuggestion struct {
	Word          looseString `json:"word"`
	Translation   looseString `json:"translation"`
	Example       looseString `json:"example"`
	Transcription looseString `json:"transcription"`
}

// ParseWordList extracts generated vocabulary from a reply made of
// "word | translation | example | transcription" lines. A JSON array of
// objects with the same fields is accepted too. Lines with fewer than three
// fields are skipped; the transcription is optional. limit <= 0 means no
// limit.
func ParseWordList(text string, limit int) []domain.WordSuggestion {
	body := stripFences(text)

	var out []domain.WordSuggestion
	add := func(s domain.WordSuggestion) bool {
		if s.Word == "" {
			return true
		}
		out = append(out, s)
		return limit <= 0 || len(out) < limit
	}

	if span, ok := topLevelArray(body); ok {
		var raws []rawSuggestion
		if err := json.Unmarshal([]byte(removeTrailingCommas(span)), &raws); err == nil {
			for _, r := range raws {
				if !add(domain.WordSuggestion{
					Word:          r.Word.trimmed(),
					Translation:   r.Translation.trimmed(),
					Example:       r.Example.trimmed(),
					Transcription: CleanTranscription(string(r.Transcription)),
				}) {
					break
				}
			}
			return out
		}
	}

	for _, line := range strings.Split(body, "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		parts := strings.Split(strings.Trim(strings.TrimSpace(line), "|"), "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		// Skip markdown table headers and separator rows.
		if len(parts) < 3 || strings.EqualFold(parts[0], "word") || strings.Trim(parts[0], "-: ") == "" {
			continue
		}
		s := domain.WordSuggestion{
			Word:        cleanListItem(parts[0]),
			Translation: parts[1],
			Example:     parts[2],
		}
		if len(parts) > 3 {
			s.Transcription = CleanTranscription(parts[3])
		}
		if !add(s) {
			break
		}
	}
	return out
}
