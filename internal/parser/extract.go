package parser

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	sensesMarker        = `"senses"`
	transcriptionMarker = `"transcription"`
)

var (
	fencedBlock = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \\t]*\\r?\\n?(.*?)```")
	// Catches the transcription value of a reply cut off mid-object.
	transcriptionValue = regexp.MustCompile(`"transcription"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// stripFences returns the contents of the first fenced code block, or the
// trimmed text with a dangling opening fence removed.
func stripFences(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		if nl := strings.IndexByte(t, '\n'); nl >= 0 && !strings.ContainsAny(t[:nl], "[{") {
			t = t[nl+1:]
		}
	}
	return strings.TrimSpace(t)
}

// removeTrailingCommas drops commas that directly precede a closing bracket
// or brace. Commas inside string literals are kept.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',':
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// matchClose returns the index of the bracket closing the one at start,
// skipping over JSON string literals.
func matchClose(s string, start int, open, close byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return -1, false
}

// topLevelArray returns the first balanced [...] span that is not nested
// inside an object. A senses array inside a lone object is therefore not
// mistaken for the batch array.
func topLevelArray(s string) (string, bool) {
	braces := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			braces++
		case '}':
			if braces > 0 {
				braces--
			}
		case '[':
			if braces == 0 {
				end, ok := matchClose(s, i, '[', ']')
				if !ok {
					return "", false
				}
				return s[i : end+1], true
			}
		}
	}
	return "", false
}

// nestedEntryArray returns the first balanced [...] span, at any depth,
// whose first element is an object carrying a senses or transcription field.
// It finds batches wrapped in an object such as {"words": [...]}.
func nestedEntryArray(s string) (string, bool) {
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			end, ok := matchClose(s, i, '[', ']')
			if !ok {
				return "", false
			}
			span := s[i : end+1]
			if firstElementIsEntry(span) {
				return span, true
			}
		}
	}
	return "", false
}

// firstElementIsEntry reports whether the array span opens with an object
// that has a senses or transcription key of its own.
func firstElementIsEntry(span string) bool {
	rest := strings.TrimLeft(span[1:], " \t\r\n")
	if !strings.HasPrefix(rest, "{") {
		return false
	}
	end, ok := matchClose(rest, 0, '{', '}')
	if !ok {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(removeTrailingCommas(rest[:end+1])), &fields); err != nil {
		return strings.Contains(rest[:end+1], sensesMarker) || strings.Contains(rest[:end+1], transcriptionMarker)
	}
	_, hasSenses := fields["senses"]
	_, hasTranscription := fields["transcription"]
	return hasSenses || hasTranscription
}

// objectCandidates lists spans that may hold a single enrichment object,
// narrowest first: the object enclosing the senses field, then the first
// balanced object, then a synthetic object built from a salvaged
// transcription value.
func objectCandidates(s string) []string {
	var out []string

	if idx := strings.Index(s, sensesMarker); idx >= 0 {
		if start := enclosingBrace(s, idx); start >= 0 {
			if end, ok := matchClose(s, start, '{', '}'); ok {
				out = append(out, s[start:end+1])
			}
		}
	}

	if start := strings.IndexByte(s, '{'); start >= 0 {
		if end, ok := matchClose(s, start, '{', '}'); ok {
			out = append(out, s[start:end+1])
		}
	}

	if m := transcriptionValue.FindStringSubmatch(s); m != nil {
		var value string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &value); err == nil {
			if b, err := json.Marshal(map[string]string{"transcription": value}); err == nil {
				out = append(out, string(b))
			}
		}
	}

	return out
}

// enclosingBrace walks left from pos to the '{' that opens the object
// containing pos, or returns -1.
func enclosingBrace(s string, pos int) int {
	depth := 0
	for i := pos - 1; i >= 0; i-- {
		switch s[i] {
		case '}':
			depth++
		case '{':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}
