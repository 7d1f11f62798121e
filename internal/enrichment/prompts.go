package enrichment

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/lexicard/lexicard-api/internal/domain"
)

const enrichWordPrompt = `For the English word {{printf "%q" .Word}} list its common meanings.
For each meaning give:
1) the part of speech, one of: {{.PartsOfSpeech}}
2) a Russian translation (one word or short phrase)
3) one short example sentence in English using the word in that meaning
Also give the IPA phonetic transcription in square brackets (e.g. [ˈæp.əl]).

Reply in JSON only:
{"transcription": "[...]", "senses": [{"part_of_speech": "noun", "translation": "...", "example": "..."}]}`

const enrichBatchPrompt = `For each English word below list its common meanings.
For each meaning give the part of speech (one of: {{.PartsOfSpeech}}), a Russian translation (one word or short phrase) and one short example sentence in English.
Also give each word's IPA phonetic transcription in square brackets (e.g. [ˈæp.əl]).

Words:
{{range $i, $w := .Words}}{{inc $i}}. {{printf "%q" $w}}
{{end}}
Reply in JSON only: an array of exactly {{len .Words}} objects in the same order as the words above.
[{"word": "...", "transcription": "[...]", "senses": [{"part_of_speech": "noun", "translation": "...", "example": "..."}]}]`

const synonymsPrompt = `List up to {{.Limit}} English synonyms of the word {{printf "%q" .Word}}.
Use single words or short common phrases. Do not repeat the word itself.

Reply in JSON only: an array of strings, e.g. ["large", "huge"]`

const wordListPrompt = `Generate {{.Count}} frequent English words for learners.
{{if .Level}}Use CEFR level: {{.Level}}.
{{end}}{{if .Topic}}Use topic/theme: {{.Topic}}.
{{end}}For each word provide: 1) English word, 2) Russian translation, 3) one short example sentence in English, 4) IPA phonetic transcription (e.g. ˈæpl for apple).
Output format: one line per word, pipe-separated: word | translation | example | transcription
Example: apple | яблоко | I eat an apple every day. | ˈæpl
Do not add numbering or extra text. Only lines in format: word | translation | example | transcription`

type prompts struct {
	enrichWord  *template.Template
	enrichBatch *template.Template
	synonyms    *template.Template
	wordList    *template.Template
}

func newPrompts() (*prompts, error) {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}

	parse := func(name, text string) (*template.Template, error) {
		t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s prompt: %w", name, err)
		}
		return t, nil
	}

	var (
		p   prompts
		err error
	)
	if p.enrichWord, err = parse("enrich_word", enrichWordPrompt); err != nil {
		return nil, err
	}
	if p.enrichBatch, err = parse("enrich_batch", enrichBatchPrompt); err != nil {
		return nil, err
	}
	if p.synonyms, err = parse("synonyms", synonymsPrompt); err != nil {
		return nil, err
	}
	if p.wordList, err = parse("word_list", wordListPrompt); err != nil {
		return nil, err
	}
	return &p, nil
}

func partsOfSpeech() string {
	names := make([]string, len(domain.PartsOfSpeech))
	for i, p := range domain.PartsOfSpeech {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}

type wordData struct {
	Word          string
	PartsOfSpeech string
}

type batchData struct {
	Words         []string
	PartsOfSpeech string
}

type synonymsData struct {
	Word  string
	Limit int
}

type wordListData struct {
	Count int
	Level string
	Topic string
}
