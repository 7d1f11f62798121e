package api

// Request and response payloads of the /ai endpoints.

// GenerateWordsRequest is the body of POST /ai/generate-words.
type GenerateWordsRequest struct {
	DeckID string `json:"deck_id" validate:"required,uuid"`
	Level  string `json:"level"   validate:"omitempty,oneof=A1 A2 B1 B2 C1 C2"`
	Topic  string `json:"topic"   validate:"max=200"`
	// Count defaults to DefaultGenerateCount when zero.
	Count int `json:"count" validate:"gte=0,lte=100"`
}

// GenerateWordsResponse reports how many cards were created.
type GenerateWordsResponse struct {
	Created int `json:"created"`
}

// EnrichWordRequest is the body of POST /ai/enrich-word.
type EnrichWordRequest struct {
	Word string `json:"word" validate:"required,max=100"`
}

// EnrichWordsRequest is the body of POST /ai/enrich-words.
type EnrichWordsRequest struct {
	Words []string `json:"words" validate:"required,min=1,max=100,dive,max=100"`
}

// SenseResponse is one meaning of an enriched word.
type SenseResponse struct {
	PartOfSpeech string `json:"part_of_speech"`
	Translation  string `json:"translation"`
	Example      string `json:"example"`
}

// EnrichWordResponse describes one enriched word. Translation, Example and
// PartOfSpeech repeat the first sense.
type EnrichWordResponse struct {
	Word             string          `json:"word"`
	Translation      string          `json:"translation"`
	Example          string          `json:"example"`
	PartOfSpeech     string          `json:"part_of_speech,omitempty"`
	Transcription    string          `json:"transcription"`
	PronunciationURL string          `json:"pronunciation_url"`
	Senses           []SenseResponse `json:"senses"`
}

// EnrichWordsResponse holds one result per requested word, in order.
type EnrichWordsResponse struct {
	Results []EnrichWordResponse `json:"results"`
}

// BackfillTranscriptionsRequest is the optional body of
// POST /ai/backfill-transcriptions. Without a deck every deck of the user
// is covered.
type BackfillTranscriptionsRequest struct {
	DeckID string `json:"deck_id" validate:"omitempty,uuid"`
	Limit  int    `json:"limit"   validate:"gte=0,lte=500"`
}

// BackfillTranscriptionsResponse reports how many cards were updated.
type BackfillTranscriptionsResponse struct {
	Updated int `json:"updated"`
}

// SimilarWordItem is a card matched by synonym or similarity lookups.
type SimilarWordItem struct {
	CardID      string   `json:"card_id"`
	Word        string   `json:"word"`
	Translation string   `json:"translation"`
	Example     string   `json:"example"`
	Distance    *float64 `json:"distance,omitempty"`
}

// SynonymsResponse lists synonyms of a word and the deck cards among them.
type SynonymsResponse struct {
	Synonyms    []string          `json:"synonyms"`
	CardsInDeck []SimilarWordItem `json:"cards_in_deck"`
}

// SynonymGroupItem is one suggested group. Words and CardIDs are aligned.
type SynonymGroupItem struct {
	Words   []string `json:"words"`
	CardIDs []string `json:"card_ids"`
}

// SuggestSynonymGroupsResponse is the result of
// POST /ai/synonym-groups/suggest.
type SuggestSynonymGroupsResponse struct {
	Groups []SynonymGroupItem `json:"groups"`
}

// ApplySynonymGroupsRequest is the body of POST /ai/synonym-groups/apply.
// Each inner list holds the card IDs of one group.
type ApplySynonymGroupsRequest struct {
	Groups [][]string `json:"groups" validate:"required,min=1,max=100,dive,max=200,dive,uuid"`
}

// ApplySynonymGroupsResponse reports how many cards were assigned a group.
type ApplySynonymGroupsResponse struct {
	Updated int64 `json:"updated"`
}
