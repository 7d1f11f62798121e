package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardDeckIDEmpty is returned when a card's deck ID is empty or nil.
	ErrCardDeckIDEmpty = errors.New("card deck ID cannot be empty")

	// ErrCardWordEmpty is returned when a card has no word.
	ErrCardWordEmpty = errors.New("card word cannot be empty")

	// ErrCardPartOfSpeechInvalid is returned when a card carries a part of
	// speech outside the closed vocabulary.
	ErrCardPartOfSpeechInvalid = errors.New("card part of speech is invalid")
)

// EmbeddingDimensions is the vector size stored with cards.
const EmbeddingDimensions = 768

// Card is a vocabulary flashcard in a deck.
type Card struct {
	ID               uuid.UUID    `json:"id"`
	DeckID           uuid.UUID    `json:"deck_id"`
	Word             string       `json:"word"`
	Translation      string       `json:"translation"`
	Example          string       `json:"example"`
	Transcription    string       `json:"transcription"`
	PronunciationURL string       `json:"pronunciation_url"`
	PartOfSpeech     PartOfSpeech `json:"part_of_speech,omitempty"`
	SynonymGroupID   *uuid.UUID   `json:"synonym_group_id,omitempty"`
	Embedding        []float32    `json:"-"`
	CreatedAt        time.Time    `json:"created_at"`
}

// NewCard creates a new Card for deckID from a generated word.
// It generates a new UUID for the card ID and sets the creation timestamp.
// Returns an error if validation fails.
func NewCard(deckID uuid.UUID, s WordSuggestion) (*Card, error) {
	card := &Card{
		ID:            uuid.New(),
		DeckID:        deckID,
		Word:          strings.TrimSpace(s.Word),
		Translation:   strings.TrimSpace(s.Translation),
		Example:       strings.TrimSpace(s.Example),
		Transcription: strings.TrimSpace(s.Transcription),
		CreatedAt:     time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.DeckID == uuid.Nil {
		return ErrCardDeckIDEmpty
	}

	if strings.TrimSpace(c.Word) == "" {
		return ErrCardWordEmpty
	}

	if c.PartOfSpeech != "" {
		if _, ok := ParsePartOfSpeech(string(c.PartOfSpeech)); !ok {
			return ErrCardPartOfSpeechInvalid
		}
	}

	return nil
}

// ApplyEnrichment copies what the entry knows onto the card without
// overwriting fields the card already has.
func (c *Card) ApplyEnrichment(e EnrichmentEntry) {
	if c.Transcription == "" {
		c.Transcription = e.Transcription
	}
	if c.Translation == "" {
		c.Translation = e.PrimaryTranslation()
	}
	if c.Example == "" {
		c.Example = e.PrimaryExample()
	}
	if c.PartOfSpeech == "" {
		c.PartOfSpeech = e.PrimaryPartOfSpeech()
	}
}

// Deck groups a user's cards.
type Deck struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SynonymGroup is a connected set of at least two items whose words were
// reported as synonyms of each other. ItemIDs and Words are aligned.
type SynonymGroup struct {
	ItemIDs []string `json:"item_ids"`
	Words   []string `json:"words"`
}
