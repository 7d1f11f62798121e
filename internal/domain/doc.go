// Package domain contains the core business entities and value objects of
// the application: decks and cards, the senses and enrichment entries learned
// from language models, and synonym groups. It is independent of any specific
// infrastructure or delivery mechanism.
package domain
