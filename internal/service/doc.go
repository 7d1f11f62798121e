// Package service contains the deck-level AI use cases: generating words
// into a deck, enriching words, backfilling transcriptions, synonym lookup
// and grouping, and similar-word search.
//
// DeckAIService coordinates the enrichment service, the synonym suggester
// and the optional embedder with the deck and card stores (defined in
// internal/store). Writes that touch several cards run in one transaction
// through store.RunInTransaction. The service depends only on interfaces;
// cmd/server wires the concrete implementations.
package service
