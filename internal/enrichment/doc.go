// Package enrichment turns words into transcriptions, senses, synonyms and
// generated vocabulary by prompting a Generator and parsing its replies.
//
// Results are kept in a bounded TTL cache keyed by the trimmed, case-folded
// word. Batch lookups check the cache per word and send only the misses to
// the provider, one call per chunk.
package enrichment
