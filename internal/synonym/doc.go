// Package synonym groups items, typically the cards of one deck, whose words
// a model reported as synonyms of each other.
//
// The relation a model reports is directed: asking for the synonyms of "big"
// may return "large" while the synonyms of "large" omit "big". Clusterer
// either follows those edges as reported (ModeDirected) or treats every
// reported edge as mutual (ModeSymmetric, the default).
package synonym
