// Package parser recovers structured word data from free-form model replies.
//
// Replies may be wrapped in markdown fences, surrounded by prose, truncated,
// or carry trailing commas. Every function here is pure and total: it returns
// the best structure it can find and never an error. Callers learn how much
// was recovered from Result.Recovery.
package parser
