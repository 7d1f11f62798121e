// Package generation turns a set of unreliable, rate-limited LLM providers
// into a single text generator.
//
// Each provider is reached through the Provider interface and owns a Rotation:
// an ordered list of model identifiers plus a cursor shared by every caller.
// The Orchestrator tries the current model of the primary provider, advances
// the cursor on any failure, and moves to the next provider once every model
// of the current one has failed. Callers get either the text of the first
// successful reply or a single error describing every provider's failure.
//
// The package does not parse replies; see package parser.
package generation
